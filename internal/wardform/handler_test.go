package wardform

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/wardflow/wardflow/internal/shared"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	handler := NewHandler(slog.Default(), NewService(newMemoryFormRepo(), nil, nil))
	r := chi.NewRouter()
	r.Route("/wards", handler.MountRoutes)
	return r
}

func doJSON(t *testing.T, router chi.Router, method, path, body string, role shared.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.ContextWithActor(req.Context(), shared.Actor{ID: "u1", Name: "U", Role: role}))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSaveDraftEndpoint(t *testing.T) {
	router := newTestRouter(t)

	body := `{"startingCensus":10,"newAdmits":3,"discharges":2,"nurses":4,"recorderName":"R","chargeNurseName":"C"}`
	rr := doJSON(t, router, http.MethodPost, "/wards/WARD1/forms/2025-01-02/m/draft", body, shared.RoleRecorder)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "WARD1_m_draft_d20250102", resp["formId"])
	require.Equal(t, "draft", resp["status"])

	rr = doJSON(t, router, http.MethodGet, "/wards/WARD1/forms/2025-01-02/m", "", shared.RoleRecorder)
	require.Equal(t, http.StatusOK, rr.Code)
	var form FormResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &form))
	require.Equal(t, 11, form.ComputedCensus)
}

func TestSaveDraftEndpointValidationProblem(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/wards/WARD1/forms/2025-01-02/m/draft", `{"newAdmits":-2,"nurses":1}`, shared.RoleRecorder)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Contains(t, rr.Body.String(), "NewAdmits")
}

func TestSaveDraftEndpointZeroConfirmConflict(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodPost, "/wards/WARD1/forms/2025-01-02/m/draft", `{}`, shared.RoleRecorder)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "Confirmation Required")

	rr = doJSON(t, router, http.MethodPost, "/wards/WARD1/forms/2025-01-02/m/draft", `{"confirmZero":true}`, shared.RoleRecorder)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestFinalizeEndpointGatesNightShift(t *testing.T) {
	router := newTestRouter(t)

	body := `{"startingCensus":10,"newAdmits":1,"nurses":2,"recorderName":"R","chargeNurseName":"C"}`
	rr := doJSON(t, router, http.MethodPost, "/wards/WARD1/forms/2025-01-02/n/finalize", body, shared.RoleRecorder)
	require.Equal(t, http.StatusConflict, rr.Code)
	require.Contains(t, rr.Body.String(), "morning shift must be finalized first")
}

func TestGetEndpointNotFound(t *testing.T) {
	router := newTestRouter(t)

	rr := doJSON(t, router, http.MethodGet, "/wards/WARD1/forms/2025-01-02/m", "", shared.RoleRecorder)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTransitionsEndpointReportsSelectorGate(t *testing.T) {
	router := newTestRouter(t)

	body := `{"startingCensus":10,"newAdmits":1,"nurses":2,"recorderName":"R","chargeNurseName":"C"}`
	rr := doJSON(t, router, http.MethodPost, "/wards/WARD1/forms/2025-01-02/m/finalize", body, shared.RoleRecorder)
	require.Equal(t, http.StatusOK, rr.Code)

	// Morning is Final but not Approved: the night selector stays closed
	// even though night finalization is already legal.
	rr = doJSON(t, router, http.MethodGet, "/wards/WARD1/forms/2025-01-02/n/transitions", "", shared.RoleRecorder)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Next            []FormStatus `json:"next"`
		SelectorEnabled bool         `json:"selectorEnabled"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.False(t, resp.SelectorEnabled)
	require.Contains(t, resp.Next, StatusFinal)
}
