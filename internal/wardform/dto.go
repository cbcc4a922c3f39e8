package wardform

import "time"

// SaveFormRequest is the JSON payload for draft saves and finalization.
type SaveFormRequest struct {
	StartingCensus int `json:"startingCensus"`
	NewAdmits      int `json:"newAdmits"`
	TransfersIn    int `json:"transfersIn"`
	RefersIn       int `json:"refersIn"`
	Discharges     int `json:"discharges"`
	TransfersOut   int `json:"transfersOut"`
	RefersOut      int `json:"refersOut"`
	Deaths         int `json:"deaths"`

	Nurses          int `json:"nurses"`
	PracticalNurses int `json:"practicalNurses"`
	NurseAides      int `json:"nurseAides"`
	AvailableBeds   int `json:"availableBeds"`
	UnavailableBeds int `json:"unavailableBeds"`

	RecorderName    string `json:"recorderName"`
	ChargeNurseName string `json:"chargeNurseName"`
	Remarks         string `json:"remarks"`

	ConfirmZero      bool `json:"confirmZero"`
	ConfirmOverwrite bool `json:"confirmOverwrite"`
}

func (r SaveFormRequest) toInput(wardID, date string, shift Shift) SaveInput {
	return SaveInput{
		WardID:           wardID,
		Date:             date,
		Shift:            shift,
		StartingCensus:   r.StartingCensus,
		NewAdmits:        r.NewAdmits,
		TransfersIn:      r.TransfersIn,
		RefersIn:         r.RefersIn,
		Discharges:       r.Discharges,
		TransfersOut:     r.TransfersOut,
		RefersOut:        r.RefersOut,
		Deaths:           r.Deaths,
		Nurses:           r.Nurses,
		PracticalNurses:  r.PracticalNurses,
		NurseAides:       r.NurseAides,
		AvailableBeds:    r.AvailableBeds,
		UnavailableBeds:  r.UnavailableBeds,
		RecorderName:     r.RecorderName,
		ChargeNurseName:  r.ChargeNurseName,
		Remarks:          r.Remarks,
		ConfirmZero:      r.ConfirmZero,
		ConfirmOverwrite: r.ConfirmOverwrite,
	}
}

// FormResponse mirrors a stored shift form.
type FormResponse struct {
	ID     string     `json:"id"`
	WardID string     `json:"wardId"`
	Date   string     `json:"date"`
	Shift  Shift      `json:"shift"`
	Status FormStatus `json:"status"`

	StartingCensus int `json:"startingCensus"`
	NewAdmits      int `json:"newAdmits"`
	TransfersIn    int `json:"transfersIn"`
	RefersIn       int `json:"refersIn"`
	Discharges     int `json:"discharges"`
	TransfersOut   int `json:"transfersOut"`
	RefersOut      int `json:"refersOut"`
	Deaths         int `json:"deaths"`
	ComputedCensus int `json:"computedCensus"`
	PatientCensus  int `json:"patientCensus"`

	Nurses          int `json:"nurses"`
	PracticalNurses int `json:"practicalNurses"`
	NurseAides      int `json:"nurseAides"`
	AvailableBeds   int `json:"availableBeds"`
	UnavailableBeds int `json:"unavailableBeds"`

	RecorderName    string `json:"recorderName"`
	ChargeNurseName string `json:"chargeNurseName"`
	Remarks         string `json:"remarks,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`

	CreatedBy   string     `json:"createdBy"`
	UpdatedBy   string     `json:"updatedBy"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	FinalizedAt *time.Time `json:"finalizedAt,omitempty"`
	ApprovedAt  *time.Time `json:"approvedAt,omitempty"`
}

// NewFormResponse converts a domain form for the API surface.
func NewFormResponse(f ShiftForm) FormResponse {
	return FormResponse{
		ID:              f.ID,
		WardID:          f.WardID,
		Date:            f.Date,
		Shift:           f.Shift,
		Status:          f.Status,
		StartingCensus:  f.StartingCensus,
		NewAdmits:       f.NewAdmits,
		TransfersIn:     f.TransfersIn,
		RefersIn:        f.RefersIn,
		Discharges:      f.Discharges,
		TransfersOut:    f.TransfersOut,
		RefersOut:       f.RefersOut,
		Deaths:          f.Deaths,
		ComputedCensus:  f.ComputedCensus,
		PatientCensus:   f.PatientCensus,
		Nurses:          f.Nurses,
		PracticalNurses: f.PracticalNurses,
		NurseAides:      f.NurseAides,
		AvailableBeds:   f.AvailableBeds,
		UnavailableBeds: f.UnavailableBeds,
		RecorderName:    f.RecorderName,
		ChargeNurseName: f.ChargeNurseName,
		Remarks:         f.Remarks,
		RejectionReason: f.RejectionReason,
		CreatedBy:       f.CreatedBy,
		UpdatedBy:       f.UpdatedBy,
		ApprovedBy:      f.ApprovedBy,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
		FinalizedAt:     f.FinalizedAt,
		ApprovedAt:      f.ApprovedAt,
	}
}
