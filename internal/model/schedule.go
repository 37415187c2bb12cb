package model

// Schedule is a duty roster entry for one date.
type Schedule struct {
	ID         string   `json:"id"`
	Date       string   `json:"date"`
	StaffIDs   []string `json:"approverStaffIds"` // on-duty submitter teacher ids
	ApproverID string   `json:"approverId"`       // approver teacher id
}

// CreateScheduleRequest is the payload for a new duty roster entry.
type CreateScheduleRequest struct {
	Date       string   `json:"date" binding:"required,datetime=2006-01-02"`
	StaffIDs   []string `json:"approverStaffIds" binding:"required,min=1,dive,required"`
	ApproverID string   `json:"approverId" binding:"required"`
}

// UpdateScheduleRequest changes the provided fields only.
type UpdateScheduleRequest struct {
	Date       string   `json:"date" binding:"omitempty,datetime=2006-01-02"`
	StaffIDs   []string `json:"approverStaffIds" binding:"omitempty,min=1,dive,required"`
	ApproverID string   `json:"approverId" binding:"omitempty"`
}
