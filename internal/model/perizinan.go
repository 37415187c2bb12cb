package model

import "fmt"

// PerizinanStatus enumerates the lifecycle states of a permission request.
type PerizinanStatus string

const (
	StatusPending  PerizinanStatus = "pending"
	StatusApproved PerizinanStatus = "approved"
	StatusRejected PerizinanStatus = "rejected"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (PerizinanStatus, bool) {
	switch s := PerizinanStatus(raw); s {
	case StatusPending, StatusApproved, StatusRejected:
		return s, true
	}
	return "", false
}

// Perizinan is a student leave-pass request.
//
// DepartTime and ReturnTime hold the fixed-width "2006-01-02T15:04" form, so
// lexical comparison matches chronological comparison.
type Perizinan struct {
	ID          string          `json:"id"`
	SubjectName string          `json:"subjectName"`
	ClassName   string          `json:"className"`
	Dormitory   string          `json:"dormitory"`
	Reason      string          `json:"reason"`
	DepartTime  string          `json:"departTime"`
	ReturnTime  string          `json:"returnTime"`
	Status      PerizinanStatus `json:"status"`
	DocumentURL string          `json:"documentUrl,omitempty"`
}

// PerizinanField names a single editable field of a request.
type PerizinanField string

const (
	FieldSubjectName PerizinanField = "subjectName"
	FieldClassName   PerizinanField = "className"
	FieldDormitory   PerizinanField = "dormitory"
	FieldReason      PerizinanField = "reason"
	FieldDepartTime  PerizinanField = "departTime"
	FieldReturnTime  PerizinanField = "returnTime"
	FieldDocumentURL PerizinanField = "documentUrl"
	FieldStatus      PerizinanField = "status"
)

var editableFields = map[PerizinanField]bool{
	FieldSubjectName: true,
	FieldClassName:   true,
	FieldDormitory:   true,
	FieldReason:      true,
	FieldDepartTime:  true,
	FieldReturnTime:  true,
	FieldDocumentURL: true,
}

// ParseEditableField accepts every non-status field. Status changes go
// through the dedicated transition operation.
func ParseEditableField(raw string) (PerizinanField, error) {
	f := PerizinanField(raw)
	if !editableFields[f] {
		return "", fmt.Errorf("field %q is not editable", raw)
	}
	return f, nil
}

// Value returns the current value of field f.
func (p *Perizinan) Value(f PerizinanField) string {
	switch f {
	case FieldSubjectName:
		return p.SubjectName
	case FieldClassName:
		return p.ClassName
	case FieldDormitory:
		return p.Dormitory
	case FieldReason:
		return p.Reason
	case FieldDepartTime:
		return p.DepartTime
	case FieldReturnTime:
		return p.ReturnTime
	case FieldStatus:
		return string(p.Status)
	case FieldDocumentURL:
		return p.DocumentURL
	}
	return ""
}

// CreatePerizinanRequest is the payload for submitting a new request.
// When StudentID is set, name/class/dormitory are copied from the roster.
// A client-supplied status is ignored.
type CreatePerizinanRequest struct {
	StudentID   string `json:"studentId" binding:"omitempty,max=64"`
	SubjectName string `json:"subjectName" binding:"required_without=StudentID,max=255"`
	ClassName   string `json:"className" binding:"max=64"`
	Dormitory   string `json:"dormitory" binding:"max=128"`
	Reason      string `json:"reason" binding:"required,max=2000"`
	DepartTime  string `json:"departTime" binding:"required,datetime=2006-01-02T15:04"`
	ReturnTime  string `json:"returnTime" binding:"required,datetime=2006-01-02T15:04"`
	DocumentURL string `json:"documentUrl" binding:"omitempty,max=2048"`
	Status      string `json:"status"`
}

// UpdatePerizinanFieldRequest edits exactly one field.
type UpdatePerizinanFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value" binding:"max=2048"`
}

// UpdatePerizinanStatusRequest approves or rejects a request.
type UpdatePerizinanStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// Analytics aggregates requests for the admin report.
type Analytics struct {
	Total    int            `json:"total"`
	PerMonth [12]int        `json:"per_month"`
	PerClass map[string]int `json:"per_class"`
}
