package model

import "strings"

// Gender represents the student's gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts the English values and the Indonesian spellings used
// in roster spreadsheets.
func ParseGender(raw string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "l", "laki-laki", "laki laki":
		return GenderMale, true
	case "female", "p", "perempuan":
		return GenderFemale, true
	}
	return "", false
}

// Student is a roster entry.
type Student struct {
	ID        string `json:"id"`
	NISN      string `json:"nisn"`
	Name      string `json:"name"`
	Class     string `json:"class"`
	Gender    Gender `json:"gender"`
	Dormitory string `json:"dormitory"`
}

// CreateStudentRequest is the payload for adding a roster entry.
type CreateStudentRequest struct {
	NISN      string `json:"nisn" binding:"required,min=4,max=20"`
	Name      string `json:"name" binding:"required,max=255"`
	Class     string `json:"class" binding:"required,max=64"`
	Gender    string `json:"gender" binding:"required"`
	Dormitory string `json:"dormitory" binding:"required,max=128"`
}

// UpdateStudentFieldRequest edits one roster field.
type UpdateStudentFieldRequest struct {
	Field string `json:"field" binding:"required,oneof=nisn name class gender dormitory"`
	Value string `json:"value" binding:"required,max=255"`
}

// ImportResult summarizes a roster import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  []string `json:"skipped,omitempty"`
}
