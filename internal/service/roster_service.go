package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

// Sentinel errors for roster imports.
var (
	ErrInvalidRosterHeader = errors.New("invalid roster header")
	ErrUnsupportedRoster   = errors.New("unsupported roster file")
)

// RosterHeader is the header row expected in roster files.
const RosterHeader = "nisn,namasiswa,kelas,gender,asrama"

var rosterColumns = map[string]string{
	"nisn":      "nisn",
	"namasiswa": "name",
	"name":      "name",
	"kelas":     "class",
	"class":     "class",
	"gender":    "gender",
	"asrama":    "dormitory",
	"dormitory": "dormitory",
}

var rosterFields = []string{"nisn", "name", "class", "gender", "dormitory"}

// RosterService manages the student roster.
type RosterService struct {
	students *repository.StudentRepository
	authz    Authorizer
	log      zerolog.Logger
}

// NewRosterService creates a new RosterService.
func NewRosterService(students *repository.StudentRepository, authz Authorizer, log zerolog.Logger) *RosterService {
	return &RosterService{
		students: students,
		authz:    authz,
		log:      log.With().Str("component", "roster_service").Logger(),
	}
}

// List returns the roster.
func (s *RosterService) List(ctx context.Context, actor model.Role) ([]model.Student, error) {
	if err := authorize(s.authz, actor, policy.ObjectStudents, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.students.List(ctx)
}

// Create adds a roster entry.
func (s *RosterService) Create(ctx context.Context, actor model.Role, req model.CreateStudentRequest) (*model.Student, error) {
	if err := authorize(s.authz, actor, policy.ObjectStudents, policy.ActionManage); err != nil {
		return nil, err
	}
	gender, ok := model.ParseGender(req.Gender)
	if !ok {
		return nil, fmt.Errorf("%w: gender %q", ErrInvalidField, req.Gender)
	}
	st := &model.Student{
		NISN:      strings.TrimSpace(req.NISN),
		Name:      strings.TrimSpace(req.Name),
		Class:     strings.TrimSpace(req.Class),
		Gender:    gender,
		Dormitory: strings.TrimSpace(req.Dormitory),
	}
	if err := s.students.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create student: %w", err)
	}
	return st, nil
}

// UpdateField edits one roster field.
func (s *RosterService) UpdateField(ctx context.Context, actor model.Role, id, field, value string) error {
	if err := authorize(s.authz, actor, policy.ObjectStudents, policy.ActionManage); err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	switch field {
	case "gender":
		g, ok := model.ParseGender(value)
		if !ok {
			return fmt.Errorf("%w: gender %q", ErrInvalidField, value)
		}
		value = string(g)
	case "nisn", "name", "class", "dormitory":
		if value == "" {
			return fmt.Errorf("%w: %s must not be empty", ErrInvalidField, field)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	if err := s.students.SetField(ctx, id, field, value); err != nil {
		return notFound(err)
	}
	return nil
}

// Delete removes a roster entry.
func (s *RosterService) Delete(ctx context.Context, actor model.Role, id string) error {
	if err := authorize(s.authz, actor, policy.ObjectStudents, policy.ActionManage); err != nil {
		return err
	}
	return s.students.Delete(ctx, id)
}

// Import appends the rows of a CSV or XLSX roster file. Rows with missing
// values or an unknown gender are skipped and reported.
func (s *RosterService) Import(ctx context.Context, actor model.Role, filename string, r io.Reader) (*model.ImportResult, error) {
	if err := authorize(s.authz, actor, policy.ObjectStudents, policy.ActionManage); err != nil {
		return nil, err
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSVRows(r)
	case ".xlsx":
		rows, err = readXLSXRows(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRoster, filename)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidRosterHeader)
	}

	index, err := rosterIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := &model.ImportResult{}
	for n, row := range rows[1:] {
		line := n + 2
		if isBlank(row) {
			continue
		}
		values := make(map[string]string, len(rosterFields))
		missing := ""
		for _, field := range rosterFields {
			i := index[field]
			if i < len(row) {
				values[field] = strings.TrimSpace(row[i])
			}
			if values[field] == "" && missing == "" {
				missing = field
			}
		}
		if missing != "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("baris %d: %s kosong", line, missing))
			continue
		}
		gender, ok := model.ParseGender(values["gender"])
		if !ok {
			result.Skipped = append(result.Skipped, fmt.Sprintf("baris %d: gender %q tidak dikenal", line, values["gender"]))
			continue
		}

		st := &model.Student{
			NISN:      values["nisn"],
			Name:      values["name"],
			Class:     values["class"],
			Gender:    gender,
			Dormitory: values["dormitory"],
		}
		if err := s.students.Create(ctx, st); err != nil {
			return result, fmt.Errorf("import line %d: %w", line, err)
		}
		result.Imported++
	}

	s.log.Info().
		Str("file", filename).
		Int("imported", result.Imported).
		Int("skipped", len(result.Skipped)).
		Msg("Roster imported")
	return result, nil
}

func rosterIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(rosterFields))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := rosterColumns[key]; ok {
			if _, dup := index[field]; !dup {
				index[field] = i
			}
		}
	}
	for _, field := range rosterFields {
		if _, ok := index[field]; !ok {
			return nil, fmt.Errorf("%w: expected %s", ErrInvalidRosterHeader, RosterHeader)
		}
	}
	return index, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

func readXLSXRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrUnsupportedRoster)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	return rows, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
