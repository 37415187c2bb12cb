package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/config"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ReportFormat is an export file format.
type ReportFormat string

const (
	FormatCSV  ReportFormat = "csv"
	FormatXLSX ReportFormat = "xlsx"
	FormatPDF  ReportFormat = "pdf"
)

// ContentType returns the MIME type of the format.
func (f ReportFormat) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

var requestExportHeader = []string{"id", "subjectName", "className", "dormitory", "reason", "departTime", "returnTime", "status", "documentUrl"}

func requestExportRow(p model.Perizinan) []string {
	return []string{p.ID, p.SubjectName, p.ClassName, p.Dormitory, p.Reason, p.DepartTime, p.ReturnTime, string(p.Status), p.DocumentURL}
}

// ReportService renders admin reports.
type ReportService struct {
	cfg       *config.Config
	perizinan *PerizinanService
	teachers  *repository.TeacherRepository
	schedules *repository.ScheduleRepository
	authz     Authorizer
	log       zerolog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(cfg *config.Config, perizinan *PerizinanService, teachers *repository.TeacherRepository, schedules *repository.ScheduleRepository, authz Authorizer, log zerolog.Logger) *ReportService {
	return &ReportService{
		cfg:       cfg,
		perizinan: perizinan,
		teachers:  teachers,
		schedules: schedules,
		authz:     authz,
		log:       log.With().Str("component", "report_service").Logger(),
	}
}

// ExportRequests writes the filtered and sorted request list in format.
func (s *ReportService) ExportRequests(ctx context.Context, actor model.Role, format ReportFormat, f Filter, sortSpec SortSpec, w io.Writer) error {
	if err := authorize(s.authz, actor, policy.ObjectReports, policy.ActionExport); err != nil {
		return err
	}
	all, err := s.perizinan.Load(ctx, actor)
	if err != nil {
		return err
	}
	requests := SortRequests(ApplyFilter(all, f), sortSpec)

	switch format {
	case FormatCSV:
		err = writeRequestsCSV(w, requests)
	case FormatXLSX:
		err = writeRequestsXLSX(w, requests)
	case FormatPDF:
		err = writeRequestsPDF(w, requests, s.cfg.PDFFontPath, s.cfg.SchoolName, time.Now())
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidField, format)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	s.log.Info().Str("format", string(format)).Int("rows", len(requests)).Msg("Requests exported")
	return nil
}

func writeRequestsCSV(w io.Writer, requests []model.Perizinan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(requestExportHeader); err != nil {
		return err
	}
	for _, p := range requests {
		if err := cw.Write(requestExportRow(p)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeRequestsXLSX(w io.Writer, requests []model.Perizinan) error {
	const sheet = "Perizinan"
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := writeSheetRow(f, sheet, 1, requestExportHeader); err != nil {
		return err
	}
	for i, p := range requests {
		if err := writeSheetRow(f, sheet, i+2, requestExportRow(p)); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(requestExportHeader), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "I", 20); err != nil {
		return err
	}
	return f.Write(w)
}

func writeSheetRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return f.SetSheetRow(sheet, cell, &cells)
}

// ExportTeachersCSV writes every account record as CSV.
func (s *ReportService) ExportTeachersCSV(ctx context.Context, actor model.Role, w io.Writer) error {
	if err := authorize(s.authz, actor, policy.ObjectReports, policy.ActionExport); err != nil {
		return err
	}
	teachers, err := s.teachers.List(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "name", "email", "role", "identityId"})
	for _, t := range teachers {
		_ = cw.Write([]string{t.ID, t.Name, t.Email, string(t.Role), t.IdentityID})
	}
	cw.Flush()
	return cw.Error()
}

// ExportSchedulesCSV writes every schedule as CSV. Staff ids are joined with ";".
func (s *ReportService) ExportSchedulesCSV(ctx context.Context, actor model.Role, w io.Writer) error {
	if err := authorize(s.authz, actor, policy.ObjectReports, policy.ActionExport); err != nil {
		return err
	}
	schedules, err := s.schedules.List(ctx)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "date", "approverStaffIds", "approverId"})
	for _, sc := range schedules {
		_ = cw.Write([]string{sc.ID, sc.Date, strings.Join(sc.StaffIDs, ";"), sc.ApproverID})
	}
	cw.Flush()
	return cw.Error()
}

// Analytics counts requests per departure month and per class.
func (s *ReportService) Analytics(ctx context.Context, actor model.Role) (*model.Analytics, error) {
	if err := authorize(s.authz, actor, policy.ObjectReports, policy.ActionExport); err != nil {
		return nil, err
	}
	requests, err := s.perizinan.Load(ctx, actor)
	if err != nil {
		return nil, err
	}
	return Analyze(requests), nil
}

// Analyze aggregates requests. Requests with an unparsable departure time
// count toward the total and their class only.
func Analyze(requests []model.Perizinan) *model.Analytics {
	a := &model.Analytics{PerClass: make(map[string]int)}
	for _, p := range requests {
		a.Total++
		if t, err := time.Parse(timeLayout, p.DepartTime); err == nil {
			a.PerMonth[t.Month()-1]++
		}
		a.PerClass[p.ClassName]++
	}
	return a
}
