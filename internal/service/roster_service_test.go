package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/perizinan-backend/internal/model"
	"github.com/stemsi/perizinan-backend/internal/policy"
	"github.com/stemsi/perizinan-backend/internal/repository"
	"github.com/stemsi/perizinan-backend/internal/store"
	"github.com/xuri/excelize/v2"
)

func newRosterService(t *testing.T) *RosterService {
	t.Helper()
	authz, err := policy.New()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	return NewRosterService(repository.NewStudentRepository(store.NewMemoryStore()), authz, zerolog.Nop())
}

func TestImportCSV(t *testing.T) {
	svc := newRosterService(t)
	ctx := context.Background()
	csv := "\ufeffNISN,NamaSiswa,Kelas,Gender,Asrama\n" +
		"0051,Ana,X-1,P,Asrama A\n" +
		"0052,,X-1,L,Asrama B\n" +
		"\n" +
		"0053,Budi,X-2,laki-laki,Asrama B\n" +
		"0054,Citra,X-3,x,Asrama C\n"

	result, err := svc.Import(ctx, model.RoleAdmin, "roster.csv", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 2 {
		t.Fatalf("Imported = %d, want 2", result.Imported)
	}
	if len(result.Skipped) != 2 || !strings.HasPrefix(result.Skipped[0], "baris 3:") || !strings.HasPrefix(result.Skipped[1], "baris 6:") {
		t.Fatalf("Skipped = %v", result.Skipped)
	}

	students, err := svc.List(ctx, model.RoleSubmitter)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(students) != 2 || students[0].Name != "Ana" || students[0].Gender != model.GenderFemale || students[1].Gender != model.GenderMale {
		t.Fatalf("List() = %+v", students)
	}
}

func TestImportXLSX(t *testing.T) {
	svc := newRosterService(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"nisn", "name", "class", "gender", "dormitory"},
		{"0061", "Dewi", "XI-1", "p", "Asrama D"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	f.Close()

	result, err := svc.Import(context.Background(), model.RoleAdmin, "ROSTER.XLSX", &buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if result.Imported != 1 || len(result.Skipped) != 0 {
		t.Fatalf("Import() = %+v", result)
	}
}

func TestImportRejectsBadInput(t *testing.T) {
	svc := newRosterService(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, model.RoleAdmin, "roster.csv", strings.NewReader("nisn,name,class\n1,A,X\n"))
	if !errors.Is(err, ErrInvalidRosterHeader) {
		t.Fatalf("missing column error = %v", err)
	}
	_, err = svc.Import(ctx, model.RoleAdmin, "roster.txt", strings.NewReader(""))
	if !errors.Is(err, ErrUnsupportedRoster) {
		t.Fatalf("unsupported extension error = %v", err)
	}
	_, err = svc.Import(ctx, model.RoleSubmitter, "roster.csv", strings.NewReader(RosterHeader+"\n"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("submitter import error = %v", err)
	}
}

func TestRosterUpdateField(t *testing.T) {
	svc := newRosterService(t)
	ctx := context.Background()
	st, err := svc.Create(ctx, model.RoleAdmin, model.CreateStudentRequest{NISN: "1", Name: "Eka", Class: "X-1", Gender: "L", Dormitory: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.UpdateField(ctx, model.RoleAdmin, st.ID, "class", "X-2"); err != nil {
		t.Fatalf("UpdateField: %v", err)
	}
	if err := svc.UpdateField(ctx, model.RoleAdmin, st.ID, "gender", "robot"); !errors.Is(err, ErrInvalidField) {
		t.Fatalf("bad gender error = %v", err)
	}
	if err := svc.UpdateField(ctx, model.RoleAdmin, "missing", "class", "X-3"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing student error = %v", err)
	}
	students, _ := svc.List(ctx, model.RoleAdmin)
	if students[0].Class != "X-2" {
		t.Fatalf("class = %q, want X-2", students[0].Class)
	}
}
