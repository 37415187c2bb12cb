package service

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/signintech/gopdf"
	"github.com/stemsi/perizinan-backend/internal/model"
)

// ErrFontMissing is returned when the PDF font file cannot be read.
var ErrFontMissing = errors.New("pdf font not found")

// RowsPerPage is the number of requests on one PDF page.
const RowsPerPage = 20

const (
	pdfMargin    = 40.0
	pdfRowHeight = 18.0
	pdfTableTop  = 110.0
	pdfFont      = "body"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Nama Siswa", 95},
	{"Kelas", 45},
	{"Asrama", 65},
	{"Alasan", 120},
	{"Keluar", 70},
	{"Kembali", 70},
	{"Status", 50},
}

func pdfRow(p model.Perizinan) []string {
	return []string{p.SubjectName, p.ClassName, p.Dormitory, p.Reason, p.DepartTime, p.ReturnTime, string(p.Status)}
}

// writeRequestsPDF renders the report with a header (school, title, date)
// and a "Page n of m" footer on every page.
func writeRequestsPDF(w io.Writer, requests []model.Perizinan, fontPath, school string, now time.Time) error {
	if _, err := os.Stat(fontPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFontMissing, fontPath)
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	if err := pdf.AddTTFFont(pdfFont, fontPath); err != nil {
		return fmt.Errorf("load font: %w", err)
	}

	pages := (len(requests) + RowsPerPage - 1) / RowsPerPage
	if pages == 0 {
		pages = 1
	}

	for page := 0; page < pages; page++ {
		pdf.AddPage()
		if err := pdfHeader(pdf, school, now); err != nil {
			return err
		}

		start := page * RowsPerPage
		end := start + RowsPerPage
		if end > len(requests) {
			end = len(requests)
		}
		if err := pdfTable(pdf, requests[start:end]); err != nil {
			return err
		}
		if err := pdfFooter(pdf, page+1, pages); err != nil {
			return err
		}
	}

	_, err := pdf.WriteTo(w)
	return err
}

func pdfHeader(pdf *gopdf.GoPdf, school string, now time.Time) error {
	pdf.SetTextColor(0, 102, 204)
	if err := pdfText(pdf, 16, pdfMargin, pdfMargin, school); err != nil {
		return err
	}
	pdf.SetTextColor(0, 0, 0)
	if err := pdfText(pdf, 13, pdfMargin, pdfMargin+26, "Perizinan Report"); err != nil {
		return err
	}
	pdf.SetTextColor(100, 100, 100)
	err := pdfText(pdf, 9, pdfMargin, pdfMargin+44, "Generated on: "+now.Format("2006-01-02"))
	pdf.SetTextColor(0, 0, 0)
	return err
}

func pdfTable(pdf *gopdf.GoPdf, rows []model.Perizinan) error {
	if err := pdf.SetFont(pdfFont, "", 9); err != nil {
		return err
	}

	y := pdfTableTop
	x := pdfMargin
	pdf.SetFillColor(0, 102, 204)
	for _, col := range pdfColumns {
		pdf.RectFromUpperLeftWithStyle(x, y, col.width, pdfRowHeight, "F")
		x += col.width
	}
	pdf.SetTextColor(255, 255, 255)
	x = pdfMargin
	for _, col := range pdfColumns {
		if err := pdfCell(pdf, x, y, col.width, col.title); err != nil {
			return err
		}
		x += col.width
	}
	pdf.SetTextColor(0, 0, 0)

	for i, p := range rows {
		y += pdfRowHeight
		if i%2 == 1 {
			x = pdfMargin
			pdf.SetFillColor(245, 245, 245)
			for _, col := range pdfColumns {
				pdf.RectFromUpperLeftWithStyle(x, y, col.width, pdfRowHeight, "F")
				x += col.width
			}
		}
		x = pdfMargin
		for j, v := range pdfRow(p) {
			if err := pdfCell(pdf, x, y, pdfColumns[j].width, v); err != nil {
				return err
			}
			x += pdfColumns[j].width
		}
	}
	return nil
}

func pdfFooter(pdf *gopdf.GoPdf, page, pages int) error {
	h := gopdf.PageSizeA4.H
	return pdfText(pdf, 10, pdfMargin, h-30, fmt.Sprintf("Page %d of %d", page, pages))
}

func pdfText(pdf *gopdf.GoPdf, size float64, x, y float64, text string) error {
	if err := pdf.SetFont(pdfFont, "", size); err != nil {
		return err
	}
	pdf.SetXY(x, y)
	return pdf.Cell(nil, text)
}

// pdfCell writes text clipped to the column width.
func pdfCell(pdf *gopdf.GoPdf, x, y, width float64, text string) error {
	pdf.SetXY(x+3, y+5)
	return pdf.Cell(&gopdf.Rect{W: width - 6, H: pdfRowHeight - 6}, clip(pdf, text, width-6))
}

func clip(pdf *gopdf.GoPdf, text string, width float64) string {
	if w, err := pdf.MeasureTextWidth(text); err != nil || w <= width {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + ".."
		if w, err := pdf.MeasureTextWidth(candidate); err == nil && w <= width {
			return candidate
		}
	}
	return ""
}
