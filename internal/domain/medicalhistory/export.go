package medicalhistory

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
)

// Export formats accepted by the export endpoint.
const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ValidFormats is the allowlist the format parameter is checked against.
var ValidFormats = map[string]bool{FormatCSV: true, FormatPDF: true}

var csvHeader = []string{"type", "date", "title", "status", "record_id"}

// WriteCSV renders the entries as CSV in the order given, one row per
// entry after a header row.
func WriteCSV(w io.Writer, entries []*TimelineEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, e := range entries {
		row := []string{
			e.Type,
			e.Date.UTC().Format(time.RFC3339),
			e.Title,
			entryStatus(e),
			entryID(e).String(),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF renders the entries as a single-table PDF document.
func WritePDF(w io.Writer, patientID uuid.UUID, entries []*TimelineEntry) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Medical History", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "Medical History")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 9)
	pdf.Cell(0, 5, fmt.Sprintf("Patient %s, %d entries, generated %s",
		patientID, len(entries), time.Now().UTC().Format("2006-01-02")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(26, 6, "Date", "B", 0, "L", false, 0, "")
	pdf.CellFormat(28, 6, "Type", "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Entry", "B", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, e := range entries {
		pdf.CellFormat(26, 6, e.Date.UTC().Format("2006-01-02"), "", 0, "L", false, 0, "")
		pdf.CellFormat(28, 6, e.Type, "", 0, "L", false, 0, "")
		line := e.Title
		if st := entryStatus(e); st != "" {
			line = fmt.Sprintf("%s [%s]", line, st)
		}
		pdf.MultiCell(0, 6, line, "", "L", false)
	}
	return pdf.Output(w)
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// ExportFilename builds the attachment filename for a patient's export,
// reduced to characters safe inside a Content-Disposition header.
func ExportFilename(patientID uuid.UUID, format string) string {
	name := fmt.Sprintf("medical-history-%s.%s", patientID, format)
	return unsafeFilename.ReplaceAllString(name, "-")
}

// entryStatus reads the per-type status field; documents have none.
func entryStatus(e *TimelineEntry) string {
	switch {
	case e.Booking != nil:
		return e.Booking.Status
	case e.Prescription != nil:
		return e.Prescription.Status
	case e.Consultation != nil:
		return e.Consultation.Status
	default:
		return ""
	}
}

func entryID(e *TimelineEntry) uuid.UUID {
	switch {
	case e.Booking != nil:
		return e.Booking.ID
	case e.Prescription != nil:
		return e.Prescription.ID
	case e.Document != nil:
		return e.Document.ID
	case e.Consultation != nil:
		return e.Consultation.ID
	default:
		return uuid.Nil
	}
}
