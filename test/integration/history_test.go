package integration

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/carehub/carehub/internal/domain/booking"
	"github.com/carehub/carehub/internal/domain/consultation"
	"github.com/carehub/carehub/internal/domain/document"
	"github.com/carehub/carehub/internal/domain/medicalhistory"
	"github.com/carehub/carehub/internal/domain/prescription"
	"github.com/carehub/carehub/internal/platform/blobstore"
)

// seedHistory creates one patient with one record of each type, pinned to
// known offsets from now: booking 30 days ago, prescription 20 days ago,
// consultation 10 days ago, document at upload time.
func seedHistory(t *testing.T, ctx context.Context) (uuid.UUID, *medicalhistory.Service) {
	t.Helper()
	pool := globalDB.Pool

	hosp := newTestHospital(t, ctx, "Summit Medical")
	p := newTestPatient(t, ctx, "Elena", "Ferro")
	doctorID := uuid.New()
	now := time.Now().UTC()

	bookingRepo := booking.NewBookingRepoPG(pool)
	bookingSvc := booking.NewService(bookingRepo)
	if err := bookingSvc.CreateBooking(ctx, &booking.Booking{
		PatientID:     p.ID,
		HospitalID:    hosp.ID,
		Kind:          "appointment",
		Status:        "completed",
		ScheduledTime: now.AddDate(0, 0, -30),
		Reason:        ptrStr("annual checkup"),
	}); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	prescriptionRepo := prescription.NewPrescriptionRepoPG(pool)
	prescriptionSvc := prescription.NewService(prescriptionRepo)
	if err := prescriptionSvc.CreatePrescription(ctx, &prescription.Prescription{
		PatientID:  p.ID,
		DoctorID:   doctorID,
		Medication: "Amoxicillin",
		Dosage:     "500mg",
		Status:     "active",
		IssuedAt:   now.AddDate(0, 0, -20),
	}); err != nil {
		t.Fatalf("seed prescription: %v", err)
	}

	consultationRepo := consultation.NewConsultationRepoPG(pool)
	consultationSvc := consultation.NewService(consultationRepo)
	if err := consultationSvc.CreateConsultation(ctx, &consultation.Consultation{
		PatientID: p.ID,
		DoctorID:  doctorID,
		Mode:      "video",
		Status:    "completed",
		StartedAt: ptrTime(now.AddDate(0, 0, -10)),
		Diagnosis: ptrStr("mild sinusitis"),
	}); err != nil {
		t.Fatalf("seed consultation: %v", err)
	}

	documentRepo := document.NewDocumentRepoPG(pool)
	documentSvc := document.NewService(documentRepo, blobstore.NewInMemoryBlobStore())
	if err := documentSvc.UploadDocument(ctx, &document.Document{
		PatientID:   p.ID,
		UploaderID:  doctorID,
		Title:       "Blood panel",
		Category:    "lab-report",
		FileName:    "blood-panel.pdf",
		ContentType: "application/pdf",
	}, strings.NewReader("%PDF-1.4 test")); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	svc := medicalhistory.NewService(bookingRepo, prescriptionRepo, documentRepo, consultationRepo)
	return p.ID, svc
}

// TestMedicalHistoryTimeline assembles a patient's records from all four
// stores and checks merge order, filters, metrics and export against the
// real schema.
func TestMedicalHistoryTimeline(t *testing.T) {
	ctx := context.Background()
	patientID, svc := seedHistory(t, ctx)
	now := time.Now().UTC()

	t.Run("MergedNewestFirst", func(t *testing.T) {
		tl, err := svc.GetTimeline(ctx, patientID, medicalhistory.Filter{})
		if err != nil {
			t.Fatalf("get timeline: %v", err)
		}
		if tl.Total != 4 {
			t.Fatalf("expected 4 entries, got %d", tl.Total)
		}
		if len(tl.Degraded) != 0 {
			t.Fatalf("expected no degraded sources, got %v", tl.Degraded)
		}
		wantTypes := []string{
			medicalhistory.TypeDocument,
			medicalhistory.TypeConsultation,
			medicalhistory.TypePrescription,
			medicalhistory.TypeBooking,
		}
		for i, want := range wantTypes {
			if tl.Entries[i].Type != want {
				t.Errorf("entry %d: expected type %s, got %s", i, want, tl.Entries[i].Type)
			}
		}
		for i := 1; i < len(tl.Entries); i++ {
			if tl.Entries[i].Date.After(tl.Entries[i-1].Date) {
				t.Errorf("entries out of order at %d", i)
			}
		}
	})

	t.Run("TypeFilter", func(t *testing.T) {
		tl, err := svc.GetTimeline(ctx, patientID, medicalhistory.Filter{Type: medicalhistory.TypePrescription})
		if err != nil {
			t.Fatalf("get timeline: %v", err)
		}
		if tl.Total != 1 {
			t.Fatalf("expected 1 prescription entry, got %d", tl.Total)
		}
		e := tl.Entries[0]
		if e.Prescription == nil || e.Prescription.Medication != "Amoxicillin" {
			t.Error("prescription details missing or wrong")
		}
	})

	t.Run("DateWindow", func(t *testing.T) {
		// A window from 25 to 5 days ago keeps the prescription and the
		// consultation, dropping the older booking and the fresh document.
		from := now.AddDate(0, 0, -25)
		to := now.AddDate(0, 0, -5)
		tl, err := svc.GetTimeline(ctx, patientID, medicalhistory.Filter{From: &from, To: &to})
		if err != nil {
			t.Fatalf("get timeline: %v", err)
		}
		if tl.Total != 2 {
			t.Fatalf("expected 2 entries in window, got %d", tl.Total)
		}
		if tl.Entries[0].Type != medicalhistory.TypeConsultation ||
			tl.Entries[1].Type != medicalhistory.TypePrescription {
			t.Errorf("unexpected windowed types: %s, %s", tl.Entries[0].Type, tl.Entries[1].Type)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		tl, err := svc.GetTimeline(ctx, patientID, medicalhistory.Filter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("get timeline: %v", err)
		}
		if tl.Total != 4 {
			t.Errorf("total should count before slicing, got %d", tl.Total)
		}
		if len(tl.Entries) != 2 {
			t.Fatalf("expected 2 sliced entries, got %d", len(tl.Entries))
		}
		if tl.Entries[0].Type != medicalhistory.TypePrescription {
			t.Errorf("expected prescription at offset 2, got %s", tl.Entries[0].Type)
		}
	})

	t.Run("Metrics", func(t *testing.T) {
		tl, err := svc.FullHistory(ctx, patientID, "", nil, nil)
		if err != nil {
			t.Fatalf("full history: %v", err)
		}
		summary := medicalhistory.Summarize(tl.Entries)
		if summary.Total != 4 {
			t.Errorf("expected total 4, got %d", summary.Total)
		}
		sum := 0
		for _, typ := range medicalhistory.EntryTypes {
			count, ok := summary.Counts[typ]
			if !ok {
				t.Errorf("missing count for %s", typ)
			}
			sum += count
		}
		if sum != summary.Total {
			t.Errorf("counts sum %d != total %d", sum, summary.Total)
		}
	})

	t.Run("ExportCSV", func(t *testing.T) {
		tl, err := svc.FullHistory(ctx, patientID, "", nil, nil)
		if err != nil {
			t.Fatalf("full history: %v", err)
		}
		var buf bytes.Buffer
		if err := medicalhistory.WriteCSV(&buf, tl.Entries); err != nil {
			t.Fatalf("write csv: %v", err)
		}
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 5 {
			t.Fatalf("expected header plus 4 rows, got %d lines", len(lines))
		}
		if !strings.Contains(lines[0], "type") {
			t.Errorf("unexpected csv header: %s", lines[0])
		}
	})
}

// TestMedicalHistoryEmptyPatient verifies that a patient without records gets
// an empty timeline, not an error.
func TestMedicalHistoryEmptyPatient(t *testing.T) {
	ctx := context.Background()
	pool := globalDB.Pool

	p := newTestPatient(t, ctx, "Noah", "Quinn")

	svc := medicalhistory.NewService(
		booking.NewBookingRepoPG(pool),
		prescription.NewPrescriptionRepoPG(pool),
		document.NewDocumentRepoPG(pool),
		consultation.NewConsultationRepoPG(pool),
	)

	tl, err := svc.GetTimeline(ctx, p.ID, medicalhistory.Filter{})
	if err != nil {
		t.Fatalf("get timeline: %v", err)
	}
	if tl.Total != 0 || len(tl.Entries) != 0 {
		t.Fatalf("expected empty timeline, got %d entries", tl.Total)
	}
}
