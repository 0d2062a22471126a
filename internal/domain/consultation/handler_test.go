package consultation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() *Handler {
	return NewHandler(newTestService())
}

// do feeds one request through a handler func and captures the result.
// pathParams alternates name, value.
func do(fn echo.HandlerFunc, req *http.Request, pathParams ...string) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	names := make([]string, 0, len(pathParams)/2)
	values := make([]string, 0, len(pathParams)/2)
	for i := 0; i+1 < len(pathParams); i += 2 {
		names = append(names, pathParams[i])
		values = append(values, pathParams[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, fn(c)
}

func jsonReq(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d", rec.Code, want)
	}
}

func wantHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	if err == nil {
		t.Fatal("want an HTTP error, got none")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("want *echo.HTTPError, got %T", err)
	}
	if httpErr.Code != code {
		t.Fatalf("error code = %d, want %d", httpErr.Code, code)
	}
}

func seedConsultation(t *testing.T, svc *Service, mode string) *Consultation {
	t.Helper()
	con := &Consultation{PatientID: uuid.New(), DoctorID: uuid.New(), Mode: mode}
	if err := svc.CreateConsultation(context.Background(), con); err != nil {
		t.Fatalf("seed consultation: %v", err)
	}
	return con
}

func TestHandler_CreateConsultation(t *testing.T) {
	h := newTestHandler()
	body := fmt.Sprintf(`{"patient_id":%q,"doctor_id":%q,"mode":"video"}`,
		uuid.NewString(), uuid.NewString())

	rec, err := do(h.CreateConsultation, jsonReq(http.MethodPost, body))
	if err != nil {
		t.Fatalf("CreateConsultation: %v", err)
	}
	wantStatus(t, rec, http.StatusCreated)

	var created Consultation
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if created.Status != "scheduled" {
		t.Errorf("status = %q, want a new consultation to default to scheduled", created.Status)
	}
}

func TestHandler_CreateConsultation_UnknownMode(t *testing.T) {
	h := newTestHandler()
	body := fmt.Sprintf(`{"patient_id":%q,"doctor_id":%q,"mode":"fax"}`,
		uuid.NewString(), uuid.NewString())
	_, err := do(h.CreateConsultation, jsonReq(http.MethodPost, body))
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_GetConsultation_UnknownID(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.GetConsultation, httptest.NewRequest(http.MethodGet, "/", nil),
		"id", uuid.NewString())
	wantHTTPError(t, err, http.StatusNotFound)
}

func TestHandler_StartConsultation(t *testing.T) {
	h := newTestHandler()
	seeded := seedConsultation(t, h.svc, "video")

	rec, err := do(h.StartConsultation, httptest.NewRequest(http.MethodPut, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("StartConsultation: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)

	var got Consultation
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if got.Status != "in_progress" {
		t.Errorf("status = %q, want in_progress", got.Status)
	}
	if got.StartedAt == nil {
		t.Error("started_at should be stamped when the visit begins")
	}
}

func TestHandler_EndConsultation_RequiresInProgress(t *testing.T) {
	h := newTestHandler()
	seeded := seedConsultation(t, h.svc, "video")

	_, err := do(h.EndConsultation, httptest.NewRequest(http.MethodPut, "/", nil),
		"id", seeded.ID.String())
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_DeleteConsultation(t *testing.T) {
	h := newTestHandler()
	seeded := seedConsultation(t, h.svc, "phone")

	rec, err := do(h.DeleteConsultation, httptest.NewRequest(http.MethodDelete, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("DeleteConsultation: %v", err)
	}
	wantStatus(t, rec, http.StatusNoContent)
	if _, err := h.svc.GetConsultation(context.Background(), seeded.ID); err == nil {
		t.Error("record should be gone after deletion")
	}
}
