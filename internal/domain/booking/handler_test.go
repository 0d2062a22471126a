package booking

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

func seedAppointment(t *testing.T, svc *Service) *Booking {
	t.Helper()
	b := &Booking{PatientID: uuid.New(), HospitalID: uuid.New(), Kind: "appointment"}
	if err := svc.CreateBooking(context.Background(), b); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return b
}

func TestHandler_CreateBooking(t *testing.T) {
	h := newTestHandler()
	body := fmt.Sprintf(`{"patient_id":%q,"hospital_id":%q,"kind":"appointment"}`,
		uuid.NewString(), uuid.NewString())

	rec, err := do(h.CreateBooking, jsonReq(http.MethodPost, body))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	wantStatus(t, rec, http.StatusCreated)

	var created Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if created.Status != "pending" {
		t.Errorf("status = %q, want a new booking to default to pending", created.Status)
	}
}

func TestHandler_CreateBooking_InpatientNeedsBedRequest(t *testing.T) {
	h := newTestHandler()
	body := fmt.Sprintf(`{"patient_id":%q,"hospital_id":%q,"kind":"inpatient","priority":"HIGH"}`,
		uuid.NewString(), uuid.NewString())
	_, err := do(h.CreateBooking, jsonReq(http.MethodPost, body))
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_GetBooking_UnknownID(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.GetBooking, httptest.NewRequest(http.MethodGet, "/", nil),
		"id", uuid.NewString())
	wantHTTPError(t, err, http.StatusNotFound)
}

func TestHandler_GetBooking_MalformedID(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.GetBooking, httptest.NewRequest(http.MethodGet, "/", nil),
		"id", "ward-7")
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_ConfirmBooking(t *testing.T) {
	h := newTestHandler()
	seeded := seedAppointment(t, h.svc)

	rec, err := do(h.ConfirmBooking, httptest.NewRequest(http.MethodPut, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("ConfirmBooking: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)

	var got Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if got.Status != "confirmed" {
		t.Errorf("status = %q, want confirmed", got.Status)
	}
}

func TestHandler_ConfirmBooking_Twice(t *testing.T) {
	h := newTestHandler()
	seeded := seedAppointment(t, h.svc)
	if _, err := h.svc.ConfirmBooking(context.Background(), seeded.ID); err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	_, err := do(h.ConfirmBooking, httptest.NewRequest(http.MethodPut, "/", nil),
		"id", seeded.ID.String())
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_CancelBooking(t *testing.T) {
	h := newTestHandler()
	seeded := seedAppointment(t, h.svc)

	rec, err := do(h.CancelBooking, httptest.NewRequest(http.MethodPut, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("CancelBooking: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)

	var got Booking
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if got.Status != "cancelled" {
		t.Errorf("status = %q, want cancelled", got.Status)
	}
}

func TestHandler_ListBookings_ByPatient(t *testing.T) {
	h := newTestHandler()
	mine := seedAppointment(t, h.svc)
	seedAppointment(t, h.svc)

	target := "/?patient_id=" + mine.PatientID.String()
	rec, err := do(h.ListBookings, httptest.NewRequest(http.MethodGet, target, nil))
	if err != nil {
		t.Fatalf("ListBookings: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)

	var page struct {
		Data  []*Booking `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("total = %d, len = %d, want the one seeded booking", page.Total, len(page.Data))
	}
	if page.Data[0].ID != mine.ID {
		t.Error("listing returned someone else's booking")
	}
}

func TestHandler_ListBookings_MalformedPatientID(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.ListBookings, httptest.NewRequest(http.MethodGet, "/?patient_id=nope", nil))
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_DeleteBooking(t *testing.T) {
	h := newTestHandler()
	seeded := seedAppointment(t, h.svc)

	rec, err := do(h.DeleteBooking, httptest.NewRequest(http.MethodDelete, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("DeleteBooking: %v", err)
	}
	wantStatus(t, rec, http.StatusNoContent)
	if _, err := h.svc.GetBooking(context.Background(), seeded.ID); err == nil {
		t.Error("record should be gone after deletion")
	}
}
