package patient

import (
	"context"
	"encoding/json"
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

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response body: %v", err)
	}
	return v
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

func seedPatient(t *testing.T, svc *Service) *Patient {
	t.Helper()
	p := &Patient{FirstName: "Asha", LastName: "Rao", Email: "asha@example.com"}
	if err := svc.CreatePatient(context.Background(), p); err != nil {
		t.Fatalf("seed patient: %v", err)
	}
	return p
}

func TestHandler_CreatePatient(t *testing.T) {
	h := newTestHandler()
	rec, err := do(h.CreatePatient, jsonReq(http.MethodPost,
		`{"first_name":"Asha","last_name":"Rao","email":"asha@example.com"}`))
	if err != nil {
		t.Fatalf("CreatePatient: %v", err)
	}
	wantStatus(t, rec, http.StatusCreated)
	if created := decode[Patient](t, rec); created.ID == uuid.Nil {
		t.Error("response should carry the generated id")
	}
}

func TestHandler_CreatePatient_RejectsIncompleteRecord(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.CreatePatient, jsonReq(http.MethodPost, `{"last_name":"Rao"}`))
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_GetPatient(t *testing.T) {
	h := newTestHandler()
	seeded := seedPatient(t, h.svc)

	rec, err := do(h.GetPatient, httptest.NewRequest(http.MethodGet, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("GetPatient: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)
	if got := decode[Patient](t, rec); got.Email != seeded.Email {
		t.Errorf("email = %q, want %q", got.Email, seeded.Email)
	}
}

func TestHandler_GetPatient_UnknownID(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.GetPatient, httptest.NewRequest(http.MethodGet, "/", nil),
		"id", uuid.NewString())
	wantHTTPError(t, err, http.StatusNotFound)
}

func TestHandler_GetPatient_MalformedID(t *testing.T) {
	h := newTestHandler()
	_, err := do(h.GetPatient, httptest.NewRequest(http.MethodGet, "/", nil),
		"id", "forty-two")
	wantHTTPError(t, err, http.StatusBadRequest)
}

func TestHandler_ListPatients(t *testing.T) {
	h := newTestHandler()
	seedPatient(t, h.svc)

	rec, err := do(h.ListPatients, httptest.NewRequest(http.MethodGet, "/?limit=10", nil))
	if err != nil {
		t.Fatalf("ListPatients: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)
	resp := decode[struct {
		Data  []*Patient `json:"data"`
		Total int        `json:"total"`
	}](t, rec)
	if resp.Total != 1 || len(resp.Data) != 1 {
		t.Fatalf("total = %d, len = %d, want 1 and 1", resp.Total, len(resp.Data))
	}
}

func TestHandler_UpdatePatient(t *testing.T) {
	h := newTestHandler()
	seeded := seedPatient(t, h.svc)

	rec, err := do(h.UpdatePatient,
		jsonReq(http.MethodPut, `{"first_name":"Asha","last_name":"Iyer","email":"asha@example.com"}`),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("UpdatePatient: %v", err)
	}
	wantStatus(t, rec, http.StatusOK)
	if got := decode[Patient](t, rec); got.LastName != "Iyer" {
		t.Errorf("last name = %q, want %q", got.LastName, "Iyer")
	}
}

func TestHandler_DeletePatient(t *testing.T) {
	h := newTestHandler()
	seeded := seedPatient(t, h.svc)

	rec, err := do(h.DeletePatient, httptest.NewRequest(http.MethodDelete, "/", nil),
		"id", seeded.ID.String())
	if err != nil {
		t.Fatalf("DeletePatient: %v", err)
	}
	wantStatus(t, rec, http.StatusNoContent)
	if _, err := h.svc.GetPatient(context.Background(), seeded.ID); err == nil {
		t.Error("record should be gone after deletion")
	}
}
