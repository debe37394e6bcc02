package billing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func createInvoiceViaHandler(t *testing.T, h *Handler, e *echo.Echo, body string) Invoice {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.CreateInvoice(e.NewContext(req, rec)); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var inv Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatal(err)
	}
	return inv
}

func TestHandler_CreateInvoice(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":"` + uuid.NewString() + `","items":[
		{"kind":"service","name":"Admission Fee","quantity":1,"unit_price":"600.00"},
		{"kind":"service","name":"Room 101","quantity":1,"unit_price":"1500.00"}]}`
	inv := createInvoiceViaHandler(t, h, e, body)

	if !inv.Total.Equal(dec("2520.00")) {
		t.Errorf("total = %s, want 2520.00", inv.Total)
	}
	if !strings.HasPrefix(inv.Number, "INV-") {
		t.Errorf("number = %q", inv.Number)
	}
}

func TestHandler_CreateInvoice_BadItem(t *testing.T) {
	h, e := newTestHandler()
	body := `{"patient_id":"` + uuid.NewString() + `","items":[
		{"kind":"service","name":"","quantity":0,"unit_price":"10.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err := h.CreateInvoice(e.NewContext(req, httptest.NewRecorder()))
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_RecordPayment(t *testing.T) {
	h, e := newTestHandler()
	inv := createInvoiceViaHandler(t, h, e,
		`{"patient_id":"`+uuid.NewString()+`","items":[{"kind":"service","name":"Consultation","quantity":1,"unit_price":"100.00"}]}`)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"120.00","method":"Cash"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(inv.ID.String())

	if err := h.RecordPayment(c); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var p Payment
	json.Unmarshal(rec.Body.Bytes(), &p)
	if !strings.HasPrefix(p.Number, "PAY-") {
		t.Errorf("payment number = %q", p.Number)
	}
}

func TestHandler_GetInvoice_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.NewString())

	err := h.GetInvoice(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
}
