package dashboard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ombhardwajj/avni-server/internal/platform/auth"
)

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req = req.WithContext(auth.WithUserContext(context.Background(), admin))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Edit(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, PrimaryDashboard: true})
	repo.add(GroupDashboard{ID: 2, UUID: "gd-2", GroupID: 1, DashboardID: 11})
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, `{"groupId":1,"dashboardId":11,"primaryDashboard":true}`), rec)
	c.SetParamNames("id")
	c.SetParamValues("2")
	if err := h.Edit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if repo.rows[1].PrimaryDashboard {
		t.Error("expected demotion through the handler")
	}
}

func TestHandler_Save_InvalidReference(t *testing.T) {
	svc, _ := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	err := h.Save(e.NewContext(jsonRequest(http.MethodPost, `[{"groupId":5,"dashboardId":10}]`), httptest.NewRecorder()))
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Delete(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 4, UUID: "gd-4", GroupID: 1, DashboardID: 10})
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodDelete, ""), rec)
	c.SetParamNames("id")
	c.SetParamValues("4")
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent || !repo.rows[4].Voided {
		t.Errorf("expected voided row and 204, got %d", rec.Code)
	}

	c = e.NewContext(jsonRequest(http.MethodDelete, ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")
	httpErr, ok := h.Delete(c).(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Error("expected 400 for non-numeric id")
	}
}

func TestHandler_SaveFromBundle(t *testing.T) {
	svc, repo := newTestService()
	h := NewHandler(svc)
	e := echo.New()

	body := `[{"uuid":"gd-x","groupUUID":"g-super","dashboardUUID":"d-tb","secondaryDashboard":true}]`
	rec := httptest.NewRecorder()
	if err := h.SaveFromBundle(e.NewContext(jsonRequest(http.MethodPost, body), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if n := repo.count(2, isSecondary); n != 1 {
		t.Errorf("expected imported secondary, got %d", n)
	}
}

func TestHandler_ListByGroup(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 2, DashboardID: 12, DashboardName: "TB"})
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("2")
	if err := h.ListByGroup(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"dashboardName":"TB"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_Changed(t *testing.T) {
	svc, repo := newTestService()
	repo.add(GroupDashboard{ID: 1, UUID: "gd-1", GroupID: 1, DashboardID: 10, LastModifiedAt: repo.now})
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?since=2024-01-01T00:00:00Z", nil), rec)
	if err := h.Changed(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"changed":true}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?since=yesterday", nil), httptest.NewRecorder())
	httpErr, ok := h.Changed(c).(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Error("expected 400 for bad since")
	}
}
