package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"controlling_fluidics/internal/service"
	"controlling_fluidics/internal/valves"
)

func TestValveHandlers_ListAndActions(t *testing.T) {
	mv := &mockValves{
		states: []valves.ValveState{
			{Alias: "waste", Solenoid: 1, State: valves.StateOpen},
			{Alias: "reagent", Solenoid: 2, State: valves.StateClosed},
		},
		toggleTo: valves.StateClosed,
	}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Valves: mv}
	r := newTestRouter(s)

	// list requires auth
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/valves", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	w = doAuthed(r, http.MethodGet, "/api/v1/valves", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
	var list struct {
		Count  int                 `json:"count"`
		Valves []valves.ValveState `json:"valves"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Count != 2 || list.Valves[0].Alias != "waste" {
		t.Fatalf("unexpected list: %+v", list)
	}

	cases := []struct {
		path   string
		call   string
		status string
	}{
		{"/api/v1/valves/waste/open", "open", statusOpened},
		{"/api/v1/valves/waste/close", "close", statusClosed},
		{"/api/v1/valves/waste/toggle", "toggle", valves.StateClosed},
		{"/api/v1/valves/open-all", "open-all", statusOpened},
		{"/api/v1/valves/close-all", "close-all", statusClosed},
		{"/api/v1/valves/reset", "reset", statusReset},
	}
	for _, tc := range cases {
		w := doAuthed(r, http.MethodPost, tc.path, "", "")
		if w.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", tc.path, w.Code, w.Body.String())
		}
		if got := mv.calls[len(mv.calls)-1]; got != tc.call {
			t.Fatalf("%s called %q, want %q", tc.path, got, tc.call)
		}
		var resp struct {
			Status string              `json:"status"`
			Valves []valves.ValveState `json:"valves"`
		}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Status != tc.status || len(resp.Valves) != 2 {
			t.Fatalf("%s unexpected response: %+v", tc.path, resp)
		}
	}
	if mv.lastAlias != "waste" {
		t.Fatalf("alias not passed through: %q", mv.lastAlias)
	}
}

func TestValveHandlers_ErrorMapping(t *testing.T) {
	mv := &mockValves{err: fmt.Errorf("%w: %q", service.ErrUnknownValve, "nope")}
	s := &service.Service{Authorization: &mockAuth{parseID: 1}, Valves: mv}
	r := newTestRouter(s)

	w := doAuthed(r, http.MethodPost, "/api/v1/valves/nope/open", "", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown valve: expected 404, got %d", w.Code)
	}

	mv.err = fmt.Errorf("write solenoid 3: %w", errors.New("broker unreachable"))
	w = doAuthed(r, http.MethodPost, "/api/v1/valves/reset", "", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("driver failure: expected 500, got %d", w.Code)
	}
	var out map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out["error"] != errInternal {
		t.Fatalf("internal errors must not leak details: %q", out["error"])
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}
