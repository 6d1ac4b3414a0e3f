package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"controlling_fluidics/internal/models"
	"controlling_fluidics/internal/sequencer"
	"controlling_fluidics/internal/service"
	"controlling_fluidics/internal/valves"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockValves struct {
	states    []valves.ValveState
	err       error
	toggleTo  string
	lastAlias string
	calls     []string
}

func (m *mockValves) List() []valves.ValveState { return m.states }
func (m *mockValves) Open(ctx context.Context, alias string) error {
	m.lastAlias = alias
	m.calls = append(m.calls, "open")
	return m.err
}
func (m *mockValves) Close(ctx context.Context, alias string) error {
	m.lastAlias = alias
	m.calls = append(m.calls, "close")
	return m.err
}
func (m *mockValves) Toggle(ctx context.Context, alias string) (string, error) {
	m.lastAlias = alias
	m.calls = append(m.calls, "toggle")
	return m.toggleTo, m.err
}
func (m *mockValves) OpenAll(ctx context.Context) error {
	m.calls = append(m.calls, "open-all")
	return m.err
}
func (m *mockValves) CloseAll(ctx context.Context) error {
	m.calls = append(m.calls, "close-all")
	return m.err
}
func (m *mockValves) Reset(ctx context.Context) error {
	m.calls = append(m.calls, "reset")
	return m.err
}

type mockScripts struct {
	summary   service.ScriptSummary
	stored    models.StoredScript
	list      []models.StoredScript
	err       error
	lastName  string
	lastText  string
	deleteErr error
}

func (m *mockScripts) Validate(text string) (service.ScriptSummary, error) {
	m.lastText = text
	return m.summary, m.err
}
func (m *mockScripts) Save(ctx context.Context, name, text string) (models.StoredScript, error) {
	m.lastName, m.lastText = name, text
	return m.stored, m.err
}
func (m *mockScripts) Get(ctx context.Context, name string) (models.StoredScript, error) {
	m.lastName = name
	return m.stored, m.err
}
func (m *mockScripts) List(ctx context.Context) ([]models.StoredScript, error) {
	return m.list, m.err
}
func (m *mockScripts) Delete(ctx context.Context, name string) error {
	m.lastName = name
	return m.deleteErr
}

type mockRunner struct {
	status     models.RunStatus
	loadErr    error
	signalErr  error
	unloadErr  error
	lastLoad   service.LoadParams
	lastSignal sequencer.Signal
	unloads    int
}

func (m *mockRunner) Load(ctx context.Context, p service.LoadParams) (models.RunStatus, error) {
	m.lastLoad = p
	return m.status, m.loadErr
}
func (m *mockRunner) Signal(ctx context.Context, sig sequencer.Signal) (models.RunStatus, error) {
	m.lastSignal = sig
	return m.status, m.signalErr
}
func (m *mockRunner) Unload(ctx context.Context) error {
	m.unloads++
	return m.unloadErr
}
func (m *mockRunner) Shutdown(ctx context.Context) error { return nil }
func (m *mockRunner) Status() models.RunStatus          { return m.status }

type mockEventLog struct {
	resp       []models.RunEvent
	err        error
	lastFilter service.LogFilter
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.RunEvent, error) {
	m.lastFilter = f
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

// doAuthed sends a request with a valid bearer token and records the response.
func doAuthed(r http.Handler, method, target, contentType, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
