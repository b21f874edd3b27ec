package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dsakai3418/paybot/internal/customer"
	"github.com/dsakai3418/paybot/internal/gemini"
	"github.com/dsakai3418/paybot/internal/session"
	"github.com/dsakai3418/paybot/internal/syncer"
)

type cell struct {
	row, col int
}

type fakeStore struct {
	records    []map[string]string
	cells      map[cell]string
	readErr    error
	writeCount int
}

func (f *fakeStore) Records(ctx context.Context) ([]map[string]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.records, nil
}

func (f *fakeStore) UpdateCell(ctx context.Context, row, col int, value string) error {
	if f.cells == nil {
		f.cells = make(map[cell]string)
	}
	f.writeCount++
	f.cells[cell{row, col}] = value
	return nil
}

type fakeOracle struct {
	reply string
	err   error

	gotSystem string
	gotTurns  int
}

func (f *fakeOracle) Respond(ctx context.Context, system string, history []gemini.Message, userText string) (string, error) {
	f.gotSystem = system
	f.gotTurns = len(history)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(st *fakeStore, oracle *fakeOracle) (*Server, *session.Registry) {
	sessions := session.NewRegistry()
	deps := Deps{
		Store:    st,
		Oracle:   oracle,
		Sync:     syncer.New(st, nil, discardLogger()),
		Sessions: sessions,
		Backend:  "fake",
		Model:    "test-model",
		Logger:   discardLogger(),
	}
	return NewServer(8650, deps), sessions
}

func storeWithCustomer() *fakeStore {
	return &fakeStore{
		records: []map[string]string{
			{customer.HeaderCompanyID: "41", customer.HeaderCompanyName: "Other Co"},
			{
				customer.HeaderCompanyID:     "42",
				customer.HeaderCompanyName:   "Acme Trading",
				customer.HeaderExistingEmail: "billing@acme.example",
				customer.HeaderUnpaidAmount:  "11000",
			},
		},
	}
}

func openSession(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest("GET", "/?id=42", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 opening session, got %d", w.Code)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func postChat(srv *Server, cookie *http.Cookie, message string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"message": message})
	req := httptest.NewRequest("POST", "/api/v1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(storeWithCustomer(), &fakeOracle{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(storeWithCustomer(), &fakeOracle{})

	req := httptest.NewRequest("GET", "/api/v1/paybot/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["service"] != "paybot" {
		t.Errorf("expected service paybot, got %q", body["service"])
	}
	if body["store"] != "fake" {
		t.Errorf("expected store fake, got %q", body["store"])
	}
}

func TestStart_MissingID(t *testing.T) {
	st := storeWithCustomer()
	srv, _ := newTestServer(st, &fakeOracle{})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "access ID is required") {
		t.Errorf("expected missing-id message, got %q", w.Body.String())
	}
	if st.writeCount != 0 {
		t.Error("missing id must not touch the store")
	}
}

func TestStart_UnknownID(t *testing.T) {
	st := storeWithCustomer()
	srv, _ := newTestServer(st, &fakeOracle{})

	req := httptest.NewRequest("GET", "/?id=999", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "could not find your account") {
		t.Errorf("expected not-found message, got %q", body)
	}
	// Distinct from the missing-id wording.
	if strings.Contains(body, "access ID is required") {
		t.Error("not-found message must differ from the missing-id message")
	}
	if st.writeCount != 0 {
		t.Error("unknown id must not touch the store")
	}
}

func TestStart_StoreUnreachable(t *testing.T) {
	st := storeWithCustomer()
	st.readErr = errors.New("connection refused")
	srv, _ := newTestServer(st, &fakeOracle{})

	req := httptest.NewRequest("GET", "/?id=42", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
}

func TestStart_RendersWelcome(t *testing.T) {
	srv, _ := newTestServer(storeWithCustomer(), &fakeOracle{})

	req := httptest.NewRequest("GET", "/?id=42", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Acme Trading") {
		t.Error("chat page missing company name")
	}
	if !strings.Contains(body, "11,000") {
		t.Error("chat page missing formatted amount")
	}
}

func TestChat_FullTurn(t *testing.T) {
	st := storeWithCustomer()
	oracle := &fakeOracle{reply: "Understood. Our staff will follow up. [EMAIL_RECEIVED:accounts@acme.example]"}
	srv, sessions := newTestServer(st, oracle)

	cookie := openSession(t, srv)
	w := postChat(srv, cookie, "Please use accounts@acme.example instead")

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp chatResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.Contains(resp.Reply, "[") {
		t.Errorf("reply leaked tags: %q", resp.Reply)
	}

	// Customer "42" is the second data row, so row 3 in the store.
	if got := st.cells[cell{3, customer.ColNewEmail}]; got != "accounts@acme.example" {
		t.Errorf("expected new email written to row 3, got %q", got)
	}
	if got := st.cells[cell{3, customer.ColStatus}]; got != customer.StatusEmailPending {
		t.Errorf("expected status email-pending, got %q", got)
	}

	// The oracle saw the policy text and only the prior turns.
	if !strings.Contains(oracle.gotSystem, "Acme Trading") {
		t.Error("policy text missing customer context")
	}
	if oracle.gotTurns != 1 {
		t.Errorf("expected 1 prior turn (welcome), got %d", oracle.gotTurns)
	}

	sess, _ := sessions.Get(cookie.Value)
	if len(sess.Transcript) != 3 {
		t.Fatalf("expected 3 turns after one exchange, got %d", len(sess.Transcript))
	}
	if sess.Transcript[2].Role != session.RoleAssistant || strings.Contains(sess.Transcript[2].Text, "[") {
		t.Errorf("assistant turn must be tag-free, got %+v", sess.Transcript[2])
	}
}

func TestChat_OracleFailureKeepsUserTurn(t *testing.T) {
	st := storeWithCustomer()
	oracle := &fakeOracle{err: errors.New("deadline exceeded")}
	srv, sessions := newTestServer(st, oracle)

	cookie := openSession(t, srv)
	w := postChat(srv, cookie, "hello?")

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", w.Code)
	}
	if st.writeCount != 0 {
		t.Error("failed oracle call must not write to the store")
	}

	sess, _ := sessions.Get(cookie.Value)
	if len(sess.Transcript) != 2 {
		t.Fatalf("expected welcome + user turn, got %d turns", len(sess.Transcript))
	}
	if sess.Transcript[1].Role != session.RoleUser || sess.Transcript[1].Text != "hello?" {
		t.Errorf("user turn must remain recorded, got %+v", sess.Transcript[1])
	}
}

func TestChat_NoSession(t *testing.T) {
	srv, _ := newTestServer(storeWithCustomer(), &fakeOracle{reply: "hi"})

	w := postChat(srv, nil, "hello")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	srv, _ := newTestServer(storeWithCustomer(), &fakeOracle{reply: "hi"})

	cookie := openSession(t, srv)
	w := postChat(srv, cookie, "   ")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestStart_ReloadResumesSession(t *testing.T) {
	st := storeWithCustomer()
	oracle := &fakeOracle{reply: "Noted."}
	srv, _ := newTestServer(st, oracle)

	cookie := openSession(t, srv)
	postChat(srv, cookie, "I will pay on Friday")

	req := httptest.NewRequest("GET", "/?id=42", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "I will pay on Friday") {
		t.Error("reload must re-render the existing transcript")
	}
}
