// Package web serves the chat surface: one transcript page per customer
// and a single turn endpoint. Each turn runs the whole
// compose-call-extract-write sequence synchronously before replying.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dsakai3418/paybot/internal/customer"
	"github.com/dsakai3418/paybot/internal/gemini"
	"github.com/dsakai3418/paybot/internal/prompt"
	"github.com/dsakai3418/paybot/internal/session"
	"github.com/dsakai3418/paybot/internal/store"
	"github.com/dsakai3418/paybot/internal/syncer"
)

const sessionCookie = "paybot_session"

// Oracle produces one free-text assistant reply from the policy text, the
// prior turns and the newest user message.
type Oracle interface {
	Respond(ctx context.Context, system string, history []gemini.Message, userText string) (string, error)
}

type Deps struct {
	Store    store.RowStore
	Oracle   Oracle
	Sync     *syncer.Synchronizer
	Sessions *session.Registry
	Backend  string
	Model    string
	Logger   *slog.Logger
}

type Server struct {
	router *chi.Mux
	port   int
	deps   Deps
	now    func() time.Time
}

func NewServer(port int, deps Deps) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router: router,
		port:   port,
		deps:   deps,
		now:    time.Now,
	}

	router.Get("/", s.start)
	router.Post("/api/v1/chat", s.chat)
	router.Get("/health", s.health)
	router.Get("/api/v1/paybot/status", s.status)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.deps.Logger.Info("web server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// start looks the customer up by the id query parameter and opens (or
// resumes) their session. A missing id and an unknown id are distinct,
// session-fatal errors; no store write happens on either path.
func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		s.renderError(w, http.StatusBadRequest, "An access ID is required. Please use the link you were given.")
		return
	}

	// Reloading the page resumes the transcript rather than restarting it.
	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.deps.Sessions.Get(c.Value); ok && sess.Customer.CompanyID == id {
			s.renderChat(w, sess)
			return
		}
	}

	records, err := s.deps.Store.Records(r.Context())
	if err != nil {
		s.deps.Logger.Error("store read failed", "error", err)
		s.renderError(w, http.StatusBadGateway, "We could not reach the customer database. Please try again shortly.")
		return
	}

	rec, rowIndex, err := customer.Find(records, id)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			s.renderError(w, http.StatusNotFound, "We could not find your account. Please check the URL.")
			return
		}
		s.deps.Logger.Error("customer lookup failed", "error", err)
		s.renderError(w, http.StatusInternalServerError, "Something went wrong. Please try again shortly.")
		return
	}

	sess := s.deps.Sessions.Create(rec, rowIndex, prompt.Welcome(rec))
	s.deps.Logger.Info("session opened", "company_id", rec.CompanyID, "row", rowIndex, "session_id", sess.ID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.renderChat(w, sess)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// chat processes one user turn. The user's turn is recorded before the
// oracle call so a failed call leaves the transcript with the user's words
// but no assistant turn; resubmitting the same input retries the turn.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Your session has expired. Please reload the page.")
		return
	}
	sess, ok := s.deps.Sessions.Get(c.Value)
	if !ok {
		writeJSONError(w, http.StatusBadRequest, "Your session has expired. Please reload the page.")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid request.")
		return
	}
	text := strings.TrimSpace(req.Message)
	if text == "" {
		writeJSONError(w, http.StatusBadRequest, "Please enter a message.")
		return
	}

	s.deps.Sessions.Append(sess.ID, session.Turn{Role: session.RoleUser, Text: text})

	policy := prompt.Compose(sess.Customer, s.now())
	history := make([]gemini.Message, 0, len(sess.Transcript))
	for _, t := range sess.Transcript {
		history = append(history, gemini.Message{Role: t.Role, Text: t.Text})
	}

	raw, err := s.deps.Oracle.Respond(r.Context(), policy, history, text)
	if err != nil {
		s.deps.Logger.Error("oracle call failed", "company_id", sess.Customer.CompanyID, "error", err)
		writeJSONError(w, http.StatusBadGateway, "We could not generate a reply. Please resend your message.")
		return
	}

	display, err := s.deps.Sync.Apply(r.Context(), raw, sess.Customer, sess.RowIndex)
	if err != nil {
		s.deps.Logger.Error("store update failed", "company_id", sess.Customer.CompanyID, "error", err)
		writeJSONError(w, http.StatusBadGateway, "We could not record the result. Please resend your message.")
		return
	}

	s.deps.Sessions.Append(sess.ID, session.Turn{Role: session.RoleAssistant, Text: display})
	writeJSON(w, http.StatusOK, chatResponse{Reply: display})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "paybot",
		"store":   s.deps.Backend,
		"model":   s.deps.Model,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
