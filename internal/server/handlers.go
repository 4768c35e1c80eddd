package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/abhisek/cardquiz/internal/content"
	"github.com/abhisek/cardquiz/internal/quiz"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errBadSession  = errors.New("invalid session id")
)

// sessionView is the JSON shape of a session.
type sessionView struct {
	ID         string         `json:"id"`
	State      quiz.State     `json:"state"`
	Options    []content.Item `json:"options"`
	ActiveStep quiz.Step      `json:"active_step"`
	Busy       bool           `json:"busy"`
	Accuracy   float64        `json:"accuracy"`
	StageIndex int            `json:"stage_index"`
}

func newSessionView(id uuid.UUID, st quiz.State) sessionView {
	opts := quiz.Options(st)
	if opts == nil {
		opts = []content.Item{}
	}
	return sessionView{
		ID:         id.String(),
		State:      st,
		Options:    opts,
		ActiveStep: quiz.ActiveStep(st),
		Busy:       quiz.Busy(st),
		Accuracy:   quiz.Accuracy(st),
		StageIndex: quiz.StageIndex(st),
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type resetRequest struct {
	KeepHistory bool `json:"keep_history"`
}

type previewRequest struct {
	Topic      string       `json:"topic"`
	Difficulty float64      `json:"difficulty"`
	Reference  content.Item `json:"reference"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.len(),
	})
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	sess, err := s.sessions.create()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusCreated, newSessionView(sess.id, sess.engine.Snapshot()))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess.id, sess.engine.Snapshot()))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadSession)
		return
	}
	if err := s.sessions.remove(id); err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitTopic(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, r, quiz.SubmitTopic{Text: req.Text})
}

func (s *Server) selectCard(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, quiz.SelectCard{ID: chi.URLParam(r, "cardID")})
}

func (s *Server) submitExplanation(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, r, quiz.SubmitExplanation{Text: req.Text})
}

func (s *Server) skipExplanation(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, quiz.SkipExplanation{})
}

func (s *Server) selectOption(w http.ResponseWriter, r *http.Request) {
	s.dispatch(w, r, quiz.SelectOption{ID: chi.URLParam(r, "optionID")})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.dispatch(w, r, quiz.Reset{KeepHistory: req.KeepHistory})
}

func (s *Server) imageURL(w http.ResponseWriter, r *http.Request) {
	desc := strings.TrimSpace(r.URL.Query().Get("description"))
	if desc == "" {
		writeError(w, http.StatusBadRequest, errors.New("description is required"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"description": desc,
		"url":         s.images.URL(r.Context(), desc),
	})
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	kind, ok := content.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown content kind %q", chi.URLParam(r, "kind")))
		return
	}
	var req previewRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, errors.New("topic is required"))
		return
	}
	if field := content.ReferenceField(kind); field != "" && content.ReferenceValue(kind, req.Reference) == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("reference.%s is required", field))
		return
	}
	if req.Difficulty <= 0 {
		req.Difficulty = 1
	}

	batch, err := s.content.Generate(r.Context(), kind, req.Topic, req.Difficulty, req.Reference)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

// dispatch sends ev to the session's engine and answers with the state that
// followed it.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, ev quiz.Event) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}

	err := sess.engine.Dispatch(r.Context(), ev)
	var rejected *quiz.RejectedError
	switch {
	case err == nil:
	case errors.As(err, &rejected):
		writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, quiz.ErrStopped):
		writeError(w, http.StatusGone, err)
		return
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusRequestTimeout, err)
		return
	default:
		s.log.Error("dispatch failed", "session", sess.id.String(), "event", ev.EventName(), "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionView(sess.id, sess.engine.Snapshot()))
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errBadSession)
		return nil, false
	}
	sess, err := s.sessions.get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return nil, false
	}
	return sess, true
}

// decode reads a JSON body. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<16))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
