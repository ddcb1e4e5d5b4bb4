package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"i4.energy/across/vmu/dispatch"
	"i4.energy/across/vmu/modem"
	"i4.energy/across/vmu/notify"
)

// Server handles incoming HTTP requests for operating the modem engine
type Server struct {
	Logger *slog.Logger
	Engine dispatch.Controller
	Queue  *notify.Queue
	Outbox *modem.Outbox
	// Token, when set, must be presented as a bearer token
	Token string
	// Limit throttles POST /sms; nil accepts every request
	Limit *RateLimiter
}

// ServeHTTP implements the http.Handler interface for the Server struct
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /status", s.authorized(s.handleStatus))
	mux.HandleFunc("GET /outbox", s.authorized(s.handleOutbox))
	mux.HandleFunc("POST /notify", s.authorized(s.handleNotify))
	mux.HandleFunc("POST /sms", s.authorized(s.handleSMS))
	mux.HandleFunc("POST /stop", s.authorized(s.handleStop))
	mux.ServeHTTP(w, r)
}

func (s *Server) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Token != "" {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token != s.Token {
				s.sendError(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	if message == "" {
		w.WriteHeader(statusCode)
		return
	}

	type ErrorResponse struct {
		Message string `json:"message"`
	}
	resp := ErrorResponse{Message: message}
	s.sendJSON(w, resp, statusCode)
}

func (s *Server) sendJSON(w http.ResponseWriter, v any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Warn("Failed to write response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleStatus reports the modem engine status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, s.Engine.Status(), http.StatusOK)
}

// handleOutbox lists the messages waiting for the modem
func (s *Server) handleOutbox(w http.ResponseWriter, r *http.Request) {
	msgs := s.Outbox.Snapshot()
	if msgs == nil {
		msgs = []modem.Message{}
	}
	s.sendJSON(w, msgs, http.StatusOK)
}

// handleNotify requests a server notification, as vehicle logic would
func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	type NotifyRequest struct {
		Kind string `json:"kind"`
		Code int    `json:"code"`
		Data int    `json:"data"`
	}

	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	kind, ok := notify.ParseKind(req.Kind)
	if !ok {
		s.sendError(w, "unknown notification kind '"+req.Kind+"'", http.StatusBadRequest)
		return
	}

	status := "queued"
	if kind == notify.KindErrorCode {
		if !s.Queue.RequestError(req.Code, req.Data) {
			status = "suppressed"
		}
	} else {
		s.Queue.Request(kind)
	}

	s.Logger.Info("Notification requested", "kind", kind, "status", status)
	s.sendJSON(w, map[string]string{"status": status}, http.StatusAccepted)
}

// SMSRequest is an SMS to queue, accepted over HTTP and MQTT
type SMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

func (req SMSRequest) valid() bool {
	return req.To != "" && req.Message != ""
}

// handleSMS queues an SMS for the modem
func (s *Server) handleSMS(w http.ResponseWriter, r *http.Request) {
	var req SMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !req.valid() {
		s.sendError(w, "both 'to' and 'message' fields are required", http.StatusBadRequest)
		return
	}

	if !s.Limit.Allow() {
		s.sendError(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if !s.Outbox.Push(modem.Message{Kind: modem.MessageSMS, To: req.To, Text: req.Message}) {
		s.Logger.Warn("Outbox full, SMS rejected", "to", req.To)
		s.sendError(w, "outbox full", http.StatusServiceUnavailable)
		return
	}

	s.Logger.Info("SMS queued", "to", req.To, "message_length", len(req.Message))
	s.sendJSON(w, map[string]string{"status": "queued"}, http.StatusAccepted)
}

// handleStop requests a controlled device reset
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Stop(r.Context()); err != nil {
		s.Logger.Error("Failed to stop modem", "error", err)
		s.sendError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	s.Logger.Info("Device reset requested")
	s.sendJSON(w, map[string]string{"status": "stopping"}, http.StatusAccepted)
}

// RateLimiter allows a fixed number of events in any sliding minute
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window []time.Time
	now    func() time.Time
}

// NewRateLimiter allows perMinute events per minute; zero or less disables
// the limit
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{limit: perMinute, now: time.Now}
}

// Allow records an event and reports whether it is within the limit
func (l *RateLimiter) Allow() bool {
	if l == nil || l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cut := now.Add(-time.Minute)
	kept := l.window[:0]
	for _, t := range l.window {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	l.window = kept

	if len(l.window) >= l.limit {
		return false
	}
	l.window = append(l.window, now)
	return true
}
