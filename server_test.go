package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gomock "go.uber.org/mock/gomock"
	"i4.energy/across/vmu/dispatch"
	"i4.energy/across/vmu/modem"
	"i4.energy/across/vmu/notify"
)

func newTestServer(t *testing.T) (*Server, *dispatch.MockController) {
	t.Helper()
	ctrl := gomock.NewController(t)
	engine := dispatch.NewMockController(ctrl)
	return &Server{
		Logger: slog.New(slog.DiscardHandler),
		Engine: engine,
		Queue:  notify.NewQueue(),
		Outbox: modem.NewOutbox(2),
	}, engine
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func TestHandleStatus(t *testing.T) {
	s, engine := newTestServer(t)
	engine.EXPECT().Status().Return(modem.Status{
		State:     modem.StateReady,
		Indicator: modem.Indicator{Phase: modem.PhaseReady},
		Carrier:   "T-Mobile D",
		Link:      true,
	})

	w := serve(s, http.MethodGet, "/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var got map[string]any
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if got["state"] != "Ready" || got["carrier"] != "T-Mobile D" || got["link"] != true {
		t.Errorf("Unexpected status %v", got)
	}
	if _, ok := got["clock"]; ok {
		t.Error("Expected zero clock to be omitted")
	}
	indicator, _ := got["indicator"].(map[string]any)
	if indicator["phase"] != "ready" || indicator["error"] != "none" {
		t.Errorf("Unexpected indicator %v", indicator)
	}
}

func TestHandleSMS(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		prefill      int
		expectedCode int
		expectedLen  int
	}{
		{
			name:         "Queued",
			body:         `{"to":"+4917","message":"hello"}`,
			expectedCode: http.StatusAccepted,
			expectedLen:  1,
		},
		{
			name:         "Bad JSON",
			body:         `{"to":`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Missing message",
			body:         `{"to":"+4917"}`,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "Outbox full",
			body:         `{"to":"+4917","message":"hello"}`,
			prefill:      2,
			expectedCode: http.StatusServiceUnavailable,
			expectedLen:  2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			for range tt.prefill {
				s.Outbox.Push(modem.Message{Kind: modem.MessageSMS, To: "+1", Text: "x"})
			}

			w := serve(s, http.MethodPost, "/sms", tt.body)
			if w.Code != tt.expectedCode {
				t.Errorf("Expected %d, got %d", tt.expectedCode, w.Code)
			}
			if got := s.Outbox.Len(); got != tt.expectedLen {
				t.Errorf("Expected %d queued, got %d", tt.expectedLen, got)
			}
		})
	}
}

func TestHandleSMSRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	s.Outbox = modem.NewOutbox(10)
	s.Limit = NewRateLimiter(2)

	for i, expected := range []int{http.StatusAccepted, http.StatusAccepted, http.StatusTooManyRequests} {
		w := serve(s, http.MethodPost, "/sms", `{"to":"+4917","message":"hello"}`)
		if w.Code != expected {
			t.Errorf("Request %d: expected %d, got %d", i, expected, w.Code)
		}
	}
}

func TestHandleNotify(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name         string
		body         string
		expectedCode int
		status       string
	}{
		{"Status", `{"kind":"status"}`, http.StatusAccepted, "queued"},
		{"Error code", `{"kind":"error","code":4,"data":2}`, http.StatusAccepted, "queued"},
		{"Repeated error code", `{"kind":"error","code":4,"data":2}`, http.StatusAccepted, "suppressed"},
		{"Unknown kind", `{"kind":"weather"}`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, http.MethodPost, "/notify", tt.body)
			if w.Code != tt.expectedCode {
				t.Fatalf("Expected %d, got %d", tt.expectedCode, w.Code)
			}
			if tt.status == "" {
				return
			}
			var got map[string]string
			json.NewDecoder(w.Body).Decode(&got)
			if got["status"] != tt.status {
				t.Errorf("Expected %s, got %s", tt.status, got["status"])
			}
		})
	}

	expected := []notify.Kind{notify.KindErrorCode, notify.KindStatus}
	got := s.Queue.Pending()
	if len(got) != len(expected) || got[0] != expected[0] || got[1] != expected[1] {
		t.Errorf("Expected pending %v, got %v", expected, got)
	}
}

func TestHandleStop(t *testing.T) {
	t.Run("Accepted", func(t *testing.T) {
		s, engine := newTestServer(t)
		engine.EXPECT().Stop(gomock.Any()).Return(nil)

		if w := serve(s, http.MethodPost, "/stop", ""); w.Code != http.StatusAccepted {
			t.Errorf("Expected 202, got %d", w.Code)
		}
	})

	t.Run("Not running", func(t *testing.T) {
		s, engine := newTestServer(t)
		engine.EXPECT().Stop(gomock.Any()).Return(ErrNotRunning)

		w := serve(s, http.MethodPost, "/stop", "")
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected 503, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), ErrNotRunning.Error()) {
			t.Errorf("Expected error message, got %s", w.Body.String())
		}
	})
}

func TestHandleOutbox(t *testing.T) {
	s, _ := newTestServer(t)

	w := serve(s, http.MethodGet, "/outbox", "")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("Expected empty list, got %s", w.Body.String())
	}

	s.Outbox.Push(modem.Message{Kind: modem.MessageUSSD, Text: "*100#"})
	w = serve(s, http.MethodGet, "/outbox", "")
	expected := `[{"kind":"ussd","text":"*100#"}]`
	if strings.TrimSpace(w.Body.String()) != expected {
		t.Errorf("Expected %s, got %s", expected, w.Body.String())
	}
}

func TestAuthorization(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		header       string
		expectedCode int
	}{
		{"Missing token", "/outbox", "", http.StatusUnauthorized},
		{"Wrong token", "/outbox", "Bearer nope", http.StatusUnauthorized},
		{"Wrong scheme", "/outbox", "Basic secret", http.StatusUnauthorized},
		{"Valid token", "/outbox", "Bearer secret", http.StatusOK},
		{"Health is open", "/healthz", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t)
			s.Token = "secret"

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			s.ServeHTTP(w, req)

			if w.Code != tt.expectedCode {
				t.Errorf("Expected %d, got %d", tt.expectedCode, w.Code)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	if w := serve(s, http.MethodGet, "/sms", ""); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	l := NewRateLimiter(2)
	l.now = func() time.Time { return now }

	if !l.Allow() || !l.Allow() {
		t.Fatal("Expected the first two events to pass")
	}
	if l.Allow() {
		t.Error("Expected the third event in the same minute to be limited")
	}

	now = now.Add(61 * time.Second)
	if !l.Allow() {
		t.Error("Expected the window to slide")
	}

	var unlimited *RateLimiter
	if !unlimited.Allow() || !NewRateLimiter(0).Allow() {
		t.Error("Expected nil and zero limiters to allow everything")
	}
}
