package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeListener struct {
	userID   string
	payloads [][]byte
	err      error
	stopped  bool
}

func (f *fakeListener) Listen(_ context.Context, userID string) (<-chan []byte, func() error, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.userID = userID
	ch := make(chan []byte, len(f.payloads))
	for _, payload := range f.payloads {
		ch <- payload
	}
	close(ch)
	return ch, func() error {
		f.stopped = true
		return nil
	}, nil
}

func TestStreamRelaysPayloads(t *testing.T) {
	userID := uuid.New()
	listener := &fakeListener{payloads: [][]byte{[]byte(`{"message":"Feed delivery tomorrow"}`)}}
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/notifications/user/x/stream", nil), "userId", userID.String())
	resp := httptest.NewRecorder()

	StreamNotifications(listener, time.Minute, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := resp.Body.String()
	if !strings.HasPrefix(body, ": connected\n\n") {
		t.Fatalf("missing preamble: %q", body)
	}
	if !strings.Contains(body, "event: notification\ndata: {\"message\":\"Feed delivery tomorrow\"}\n\n") {
		t.Fatalf("missing event: %q", body)
	}
	if listener.userID != userID.String() || !listener.stopped {
		t.Fatalf("listener not used correctly: %+v", listener)
	}
}

func TestStreamRejectsInvalidUser(t *testing.T) {
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/notifications/user/x/stream", nil), "userId", "nope")
	resp := httptest.NewRecorder()
	StreamNotifications(&fakeListener{}, time.Minute, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestStreamSubscribeFailure(t *testing.T) {
	req := addRouteParam(httptest.NewRequest(http.MethodGet, "/api/notifications/user/x/stream", nil), "userId", uuid.NewString())
	resp := httptest.NewRecorder()
	StreamNotifications(&fakeListener{err: errors.New("redis down")}, time.Minute, testLogger())(resp, req)

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
