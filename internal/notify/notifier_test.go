package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubSender records deliveries and optionally fails.
type stubSender struct {
	name   string
	err    error
	titles []string
}

func (s *stubSender) Send(_ context.Context, title, _ string) error {
	if s.err != nil {
		return s.err
	}
	s.titles = append(s.titles, title)
	return nil
}

func (s *stubSender) Name() string { return s.name }

func TestNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers to every sender", func(t *testing.T) {
		a := &stubSender{name: "a"}
		b := &stubSender{name: "b"}
		n := NewNotifier([]Sender{a, b}, nil, testLogger())

		require.NoError(t, n.Notify(ctx, "execution_failed", "Execution failed", "details"))
		assert.Equal(t, []string{"Execution failed"}, a.titles)
		assert.Equal(t, []string{"Execution failed"}, b.titles)
	})

	t.Run("event filter drops unlisted events", func(t *testing.T) {
		a := &stubSender{name: "a"}
		n := NewNotifier([]Sender{a}, []string{"execution_failed"}, testLogger())

		require.NoError(t, n.Notify(ctx, "opportunity_detected", "New opportunity", "details"))
		assert.Empty(t, a.titles)

		require.NoError(t, n.Notify(ctx, "execution_failed", "Execution failed", "details"))
		assert.Len(t, a.titles, 1)
	})

	t.Run("one broken channel does not block the others", func(t *testing.T) {
		broken := &stubSender{name: "broken", err: errors.New("rate limited")}
		working := &stubSender{name: "working"}
		n := NewNotifier([]Sender{broken, working}, nil, testLogger())

		err := n.Notify(ctx, "execution_failed", "Execution failed", "details")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broken")
		assert.Len(t, working.titles, 1)
	})

	t.Run("no senders is a no-op", func(t *testing.T) {
		n := NewNotifier(nil, nil, testLogger())
		assert.NoError(t, n.Notify(ctx, "execution_failed", "t", "m"))
	})
}

func TestDiscordSender(t *testing.T) {
	t.Run("posts the webhook payload", func(t *testing.T) {
		var gotBody []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotBody, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		s := NewDiscordSender(server.URL)
		require.NoError(t, s.Send(context.Background(), "Execution failed", "details"))
		assert.Contains(t, string(gotBody), "Execution failed")
		assert.Contains(t, string(gotBody), "details")
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad webhook", http.StatusBadRequest)
		}))
		defer server.Close()

		s := NewDiscordSender(server.URL)
		assert.Error(t, s.Send(context.Background(), "t", "m"))
	})
}
