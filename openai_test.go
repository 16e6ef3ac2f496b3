package dailyai

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/stretchr/testify/require"
)

// fakeOpenAI serves the endpoints used by this package. Handlers receive the
// decoded request body; the first rateLimited calls get HTTP 429.
type fakeOpenAI struct {
	server      *httptest.Server
	calls       atomic.Int32
	rateLimited int32
}

func newFakeOpenAI(t *testing.T, handlers map[string]func(body map[string]any) any) *fakeOpenAI {
	t.Helper()
	f := &fakeOpenAI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := f.calls.Add(1)
		if n <= f.rateLimited {
			w.Header().Set("Retry-After", "0")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
			return
		}

		handler, ok := handlers[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

// client points Config at the fake server and returns a client for it
func (f *fakeOpenAI) client(t *testing.T) openai.Client {
	t.Helper()
	origURL, origKey := Config.OpenAIBaseURL, Config.OpenAIAPIKey
	origRetry := llmRetry
	t.Cleanup(func() {
		Config.OpenAIBaseURL, Config.OpenAIAPIKey = origURL, origKey
		llmRetry = origRetry
	})

	Config.OpenAIBaseURL = f.server.URL
	Config.OpenAIAPIKey = "test"
	llmRetry = retryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	return NewOpenAIClient()
}

// stringsOf converts a decoded JSON array into strings
func stringsOf(t *testing.T, v any) []string {
	t.Helper()
	raw, ok := v.([]any)
	require.True(t, ok, "expected array, got %T", v)
	out := make([]string, len(raw))
	for i, s := range raw {
		out[i] = s.(string)
	}
	return out
}
