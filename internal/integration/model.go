package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Reply is one scripted Messages API response. A zero Status means 200.
type Reply struct {
	Text   string `yaml:"text"`
	Status int    `yaml:"status"`
}

// FakeModel is a Messages API stand-in that answers with scripted replies
// in order and repeats the last one once the script runs out.
type FakeModel struct {
	server *httptest.Server

	mu      sync.Mutex
	replies []Reply
	prompts []string
}

// NewFakeModel starts a fake model server that is closed with the test.
func NewFakeModel(t *testing.T, replies ...Reply) *FakeModel {
	t.Helper()
	m := &FakeModel{replies: replies}
	m.server = httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(m.server.Close)
	return m
}

// BaseURL is the API root to configure the generator with.
func (m *FakeModel) BaseURL() string {
	return m.server.URL + "/v1"
}

// Calls returns how many requests were answered.
func (m *FakeModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns the user message of every request, in order.
func (m *FakeModel) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

type fakeRequest struct {
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func (m *FakeModel) serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/v1/messages" {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("x-api-key") == "" {
		writeError(w, http.StatusUnauthorized, "missing x-api-key")
		return
	}

	var req fakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	reply := m.next(req.Messages[len(req.Messages)-1].Content)
	if reply.Status != 0 && reply.Status != http.StatusOK {
		writeError(w, reply.Status, "scripted failure")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]string{{"type": "text", "text": reply.Text}},
		"stop_reason": "end_turn",
	})
}

// next records content and picks the reply for this call.
func (m *FakeModel) next(content string) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, content)
	if len(m.replies) == 0 {
		return Reply{Text: "You are a helpful assistant. Answer the request."}
	}
	i := min(len(m.prompts), len(m.replies)) - 1
	return m.replies[i]
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":  "error",
		"error": map[string]string{"type": "api_error", "message": msg},
	})
}
