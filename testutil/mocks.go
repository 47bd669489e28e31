package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

// MockOpenDotaServer serves canned match documents under /api/matches/{id}.
type MockOpenDotaServer struct {
	*httptest.Server
	Matches  map[string]any
	Requests atomic.Int64
	// LastAPIKey is the api_key query value of the most recent request.
	LastAPIKey atomic.Value
}

// NewMockOpenDotaServer creates a new mock match API server.
func NewMockOpenDotaServer(t *testing.T) *MockOpenDotaServer {
	t.Helper()
	m := &MockOpenDotaServer{
		Matches: make(map[string]any),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Requests.Add(1)
		m.LastAPIKey.Store(r.URL.Query().Get("api_key"))
		id, ok := strings.CutPrefix(r.URL.Path, "/api/matches/")
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		doc, ok := m.Matches[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if raw, isRaw := doc.(string); isRaw {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(raw)) //nolint:errcheck // test mock response
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc) //nolint:errcheck // test mock response
	}))
	t.Cleanup(m.Close)
	return m
}

// MockMatch registers a match document. doc may be a raw JSON string or any
// value encoding/json can marshal.
func (m *MockOpenDotaServer) MockMatch(id string, doc any) {
	m.Matches[id] = doc
}

// ChatEntry builds one entry of a match document's chat array.
func ChatEntry(playerSlot int, t float64, kind, key string) map[string]any {
	return map[string]any{
		"player_slot": playerSlot,
		"time":        t,
		"type":        kind,
		"key":         key,
	}
}
