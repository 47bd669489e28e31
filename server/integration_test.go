package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/onnwee/match-chat/backend/db"
	"github.com/onnwee/match-chat/backend/match"
	"github.com/onnwee/match-chat/backend/telemetry"
	"github.com/onnwee/match-chat/backend/testutil"
)

// Import through the admin API into Postgres, then read the chat back.
func TestImportThenViewAgainstPostgres(t *testing.T) {
	database := testutil.SetupTestDB(t)
	telemetry.Init()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	const matchID = 9001
	if _, err := database.ExecContext(ctx, `DELETE FROM matches WHERE match_id=$1`, matchID); err != nil {
		t.Fatalf("reset match: %v", err)
	}

	src := testutil.NewMockOpenDotaServer(t)
	src.MockMatch("9001", map[string]any{
		"match_id": matchID,
		"chat": []map[string]any{
			testutil.ChatEntry(0, 10, "chat", "gg"),
			testutil.ChatEntry(0, 12, "chat", "gg"),
			testutil.ChatEntry(130, 5, "chatwheel", "76"),
			testutil.ChatEntry(2, 1, "chat", "hello"),
		},
	})

	store := db.NewStore(database)
	cfg := testConfig()
	handler := NewRouter(ctx, RouterConfig{
		Config:   cfg,
		Store:    store,
		Importer: match.NewImporter(match.NewClient(src.URL, "", 5*time.Second), store),
		Views:    NewViewStore(cfg.ViewTTL, cfg.MaxViews),
	})

	do := func(method, target string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
		return rr
	}

	if rr := do(http.MethodGet, "/matches/9001/chat"); rr.Code != http.StatusNotFound {
		t.Fatalf("before import = %d, want 404", rr.Code)
	}
	if rr := do(http.MethodPost, "/admin/matches/9001/import"); rr.Code != http.StatusOK {
		t.Fatalf("import = %d body=%s", rr.Code, rr.Body.String())
	}

	rr := do(http.MethodGet, "/matches/9001/chat")
	if rr.Code != http.StatusOK {
		t.Fatalf("chat = %d body=%s", rr.Code, rr.Body.String())
	}
	resp := decodeView(t, rr)
	if resp.Total != 4 {
		t.Errorf("total = %d, want 4", resp.Total)
	}
	// The repeated "gg" is spam and hidden by default
	want := []string{"hello", "76", "gg"}
	got := eventKeys(resp.Events)
	if len(got) != len(want) {
		t.Fatalf("visible keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visible keys = %v, want %v", got, want)
		}
	}
	if rr := do(http.MethodGet, "/readyz"); rr.Code != http.StatusOK {
		t.Errorf("readyz = %d", rr.Code)
	}
}
