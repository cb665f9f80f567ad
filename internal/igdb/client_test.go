package igdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gamearr/gamearr/internal/apperr"
	"github.com/gamearr/gamearr/internal/settings"
	"github.com/gamearr/gamearr/internal/testutil"
)

func newIGDB(t *testing.T) (*Service, *settings.Service) {
	t.Helper()
	tdb := testutil.NewTestDB(t)
	t.Cleanup(tdb.Close)
	settingsSvc := settings.NewService(tdb.Repos.Settings, testutil.NopLogger())
	return NewService(settingsSvc, testutil.NopLogger()), settingsSvc
}

func TestSearchGamesNotConfigured(t *testing.T) {
	svc, _ := newIGDB(t)
	if _, err := svc.SearchGames(context.Background(), "hades"); !apperr.IsNotConfigured(err) {
		t.Errorf("err = %v, want not-configured", err)
	}
	if svc.IsConfigured(context.Background()) {
		t.Error("IsConfigured should be false without credentials")
	}
}

func TestSearchGames(t *testing.T) {
	svc, settingsSvc := newIGDB(t)
	ctx := context.Background()

	tokenCalls := 0
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	}))
	defer tokenSrv.Close()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" || r.Header.Get("Client-ID") != "cid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{
			"id": 1145,
			"name": "Hades",
			"first_release_date": 1600300800,
			"cover": {"url": "//images.igdb.com/t_thumb/co1234.jpg"},
			"platforms": [{"name": "PC (Microsoft Windows)"}]
		}]`))
	}))
	defer apiSrv.Close()

	svc.tokenURL = tokenSrv.URL
	svc.apiURL = apiSrv.URL

	if err := settingsSvc.Set(ctx, settings.KeyIGDBClientID, "cid"); err != nil {
		t.Fatal(err)
	}
	if err := settingsSvc.Set(ctx, settings.KeyIGDBClientSecret, "secret"); err != nil {
		t.Fatal(err)
	}

	results, err := svc.SearchGames(ctx, "hades")
	if err != nil {
		t.Fatalf("SearchGames failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	got := results[0]
	if got.IgdbID != 1145 || got.Title != "Hades" || got.Year != 2020 {
		t.Errorf("result = %+v", got)
	}
	if got.CoverURL != "https://images.igdb.com/t_cover_big/co1234.jpg" {
		t.Errorf("CoverURL = %q", got.CoverURL)
	}
	if got.Platform != "PC (Microsoft Windows)" {
		t.Errorf("Platform = %q", got.Platform)
	}

	// Second search reuses the cached token.
	if _, err := svc.SearchGames(ctx, "hades"); err != nil {
		t.Fatal(err)
	}
	if tokenCalls != 1 {
		t.Errorf("tokenCalls = %d, want 1", tokenCalls)
	}
}

func TestNormalizeCoverURL(t *testing.T) {
	got := normalizeCoverURL("//images.igdb.com/t_thumb/x.jpg")
	if got != "https://images.igdb.com/t_cover_big/x.jpg" {
		t.Errorf("normalizeCoverURL = %q", got)
	}
}
