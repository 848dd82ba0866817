package scraper

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pfrederiksen/trackstats/internal/logger"
	"github.com/pfrederiksen/trackstats/internal/meet"
	"github.com/pfrederiksen/trackstats/internal/parser"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	page, err := os.ReadFile("../parser/testdata/milesplit_single.html")
	if err != nil {
		t.Fatalf("failed to load test fixture: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/results/1600", func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "trackstats") {
			t.Errorf("User-Agent = %q, should contain 'trackstats'", ua)
		}
		w.Write(page)
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Sign in</title></head><body><p>Please sign in.</p></body></html>`))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newScraper(server *httptest.Server) *Scraper {
	s := New(logger.New(logger.LevelDebug, logger.FormatJSON, &bytes.Buffer{}))
	s.client = server.Client()
	return s
}

func meetConfig(dir string, sources ...meet.Source) *meet.Config {
	for i := range sources {
		sources[i].Parser = parser.Auto
	}
	return &meet.Config{
		Meet:    meet.Info{Name: "Poudre Invitational", Date: "2025-04-12"},
		Sources: sources,
		Path:    filepath.Join(dir, "poudre.yaml"),
	}
}

func TestFetch(t *testing.T) {
	server := newServer(t)
	s := newScraper(server)

	tests := []struct {
		name      string
		path      string
		wantError bool
	}{
		{"result page", "/results/1600", false},
		{"HTTP error", "/gone", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := s.Fetch(context.Background(), server.URL+tt.path)
			if tt.wantError {
				if err == nil {
					t.Error("Fetch() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch() unexpected error: %v", err)
			}
			if !bytes.Contains(body, []byte("eventTable")) {
				t.Errorf("Fetch() body missing result table")
			}
		})
	}
}

func TestFetchMeet(t *testing.T) {
	server := newServer(t)
	s := newScraper(server)
	dir := t.TempDir()
	ctx := context.Background()

	cfg := meetConfig(dir,
		meet.Source{File: "html/boys_1600.html", URL: server.URL + "/results/1600"},
		meet.Source{File: "login.html", URL: server.URL + "/login"},
		meet.Source{File: "gone.html", URL: server.URL + "/gone"},
		meet.Source{File: "saved.html"},
	)

	downloads, err := s.FetchMeet(ctx, cfg, "", false)
	if err != nil {
		t.Fatalf("FetchMeet() error: %v", err)
	}
	if len(downloads) != 3 {
		t.Fatalf("FetchMeet() returned %d downloads, want 3 (sources without a URL are ignored)", len(downloads))
	}

	got := downloads[0]
	if got.Status != StatusFetched {
		t.Fatalf("downloads[0].Status = %q, error %q", got.Status, got.Error)
	}
	if got.Parser != "milesplit_single" {
		t.Errorf("downloads[0].Parser = %q", got.Parser)
	}
	if got.Title != "Boys 1600 Meters - Results" {
		t.Errorf("downloads[0].Title = %q", got.Title)
	}
	if got.Path != filepath.Join(dir, "html", "boys_1600.html") {
		t.Errorf("downloads[0].Path = %q", got.Path)
	}
	data, err := os.ReadFile(got.Path)
	if err != nil || len(data) != got.Bytes {
		t.Errorf("saved file: %d bytes, err %v; want %d bytes", len(data), err, got.Bytes)
	}

	if downloads[1].Status != StatusFailed || downloads[1].Error != ErrNotResultPage.Error() {
		t.Errorf("downloads[1] = %+v, want not a result page", downloads[1])
	}
	if _, err := os.Stat(filepath.Join(dir, "login.html")); !os.IsNotExist(err) {
		t.Errorf("unrecognized page was written: %v", err)
	}
	if downloads[2].Status != StatusFailed || !strings.Contains(downloads[2].Error, "404") {
		t.Errorf("downloads[2] = %+v, want 404 failure", downloads[2])
	}

	// A second run keeps the saved page unless forced.
	downloads, err = s.FetchMeet(ctx, cfg, "", false)
	if err != nil {
		t.Fatal(err)
	}
	if downloads[0].Status != StatusSkipped {
		t.Errorf("second run Status = %q, want skipped", downloads[0].Status)
	}

	downloads, err = s.FetchMeet(ctx, cfg, "", true)
	if err != nil {
		t.Fatal(err)
	}
	if downloads[0].Status != StatusFetched {
		t.Errorf("forced run Status = %q, want fetched", downloads[0].Status)
	}
}

func TestFetchMeetDataDir(t *testing.T) {
	server := newServer(t)
	s := newScraper(server)
	dataDir := t.TempDir()

	cfg := meetConfig(t.TempDir(), meet.Source{File: "boys.html", URL: server.URL + "/results/1600"})
	downloads, err := s.FetchMeet(context.Background(), cfg, dataDir, false)
	if err != nil {
		t.Fatal(err)
	}
	if downloads[0].Path != filepath.Join(dataDir, "boys.html") {
		t.Errorf("Path = %q, want below the data dir", downloads[0].Path)
	}
}

func TestFetchMeetCancelled(t *testing.T) {
	server := newServer(t)
	s := newScraper(server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := meetConfig(t.TempDir(), meet.Source{File: "boys.html", URL: server.URL + "/results/1600"})
	if _, err := s.FetchMeet(ctx, cfg, "", false); err == nil {
		t.Error("FetchMeet() with a cancelled context returned nil error")
	}
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{"<html><head><title>\n  Girls 100m\n  Results </title></head></html>", "Girls 100m Results"},
		{"Event 1  Girls 100 Meter Dash", ""},
	}
	for _, tt := range tests {
		if got := pageTitle([]byte(tt.body)); got != tt.want {
			t.Errorf("pageTitle(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}
