package meet

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pfrederiksen/trackstats/internal/parser"
)

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/meets/2025/poudre.yaml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Meet.Name != "Poudre Invitational" {
		t.Errorf("Meet.Name = %q", cfg.Meet.Name)
	}
	if cfg.Meet.Date != "2025-04-12" {
		t.Errorf("Meet.Date = %q, expected 2025-04-12", cfg.Meet.Date)
	}
	if !cfg.When.Equal(time.Date(2025, time.April, 12, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("When = %v", cfg.When)
	}
	if cfg.Meet.Season != "2025" || cfg.SeasonYear() != 2025 {
		t.Errorf("Season = %q (%d), expected 2025 from the date", cfg.Meet.Season, cfg.SeasonYear())
	}
	if len(cfg.Sources) != 2 {
		t.Fatalf("len(Sources) = %d, expected 2", len(cfg.Sources))
	}
	if cfg.Sources[0].Parser != parser.Auto || cfg.Sources[0].Gender != "F" {
		t.Errorf("Sources[0] = %+v, expected auto parser and gender F", cfg.Sources[0])
	}
	if got := cfg.Sources[1].Events[0]; got.CanonicalEvent != "100m" || got.Level != "jv" {
		t.Errorf("Sources[1].Events[0] = %+v", got)
	}
	if cfg.NameMappings["Jon Smith"] != "John Smith" || cfg.NameMappings["J. R. Doe"] != "JR Doe" {
		t.Errorf("NameMappings = %v", cfg.NameMappings)
	}
}

func TestLoadDateForms(t *testing.T) {
	tests := []struct {
		name string
		date string
	}{
		{"unquoted", "2025-04-12"},
		{"quoted", `"2025-04-12"`},
		{"single quoted", "'2025-04-12'"},
		{"unquoted timestamp", "2025-04-12T09:30:00Z"},
		{"US form", `"4/12/2025"`},
		{"month name", "April 12, 2025"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "meet.yaml")
			doc := "meet:\n  name: Poudre Invitational\n  date: " + tt.date + "\nsources:\n  - file: a.html\n"
			if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Meet.Date != "2025-04-12" || cfg.Meet.Season != "2025" {
				t.Errorf("Date = %q, Season = %q, expected 2025-04-12 and 2025", cfg.Meet.Date, cfg.Meet.Season)
			}
		})
	}
}

func TestLoadLegacyMappings(t *testing.T) {
	cfg, err := Load("testdata/meets/2025/legacy.yml")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.NameMappings["St. John, Ann"] != "Ann St. John" {
		t.Errorf("NameMappings = %v", cfg.NameMappings)
	}
	if cfg.Meet.Level != DefaultLevel {
		t.Errorf("Meet.Level = %q, expected default", cfg.Meet.Level)
	}
	if cfg.SeasonYear() != 0 {
		t.Errorf("SeasonYear() = %d, expected 0 for %q", cfg.SeasonYear(), cfg.Meet.Season)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"empty file", ""},
		{"missing name", "meet:\n  date: 2025-04-12\nsources:\n  - file: a.html\n"},
		{"bad date", "meet:\n  name: X\n  date: someday\nsources:\n  - file: a.html\n"},
		{"no sources", "meet:\n  name: X\n  date: 2025-04-12\n"},
		{"unknown parser", "meet:\n  name: X\n  date: 2025-04-12\nsources:\n  - file: a.html\n    parser: pdf\n"},
		{"bad gender", "meet:\n  name: X\n  date: 2025-04-12\nsources:\n  - file: a.html\n    gender: coed\n"},
		{"conflicting gender", "meet:\n  name: X\n  date: 2025-04-12\nsources:\n  - file: a.html\n    gender: boys\n    events:\n      - canonical_event: 100m\n        gender: girls\n"},
		{"selector without event", "meet:\n  name: X\n  date: 2025-04-12\nsources:\n  - file: a.html\n    events:\n      - event_header: Girls 100\n"},
		{"bad url", "meet:\n  name: X\n  date: 2025-04-12\nsources:\n  - file: a.html\n    url: ftp://example.com/a.html\n"},
		{"bad mapping", "meet:\n  name: X\n  date: 2025-04-12\nname_mappings:\n  - from: A\nsources:\n  - file: a.html\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "meet.yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Load() error = %v, expected ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadUnknownParserWrapsSentinel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meet.yaml")
	doc := "meet:\n  name: X\n  date: 2025-04-12\nsources:\n  - file: a.html\n    parser: pdf\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, parser.ErrUnknownParser) {
		t.Errorf("Load() error = %v, expected ErrUnknownParser", err)
	}
}

func TestSourcePath(t *testing.T) {
	cfg := &Config{Path: filepath.Join("data", "meets", "poudre.yaml")}

	tests := []struct {
		name    string
		dataDir string
		file    string
		want    string
	}{
		{"relative to meet file", "", "html/a.html", filepath.Join("data", "meets", "html", "a.html")},
		{"relative to data dir", "/srv/track", "html/a.html", filepath.Join("/srv/track", "html", "a.html")},
		{"absolute", "/srv/track", "/tmp/a.html", "/tmp/a.html"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cfg.SourcePath(tt.dataDir, Source{File: tt.file}); got != tt.want {
				t.Errorf("SourcePath() = %q, expected %q", got, tt.want)
			}
		})
	}
}

func TestDiscover(t *testing.T) {
	paths, err := Discover("testdata/meets")
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	want := []string{
		filepath.Join("testdata", "meets", "2025", "legacy.yml"),
		filepath.Join("testdata", "meets", "2025", "poudre.yaml"),
	}
	if len(paths) != len(want) {
		t.Fatalf("Discover() = %v, expected %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Discover()[%d] = %q, expected %q", i, paths[i], want[i])
		}
	}

	if _, err := Discover("testdata/missing"); err == nil {
		t.Error("Discover(missing) expected error")
	}
}
