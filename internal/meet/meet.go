// Package meet reads meet configuration documents.
//
// A meet document names one competition and lists the result files scraped
// from it. Each source may pin a parser, a default gender and an explicit
// list of events to extract.
package meet

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/pfrederiksen/trackstats/internal/dictionary"
	"github.com/pfrederiksen/trackstats/internal/parser"
)

// ErrInvalidConfig is returned for malformed meet documents.
var ErrInvalidConfig = errors.New("invalid meet config")

// DefaultLevel is used when neither the meet nor an event selector sets one.
const DefaultLevel = "varsity"

// Info describes the meet itself.
type Info struct {
	Name     string `koanf:"name" json:"name"`
	Date     string `koanf:"date" json:"date"`
	Venue    string `koanf:"venue" json:"venue,omitempty"`
	Location string `koanf:"location" json:"location,omitempty"`
	Season   string `koanf:"season" json:"season,omitempty"`
	Level    string `koanf:"level" json:"level,omitempty"`
}

// EventSelector picks one event section out of a source file.
type EventSelector struct {
	CanonicalEvent string `koanf:"canonical_event" json:"canonical_event"`
	EventHeader    string `koanf:"event_header" json:"event_header,omitempty"`
	Gender         string `koanf:"gender" json:"gender,omitempty"`
	Level          string `koanf:"level" json:"level,omitempty"`
}

// Source is one result file of a meet. URL, when set, is where the fetch
// command downloads File from.
type Source struct {
	File   string          `koanf:"file" json:"file"`
	URL    string          `koanf:"url" json:"url,omitempty"`
	Parser string          `koanf:"parser" json:"parser,omitempty"`
	Gender string          `koanf:"gender" json:"gender,omitempty"`
	Events []EventSelector `koanf:"events" json:"events,omitempty"`
}

// Config is a parsed and validated meet document.
type Config struct {
	Meet         Info              `koanf:"meet" json:"meet"`
	Sources      []Source          `koanf:"sources" json:"sources"`
	NameMappings map[string]string `koanf:"-" json:"name_mappings,omitempty"`

	// Path is the file the document was read from.
	Path string `koanf:"-" json:"-"`
	// When is the parsed meet date.
	When time.Time `koanf:"-" json:"-"`
}

// Load reads and validates the meet document at path.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading meet config: %w", err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrInvalidConfig, path)
	}

	// Athlete names in name_mappings may contain dots.
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := dateText(k); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}

	mappings, err := nameMappings(k.Get("name_mappings"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	cfg.NameMappings = mappings
	cfg.Path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// dateText turns an unquoted YAML date, which the parser decodes as a
// time.Time, back into text.
func dateText(k *koanf.Koanf) error {
	switch v := k.Get("meet::date").(type) {
	case nil, string:
		return nil
	case time.Time:
		return k.Set("meet::date", v.Format(DateLayout))
	default:
		return k.Set("meet::date", fmt.Sprint(v))
	}
}

// nameMappings accepts either a list of {from, to} pairs or a plain
// from: to map.
func nameMappings(raw interface{}) (map[string]string, error) {
	out := make(map[string]string)
	switch v := raw.(type) {
	case nil:
	case map[string]interface{}:
		for from, to := range v {
			s, ok := to.(string)
			if !ok {
				return nil, fmt.Errorf("name mapping %q: expected a string", from)
			}
			out[strings.TrimSpace(from)] = strings.TrimSpace(s)
		}
	case []interface{}:
		for i, item := range v {
			pair, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("name mapping %d: expected from/to", i)
			}
			from, _ := pair["from"].(string)
			to, _ := pair["to"].(string)
			if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
				return nil, fmt.Errorf("name mapping %d: from and to are required", i)
			}
			out[strings.TrimSpace(from)] = strings.TrimSpace(to)
		}
	default:
		return nil, fmt.Errorf("name_mappings: unexpected %T", raw)
	}
	return out, nil
}

// Validate checks the document and fills in defaults for season and level.
func (c *Config) Validate() error {
	c.Meet.Name = strings.TrimSpace(c.Meet.Name)
	if c.Meet.Name == "" {
		return fmt.Errorf("%w: meet.name is required", ErrInvalidConfig)
	}

	when, err := ParseDate(c.Meet.Date)
	if err != nil {
		return fmt.Errorf("meet.date: %w", err)
	}
	c.When = when
	c.Meet.Date = when.Format(DateLayout)

	if c.Meet.Season == "" {
		c.Meet.Season = strconv.Itoa(when.Year())
	}
	if c.Meet.Level == "" {
		c.Meet.Level = DefaultLevel
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: at least one source is required", ErrInvalidConfig)
	}

	for i := range c.Sources {
		src := &c.Sources[i]
		if strings.TrimSpace(src.File) == "" {
			return fmt.Errorf("%w: sources[%d].file is required", ErrInvalidConfig, i)
		}
		if src.URL != "" {
			u, err := url.Parse(src.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("%w: sources[%d].url %q is not an http(s) URL", ErrInvalidConfig, i, src.URL)
			}
		}
		if src.Parser == "" {
			src.Parser = parser.Auto
		}
		if !parser.Known(src.Parser) {
			return fmt.Errorf("%w: sources[%d]: %w %q", ErrInvalidConfig, i, parser.ErrUnknownParser, src.Parser)
		}

		gender, ok := dictionary.Gender(src.Gender)
		if !ok {
			return fmt.Errorf("%w: sources[%d]: unknown gender %q", ErrInvalidConfig, i, src.Gender)
		}
		src.Gender = gender

		for j := range src.Events {
			sel := &src.Events[j]
			if strings.TrimSpace(sel.CanonicalEvent) == "" {
				return fmt.Errorf("%w: sources[%d].events[%d].canonical_event is required", ErrInvalidConfig, i, j)
			}
			g, ok := dictionary.Gender(sel.Gender)
			if !ok {
				return fmt.Errorf("%w: sources[%d].events[%d]: unknown gender %q", ErrInvalidConfig, i, j, sel.Gender)
			}
			if g != "" && gender != "" && g != gender {
				return fmt.Errorf("%w: sources[%d].events[%d]: gender %s conflicts with source gender %s",
					ErrInvalidConfig, i, j, g, gender)
			}
			sel.Gender = g
		}
	}

	return nil
}

// SourcePath resolves the file of src. Relative paths resolve against
// dataDir when set, else against the directory of the meet document.
func (c *Config) SourcePath(dataDir string, src Source) string {
	if filepath.IsAbs(src.File) {
		return src.File
	}
	if dataDir != "" {
		return filepath.Join(dataDir, src.File)
	}
	return filepath.Join(filepath.Dir(c.Path), src.File)
}

// SeasonYear returns the season as a year, or 0 when the season is not a
// plain year.
func (c *Config) SeasonYear() int {
	return c.Meet.SeasonYear()
}

// SeasonYear returns the season as a year, or 0 when it is not a plain year.
func (i Info) SeasonYear() int {
	if len(i.Season) != 4 {
		return 0
	}
	year, err := strconv.Atoi(i.Season)
	if err != nil {
		return 0
	}
	return year
}
