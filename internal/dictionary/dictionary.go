// Package dictionary holds the canonical event and school dictionaries used
// to normalize scraped results.
//
// Both dictionaries are YAML documents read once per run. Built-in defaults are
// embedded in the binary; a path on disk replaces them entirely. Loaded values
// are immutable and safe to share between goroutines.
package dictionary

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidDictionary is returned when a dictionary document is malformed.
var ErrInvalidDictionary = errors.New("invalid dictionary")

var (
	//go:embed defaults/events.yaml
	defaultEvents []byte

	//go:embed defaults/schools.yaml
	defaultSchools []byte
)

// rawBytes serves an in-memory document to koanf.
type rawBytes []byte

func (b rawBytes) ReadBytes() ([]byte, error) {
	return b, nil
}

func (b rawBytes) Read() (map[string]interface{}, error) {
	return nil, errors.New("rawBytes provider requires a parser")
}

func load(p koanf.Provider, out interface{}) error {
	k := koanf.New(".")
	if err := k.Load(p, yaml.Parser()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDictionary, err)
	}
	if err := k.UnmarshalWithConf("", out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDictionary, err)
	}
	return nil
}

// LoadEvents reads an event dictionary from path.
func LoadEvents(path string) (*Events, error) {
	var doc eventsDoc
	if err := load(file.Provider(path), &doc); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc.build()
}

// DefaultEvents returns the embedded event dictionary.
func DefaultEvents() (*Events, error) {
	var doc eventsDoc
	if err := load(rawBytes(defaultEvents), &doc); err != nil {
		return nil, fmt.Errorf("loading default events: %w", err)
	}
	return doc.build()
}

// LoadSchools reads a school dictionary from path.
func LoadSchools(path string) (*Schools, error) {
	var doc schoolsDoc
	if err := load(file.Provider(path), &doc); err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc.build()
}

// DefaultSchools returns the embedded school dictionary.
func DefaultSchools() (*Schools, error) {
	var doc schoolsDoc
	if err := load(rawBytes(defaultSchools), &doc); err != nil {
		return nil, fmt.Errorf("loading default schools: %w", err)
	}
	return doc.build()
}

var (
	curlyQuotes = strings.NewReplacer("’", "'", "‘", "'", "`", "'")
	genderWord  = regexp.MustCompile(`^(boys?|girls?|mens?|men's|womens?|women's)\s+`)
	roundWord   = regexp.MustCompile(`\s+(finals?|prelims?|preliminaries|heats?)$`)
)

// Key folds a name for lookup: lower case, straight quotes, single spaces.
func Key(s string) string {
	s = curlyQuotes.Replace(strings.ToLower(s))
	return strings.Join(strings.Fields(s), " ")
}

func stripQualifiers(key string) string {
	key = genderWord.ReplaceAllString(key, "")
	key = roundWord.ReplaceAllString(key, "")
	return strings.TrimSpace(key)
}

// Gender folds the many spellings of a competition gender to "M" or "F".
// The empty string is accepted and returned unchanged.
func Gender(s string) (string, bool) {
	switch Key(s) {
	case "":
		return "", true
	case "m", "male", "boys", "boy", "men", "mens", "men's":
		return "M", true
	case "f", "female", "girls", "girl", "women", "womens", "women's":
		return "F", true
	default:
		return "", false
	}
}

// GenderOf extracts the gender from a leading word of an event title such
// as "Girls 100 Meters".
func GenderOf(title string) string {
	m := genderWord.FindStringSubmatch(Key(title))
	if m == nil {
		return ""
	}
	g, _ := Gender(m[1])
	return g
}
