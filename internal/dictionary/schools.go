package dictionary

import (
	"fmt"
	"strings"

	"github.com/antzucaro/matchr"
)

// exclusionCutoff is the JaroWinkler score at which a school is treated as
// one of the excluded look-alikes.
const exclusionCutoff = 0.95

type schoolsDoc struct {
	Target struct {
		Key            string   `koanf:"key"`
		CanonicalName  string   `koanf:"canonical_name"`
		Aliases        []string `koanf:"aliases"`
		MatchThreshold float64  `koanf:"match_threshold"`
	} `koanf:"target_school"`
	Exclude []struct {
		Name    string   `koanf:"name"`
		Aliases []string `koanf:"aliases"`
	} `koanf:"exclude_schools"`
}

func (d schoolsDoc) build() (*Schools, error) {
	var excluded []string
	for _, ex := range d.Exclude {
		excluded = append(excluded, ex.Name)
		excluded = append(excluded, ex.Aliases...)
	}
	return NewSchools(d.Target.Key, d.Target.CanonicalName, d.Target.Aliases, excluded, d.Target.MatchThreshold)
}

// Schools decides whether a raw school string names the tracked team.
type Schools struct {
	key       string
	canonical string
	target    map[string]bool
	aliases   []string
	excluded  []string
	threshold float64
}

// NewSchools builds a school dictionary. A threshold of 0 accepts exact alias
// matches only.
func NewSchools(key, canonical string, aliases, excluded []string, threshold float64) (*Schools, error) {
	if canonical == "" {
		return nil, fmt.Errorf("%w: target_school.canonical_name is required", ErrInvalidDictionary)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: match_threshold %v outside [0, 1]", ErrInvalidDictionary, threshold)
	}

	s := &Schools{
		key:       key,
		canonical: canonical,
		target:    make(map[string]bool),
		threshold: threshold,
	}
	for _, a := range append([]string{canonical}, aliases...) {
		k := Key(a)
		if k == "" || s.target[k] {
			continue
		}
		s.target[k] = true
		s.aliases = append(s.aliases, k)
	}
	for _, e := range excluded {
		k := Key(e)
		if k == "" {
			continue
		}
		if s.target[k] {
			return nil, fmt.Errorf("%w: %q is both a target alias and excluded", ErrInvalidDictionary, e)
		}
		s.excluded = append(s.excluded, k)
	}
	return s, nil
}

// IsTracked reports whether raw names the tracked school.
func (s *Schools) IsTracked(raw string) bool {
	name := Key(raw)
	if name == "" {
		return false
	}
	if s.target[name] {
		return true
	}

	for _, ex := range s.excluded {
		if name == ex || strings.Contains(name, ex) {
			return false
		}
		if matchr.JaroWinkler(name, ex, false) >= exclusionCutoff {
			return false
		}
	}

	if s.threshold == 0 || len(name) < 4 {
		return false
	}
	for _, alias := range s.aliases {
		if matchr.JaroWinkler(name, alias, false) >= s.threshold {
			return true
		}
	}
	return false
}

// CanonicalName returns the display name of the tracked school.
func (s *Schools) CanonicalName() string {
	return s.canonical
}

// Key returns the short identifier of the tracked school.
func (s *Schools) Key() string {
	return s.key
}
