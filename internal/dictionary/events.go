package dictionary

import (
	"fmt"
	"sort"

	"github.com/antzucaro/matchr"
)

// Event is a canonical event definition.
type Event struct {
	Name           string   `json:"name"`
	Category       string   `json:"category,omitempty"`
	DistanceMeters float64  `json:"distance_meters,omitempty"`
	Timed          bool     `json:"timed"`
	LowerIsBetter  bool     `json:"lower_is_better"`
	IsRelay        bool     `json:"is_relay"`
	Gender         string   `json:"gender,omitempty"`
	Aliases        []string `json:"aliases,omitempty"`
}

type eventDoc struct {
	Name           string   `koanf:"name"`
	Category       string   `koanf:"category"`
	DistanceMeters float64  `koanf:"distance_meters"`
	Timed          *bool    `koanf:"timed"`
	LowerIsBetter  *bool    `koanf:"lower_is_better"`
	IsRelay        bool     `koanf:"is_relay"`
	Gender         string   `koanf:"gender"`
	Aliases        []string `koanf:"aliases"`
}

type eventsDoc struct {
	FuzzyThreshold float64    `koanf:"fuzzy_threshold"`
	Events         []eventDoc `koanf:"events"`
}

func (d eventsDoc) build() (*Events, error) {
	events := make([]Event, 0, len(d.Events))
	for i, raw := range d.Events {
		gender, ok := Gender(raw.Gender)
		if !ok {
			return nil, fmt.Errorf("%w: event %d (%s): unknown gender %q", ErrInvalidDictionary, i, raw.Name, raw.Gender)
		}
		ev := Event{
			Name:           raw.Name,
			Category:       raw.Category,
			DistanceMeters: raw.DistanceMeters,
			Timed:          true,
			LowerIsBetter:  true,
			IsRelay:        raw.IsRelay,
			Gender:         gender,
			Aliases:        raw.Aliases,
		}
		if raw.Timed != nil {
			ev.Timed = *raw.Timed
		}
		if raw.LowerIsBetter != nil {
			ev.LowerIsBetter = *raw.LowerIsBetter
		}
		events = append(events, ev)
	}
	return NewEvents(events, d.FuzzyThreshold)
}

// Events is an immutable event dictionary.
type Events struct {
	events    []Event
	byName    map[string]int
	aliases   map[string]int
	keys      []string
	threshold float64
}

// NewEvents indexes events by name and alias. An alias claimed by two
// different events is an error. A threshold of 0 disables fuzzy matching.
func NewEvents(events []Event, threshold float64) (*Events, error) {
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: no events defined", ErrInvalidDictionary)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: fuzzy_threshold %v outside [0, 1]", ErrInvalidDictionary, threshold)
	}

	d := &Events{
		events:    make([]Event, len(events)),
		byName:    make(map[string]int, len(events)),
		aliases:   make(map[string]int),
		threshold: threshold,
	}
	copy(d.events, events)

	for i, ev := range d.events {
		if ev.Name == "" {
			return nil, fmt.Errorf("%w: event %d has no name", ErrInvalidDictionary, i)
		}
		if _, dup := d.byName[ev.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate event %q", ErrInvalidDictionary, ev.Name)
		}
		d.byName[ev.Name] = i

		for _, alias := range append([]string{ev.Name}, ev.Aliases...) {
			key := Key(alias)
			if key == "" {
				continue
			}
			if prev, ok := d.aliases[key]; ok && prev != i {
				return nil, fmt.Errorf("%w: alias %q maps to both %q and %q",
					ErrInvalidDictionary, alias, d.events[prev].Name, ev.Name)
			}
			d.aliases[key] = i
		}
	}

	d.keys = make([]string, 0, len(d.aliases))
	for key := range d.aliases {
		d.keys = append(d.keys, key)
	}
	sort.Strings(d.keys)

	return d, nil
}

// Match resolves a raw event title to a canonical event. gender ("M", "F" or
// empty) steers gender-restricted events to their counterpart of the same
// category.
func (d *Events) Match(raw, gender string) (Event, bool) {
	key := Key(raw)
	if key == "" {
		return Event{}, false
	}

	idx, ok := d.aliases[key]
	if !ok {
		key = stripQualifiers(key)
		idx, ok = d.aliases[key]
	}
	if !ok && d.threshold > 0 {
		idx, ok = d.fuzzy(key)
	}
	if !ok {
		return Event{}, false
	}

	ev := d.events[idx]
	if ev.Gender != "" && gender != "" && ev.Gender != gender {
		if alt, found := d.counterpart(ev, gender); found {
			return alt, true
		}
	}
	return ev, true
}

func (d *Events) fuzzy(key string) (int, bool) {
	best, bestScore := -1, 0.0
	for _, alias := range d.keys {
		score := matchr.JaroWinkler(key, alias, false)
		if score > bestScore {
			best, bestScore = d.aliases[alias], score
		}
	}
	if best < 0 || bestScore < d.threshold {
		return 0, false
	}
	return best, true
}

func (d *Events) counterpart(ev Event, gender string) (Event, bool) {
	if ev.Category == "" {
		return Event{}, false
	}
	for _, other := range d.events {
		if other.Category == ev.Category && other.Gender == gender {
			return other, true
		}
	}
	return Event{}, false
}

// Lookup returns the event with the given canonical name or alias.
func (d *Events) Lookup(name string) (Event, bool) {
	if i, ok := d.byName[name]; ok {
		return d.events[i], true
	}
	if i, ok := d.aliases[Key(name)]; ok {
		return d.events[i], true
	}
	return Event{}, false
}

// All returns the events in declaration order.
func (d *Events) All() []Event {
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// Threshold returns the fuzzy matching cutoff.
func (d *Events) Threshold() float64 {
	return d.threshold
}
