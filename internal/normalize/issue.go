package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a row did not become a result.
type Kind string

const (
	UnmatchedEvent   Kind = "unmatched_event"
	NotTracked       Kind = "not_tracked"
	NotSelected      Kind = "not_selected"
	InvalidMark      Kind = "invalid_mark"
	MissingName      Kind = "missing_name"
	WrongGender      Kind = "wrong_gender"
	InvalidRelay     Kind = "invalid_relay"
	UnresolvedMember Kind = "unresolved_member"
)

// Silent reports whether the kind is an expected outcome that is not worth a
// warning: other schools' athletes and events the meet config did not ask for.
func (k Kind) Silent() bool {
	return k == NotTracked || k == NotSelected
}

// Issue is a classified per-row problem. Raw holds the source text that
// caused it so the dictionaries or data can be fixed.
type Issue struct {
	Kind   Kind   `json:"kind"`
	Index  int    `json:"index"`
	Raw    string `json:"raw"`
	Reason string `json:"reason"`
}

func (i *Issue) Error() string {
	return fmt.Sprintf("%s: row %d: %s", i.Kind, i.Index, i.Reason)
}

// RelayPolicy decides what happens to a relay result none of whose members
// could be resolved.
type RelayPolicy string

const (
	// RelayDrop discards the relay result.
	RelayDrop RelayPolicy = "drop"
	// RelayKeep stores the team result without legs.
	RelayKeep RelayPolicy = "keep"
)

// ErrUnknownRelayPolicy is returned by ParseRelayPolicy.
var ErrUnknownRelayPolicy = errors.New("unknown relay policy")

// ParseRelayPolicy reads a policy name. The empty string is RelayDrop.
func ParseRelayPolicy(s string) (RelayPolicy, error) {
	switch RelayPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", RelayDrop:
		return RelayDrop, nil
	case RelayKeep:
		return RelayKeep, nil
	default:
		return "", fmt.Errorf("%w %q (expected drop or keep)", ErrUnknownRelayPolicy, s)
	}
}
