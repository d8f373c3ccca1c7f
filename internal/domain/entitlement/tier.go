// Package entitlement turns a subscription record into plan tiers and access
// answers. Everything here is pure: the caller supplies the clock.
package entitlement

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Tier is a plan tier. The numeric order is the entitlement hierarchy.
type Tier int

const (
	TierTrial Tier = iota
	TierStart
	TierPro
)

func (t Tier) String() string {
	switch t {
	case TierTrial:
		return "trial"
	case TierStart:
		return "start"
	case TierPro:
		return "pro"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// MarshalText lets tiers appear by name in JSON and YAML.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTier parses a configured tier name.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trial":
		return TierTrial, nil
	case "start":
		return TierStart, nil
	case "pro":
		return TierPro, nil
	default:
		return TierTrial, fmt.Errorf("unknown tier %q", s)
	}
}

// AtLeast reports whether t satisfies required in the hierarchy.
func (t Tier) AtLeast(required Tier) bool {
	return t >= required
}

var (
	proMarkers   = []string{"pro", "premium"}
	startMarkers = []string{"start", "basic"}
)

// Classify maps a paid plan's display name to a tier. Matching is a
// case-folded substring search, checked pro before start.
func Classify(planName string) Tier {
	folded := cases.Fold().String(planName)
	if containsAny(folded, proMarkers) {
		return TierPro
	}
	if containsAny(folded, startMarkers) {
		return TierStart
	}
	return classifyUnrecognizedPaid(planName)
}

// classifyUnrecognizedPaid is the fallback for a paid plan whose name matches
// no marker. It deliberately grants the lowest paid tier, never pro.
func classifyUnrecognizedPaid(string) Tier {
	return TierStart
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
