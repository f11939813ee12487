package schema

import (
	"fmt"
	"sort"
	"strings"

	"game-exploration-be/pkg/exploration"
)

type Mode string

const (
	ModeFresh      Mode = "fresh"
	ModeContextual Mode = "contextual"
)

// ReferenceDimensions guide fresh decomposition. Only ambiguous ones are emitted.
var ReferenceDimensions = []string{
	"controls", "presentation", "core_loop", "goals",
	"progression", "systems", "platform", "tone",
}

const (
	MinCandidates = 2
	MaxCandidates = 4
)

type Dimension struct {
	Candidates []string `json:"candidates"`
	Confidence string   `json:"confidence"`
	Signals    []string `json:"signals,omitempty"`
}

type OpenQuestion struct {
	Dimension    string `json:"dimension"`
	Question     string `json:"question"`
	WhyItMatters string `json:"why_it_matters,omitempty"`
}

// Locked lists decisions carried over from earlier sessions as "key: value" items.
type Locked struct {
	Description string   `json:"description"`
	Items       []string `json:"items"`
}

type Decomposition struct {
	Summary         string               `json:"summary" validate:"required"`
	Locked          *Locked              `json:"locked,omitempty"`
	Dimensions      map[string]Dimension `json:"dimensions"`
	HardConstraints []string             `json:"hard_constraints"`
	OpenQuestions   []OpenQuestion       `json:"open_questions"`
}

// LockedValues maps each locked key to its value. Items without a "key: value"
// shape are kept verbatim as keys with an empty value.
func (d *Decomposition) LockedValues() map[string]string {
	out := map[string]string{}
	if d == nil || d.Locked == nil {
		return out
	}
	for _, item := range d.Locked.Items {
		key, value := SplitLockedItem(item)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// DimensionNames returns active dimension names in stable order.
func (d *Decomposition) DimensionNames() []string {
	names := make([]string, 0, len(d.Dimensions))
	for name := range d.Dimensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func SplitLockedItem(item string) (string, string) {
	key, value, found := strings.Cut(item, ":")
	if !found {
		return normalizeToken(item), ""
	}
	return normalizeToken(key), strings.TrimSpace(value)
}

func LockedItem(key, value string) string {
	return fmt.Sprintf("%s: %s", key, value)
}

// MergeLocked unions model-reported locked items with the carried-over ones.
// On a key conflict the carried value wins.
func MergeLocked(reported *Locked, carried map[string]string) *Locked {
	merged := &Locked{Description: "decisions already made in the existing game"}
	if reported != nil && reported.Description != "" {
		merged.Description = reported.Description
	}
	seen := map[string]struct{}{}
	keys := make([]string, 0, len(carried))
	for k := range carried {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged.Items = append(merged.Items, LockedItem(k, carried[k]))
		seen[k] = struct{}{}
	}
	if reported != nil {
		for _, item := range reported.Items {
			key, _ := SplitLockedItem(item)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			merged.Items = append(merged.Items, strings.TrimSpace(item))
		}
	}
	return merged
}

// Normalize enforces the decomposition contract in place:
// candidates are de-duplicated, single-candidate dimensions fold into
// hard_constraints, dimensions shadowing a locked key are pruned, and
// fresh mode never carries a locked block.
func (d *Decomposition) Normalize(mode Mode, carried map[string]string) error {
	if d.Dimensions == nil {
		d.Dimensions = map[string]Dimension{}
	}
	switch mode {
	case ModeFresh:
		d.Locked = nil
	case ModeContextual:
		d.Locked = MergeLocked(d.Locked, carried)
	}
	locked := d.LockedValues()

	normalized := make(map[string]Dimension, len(d.Dimensions))
	for _, name := range d.DimensionNames() {
		dim := d.Dimensions[name]
		key := normalizeToken(name)
		if key == "" {
			continue
		}
		if _, isLocked := locked[key]; isLocked {
			continue
		}
		dim.Candidates = dedupe(dim.Candidates)
		switch {
		case len(dim.Candidates) == 0:
			continue
		case len(dim.Candidates) < MinCandidates:
			d.HardConstraints = append(d.HardConstraints, fmt.Sprintf("%s: %s", key, dim.Candidates[0]))
			continue
		case len(dim.Candidates) > MaxCandidates:
			return fmt.Errorf("%w: dimension %q has %d candidates (max %d)",
				exploration.ErrMalformedOutput, key, len(dim.Candidates), MaxCandidates)
		}
		conf, err := normalizeConfidence(dim.Confidence)
		if err != nil {
			return fmt.Errorf("%w: dimension %q: %v", exploration.ErrMalformedOutput, key, err)
		}
		dim.Confidence = conf
		normalized[key] = dim
	}
	d.Dimensions = normalized
	d.HardConstraints = dedupe(d.HardConstraints)
	if d.OpenQuestions == nil {
		d.OpenQuestions = []OpenQuestion{}
	}
	return nil
}

func normalizeConfidence(c string) (string, error) {
	switch normalizeToken(c) {
	case "high":
		return "high", nil
	case "med", "medium", "":
		return "med", nil
	case "low":
		return "low", nil
	}
	return "", fmt.Errorf("unknown confidence %q", c)
}
