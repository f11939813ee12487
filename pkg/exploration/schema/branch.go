package schema

import (
	"fmt"
	"strings"

	"game-exploration-be/pkg/exploration"
)

const (
	MinBranches = 3
	MaxBranches = 6
	// MinBranchDistance is the number of dimension picks any two branches must differ in.
	MinBranchDistance = 2
)

type Branch struct {
	BranchID       string            `json:"branch_id" validate:"required"`
	Name           string            `json:"name" validate:"required"`
	PlayerFantasy  string            `json:"player_fantasy,omitempty"`
	GameplayHook   string            `json:"gameplay_hook,omitempty"`
	CoreMechanics  []string          `json:"core_mechanics,omitempty"`
	Picked         map[string]string `json:"picked"`
	WhyThisBranch  []string          `json:"why_this_branch,omitempty"`
	Risks          []string          `json:"risks,omitempty"`
	WhatToValidate []string          `json:"what_to_validate,omitempty"`
}

type BranchSet struct {
	Branches []Branch `json:"branches" validate:"required,dive"`
}

// CheckBranches validates a branch set against the active dimensions and
// locked values. Missing locked picks are filled in; every other deviation is
// returned as a human-readable violation.
func CheckBranches(set *BranchSet, dimensions []string, locked map[string]string) []string {
	var violations []string
	n := len(set.Branches)
	if n < MinBranches || n > MaxBranches {
		violations = append(violations, fmt.Sprintf("expected %d-%d branches, got %d", MinBranches, MaxBranches, n))
	}

	seen := map[string]struct{}{}
	for i := range set.Branches {
		b := &set.Branches[i]
		b.Picked = normalizePicks(b.Picked)
		if _, dup := seen[b.BranchID]; dup {
			violations = append(violations, fmt.Sprintf("duplicate branch_id %q", b.BranchID))
		}
		seen[b.BranchID] = struct{}{}

		for _, dim := range dimensions {
			if strings.TrimSpace(b.Picked[dim]) == "" {
				violations = append(violations, fmt.Sprintf("branch %s has no pick for dimension %q", b.BranchID, dim))
			}
		}
		for key, value := range locked {
			got, ok := b.Picked[key]
			if !ok || got == "" {
				if value != "" {
					b.Picked[key] = value
				}
				continue
			}
			if value != "" && strings.TrimSpace(got) != value {
				violations = append(violations, fmt.Sprintf("branch %s changes locked %q from %q to %q", b.BranchID, key, value, got))
			}
		}
	}

	required := RequiredDistance(len(dimensions))
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := Distance(set.Branches[i], set.Branches[j], dimensions)
			if d < required {
				violations = append(violations, fmt.Sprintf("branches %s and %s differ in %d dimensions (need %d)",
					set.Branches[i].BranchID, set.Branches[j].BranchID, d, required))
			}
		}
	}
	return violations
}

// Distance is the number of dimensions on which two branches pick different values.
func Distance(a, b Branch, dimensions []string) int {
	d := 0
	for _, dim := range dimensions {
		if normalizeToken(a.Picked[dim]) != normalizeToken(b.Picked[dim]) {
			d++
		}
	}
	return d
}

// RequiredDistance caps the pairwise distance at the number of active dimensions.
func RequiredDistance(dims int) int {
	if dims < MinBranchDistance {
		return dims
	}
	return MinBranchDistance
}

func normalizePicks(picked map[string]string) map[string]string {
	out := make(map[string]string, len(picked))
	for k, v := range picked {
		out[normalizeToken(k)] = strings.TrimSpace(v)
	}
	return out
}

// ConstraintError builds the error returned when violations survive a re-prompt.
func ConstraintError(stage string, violations []string) error {
	return fmt.Errorf("%w: %s: %s", exploration.ErrConstraintViolation, stage, strings.Join(violations, "; "))
}
