package schema

import (
	"fmt"
)

type Option struct {
	OptionID              string            `json:"option_id" validate:"required"`
	BranchID              string            `json:"branch_id"`
	Title                 string            `json:"title" validate:"required"`
	CoreLoop              string            `json:"core_loop"`
	Controls              string            `json:"controls"`
	Mechanics             []string          `json:"mechanics"`
	TemplateID            string            `json:"template_id" validate:"required"`
	Complexity            string            `json:"complexity"`
	MobileFit             string            `json:"mobile_fit"`
	AssumptionsToValidate []string          `json:"assumptions_to_validate"`
	IsRecommended         bool              `json:"is_recommended"`
	Picked                map[string]string `json:"picked,omitempty"`
}

type OptionSet struct {
	Options             []Option `json:"options" validate:"required,dive"`
	RecommendedOptionID string   `json:"recommended_option_id"`
}

var (
	complexities = map[string]bool{"low": true, "medium": true, "high": true}
	mobileFits   = map[string]bool{"good": true, "fair": true, "poor": true}
)

// CheckOptions normalizes options and reports contract violations: one option
// per branch, unique ids, templates from the catalog, exactly one recommendation.
// Branch picks are copied onto the matching option.
func CheckOptions(set *OptionSet, branches []Branch, templateExists func(string) bool) []string {
	var violations []string
	if len(set.Options) != len(branches) {
		violations = append(violations, fmt.Sprintf("expected %d options (one per branch), got %d", len(branches), len(set.Options)))
	}

	byBranch := make(map[string]Branch, len(branches))
	for _, b := range branches {
		byBranch[b.BranchID] = b
	}

	seen := map[string]struct{}{}
	usedBranch := map[string]string{}
	for i := range set.Options {
		o := &set.Options[i]
		if _, dup := seen[o.OptionID]; dup {
			violations = append(violations, fmt.Sprintf("duplicate option_id %q", o.OptionID))
		}
		seen[o.OptionID] = struct{}{}

		if !templateExists(o.TemplateID) {
			violations = append(violations, fmt.Sprintf("option %s references unknown template %q", o.OptionID, o.TemplateID))
		}

		o.Complexity = normalizeToken(o.Complexity)
		if o.Complexity == "" {
			o.Complexity = "medium"
		}
		if !complexities[o.Complexity] {
			violations = append(violations, fmt.Sprintf("option %s has invalid complexity %q", o.OptionID, o.Complexity))
		}
		o.MobileFit = normalizeToken(o.MobileFit)
		if o.MobileFit == "" {
			o.MobileFit = "good"
		}
		if !mobileFits[o.MobileFit] {
			violations = append(violations, fmt.Sprintf("option %s has invalid mobile_fit %q", o.OptionID, o.MobileFit))
		}

		if b, ok := byBranch[o.BranchID]; ok {
			o.Picked = b.Picked
		} else if i < len(branches) && o.BranchID == "" {
			o.BranchID = branches[i].BranchID
			o.Picked = branches[i].Picked
		} else {
			violations = append(violations, fmt.Sprintf("option %s references unknown branch %q", o.OptionID, o.BranchID))
		}
		if prev, dup := usedBranch[o.BranchID]; dup && o.BranchID != "" {
			violations = append(violations, fmt.Sprintf("options %s and %s map the same branch %q", prev, o.OptionID, o.BranchID))
		}
		usedBranch[o.BranchID] = o.OptionID
		if o.Mechanics == nil {
			o.Mechanics = []string{}
		}
		if o.AssumptionsToValidate == nil {
			o.AssumptionsToValidate = []string{}
		}
	}

	if set.RecommendedOptionID != "" {
		if _, ok := seen[set.RecommendedOptionID]; !ok {
			violations = append(violations, fmt.Sprintf("recommended_option_id %q matches no option", set.RecommendedOptionID))
		} else {
			for i := range set.Options {
				set.Options[i].IsRecommended = set.Options[i].OptionID == set.RecommendedOptionID
			}
		}
	}
	recommended := 0
	for _, o := range set.Options {
		if o.IsRecommended {
			recommended++
		}
	}
	if recommended != 1 {
		violations = append(violations, fmt.Sprintf("expected exactly one recommended option, got %d", recommended))
	} else if set.RecommendedOptionID == "" {
		for _, o := range set.Options {
			if o.IsRecommended {
				set.RecommendedOptionID = o.OptionID
			}
		}
	}
	return violations
}
