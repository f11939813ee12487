package schema

import (
	"encoding/json"
	"fmt"
)

// Preference is the per-project aggregate of what the user tends to want.
type Preference struct {
	Platform      string `json:"platform,omitempty"`
	Input         string `json:"input,omitempty"`
	Pace          string `json:"pace,omitempty"`
	SessionLength string `json:"session_length,omitempty"`
	Difficulty    string `json:"difficulty,omitempty"`
	VisualDensity string `json:"visual_density,omitempty"`
}

func (p *Preference) Empty() bool {
	return p == nil || *p == (Preference{})
}

type FinalChoice struct {
	OptionID string `json:"option_id"`
	Why      string `json:"why,omitempty"`
}

type KeyDecision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
	Evidence string `json:"evidence,omitempty"`
}

// Synthesis is the finish-time structured conclusion returned by the provider.
type Synthesis struct {
	Title               string        `json:"title"`
	Summary             string        `json:"summary" validate:"required"`
	UserPreferences     Preference    `json:"user_preferences"`
	FinalChoice         *FinalChoice  `json:"final_choice,omitempty"`
	ValidatedHypotheses []string      `json:"validated_hypotheses"`
	RejectedHypotheses  []string      `json:"rejected_hypotheses"`
	KeyDecisions        []KeyDecision `json:"key_decisions"`
	PitfallsAndGuards   []string      `json:"pitfalls_and_guards"`
}

type NoteKind string

const (
	KindDesignDecision    NoteKind = "design_decision"
	KindExplorationFinish NoteKind = "exploration_finish"
)

const (
	DesignDecisionConfidence = 0.6
	FinishConfidence         = 0.85
)

func (k NoteKind) Valid() bool {
	return k == KindDesignDecision || k == KindExplorationFinish
}

type NoteRefs struct {
	ExplorationSessionID uint  `json:"exploration_session_id"`
	StableVersionID      *uint `json:"stable_version_id,omitempty"`
}

type OptionSummary struct {
	OptionID      string `json:"option_id"`
	Title         string `json:"title"`
	CoreLoop      string `json:"core_loop"`
	Controls      string `json:"controls"`
	IsRecommended bool   `json:"is_recommended"`
}

// DecisionDetail is carried only by design_decision notes.
type DecisionDetail struct {
	UserInput         string          `json:"user_input,omitempty"`
	Decomposition     *Decomposition  `json:"decomposition,omitempty"`
	Dimensions        []string        `json:"dimensions,omitempty"`
	HardConstraints   []string        `json:"hard_constraints,omitempty"`
	Locked            *Locked         `json:"locked,omitempty"`
	OptionsConsidered []OptionSummary `json:"options_considered,omitempty"`
	SelectedOption    *Option         `json:"selected_option,omitempty"`
	FeelSpec          *FeelSpec       `json:"feel_spec,omitempty"`
}

// NoteContent is the tagged union stored in a memory note. A payload without a
// "type" field decodes as an exploration_finish note.
type NoteContent struct {
	Kind                NoteKind      `json:"type"`
	Title               string        `json:"title"`
	Summary             string        `json:"summary"`
	UserPreferences     *Preference   `json:"user_preferences,omitempty"`
	FinalChoice         *FinalChoice  `json:"final_choice,omitempty"`
	ValidatedHypotheses []string      `json:"validated_hypotheses"`
	RejectedHypotheses  []string      `json:"rejected_hypotheses"`
	KeyDecisions        []KeyDecision `json:"key_decisions"`
	PitfallsAndGuards   []string      `json:"pitfalls_and_guards"`
	Refs                *NoteRefs     `json:"refs,omitempty"`
	*DecisionDetail
}

func (n *NoteContent) UnmarshalJSON(data []byte) error {
	type alias NoteContent
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	if a.Kind == "" {
		a.Kind = KindExplorationFinish
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown memory note type %q", a.Kind)
	}
	*n = NoteContent(a)
	return nil
}

// FinishNote turns a synthesis into finish-time note content.
func FinishNote(s *Synthesis, refs NoteRefs) NoteContent {
	pref := s.UserPreferences
	content := NoteContent{
		Kind:                KindExplorationFinish,
		Title:               s.Title,
		Summary:             s.Summary,
		FinalChoice:         s.FinalChoice,
		ValidatedHypotheses: nonNil(s.ValidatedHypotheses),
		RejectedHypotheses:  nonNil(s.RejectedHypotheses),
		KeyDecisions:        s.KeyDecisions,
		PitfallsAndGuards:   nonNil(s.PitfallsAndGuards),
		Refs:                &refs,
	}
	if !pref.Empty() {
		content.UserPreferences = &pref
	}
	if content.Title == "" {
		content.Title = "Exploration finished"
	}
	if content.KeyDecisions == nil {
		content.KeyDecisions = []KeyDecision{}
	}
	return content
}

// Tags derives the searchable tag list from note content.
func (n *NoteContent) Tags() []string {
	var tags []string
	if p := n.UserPreferences; p != nil {
		if p.Platform != "" {
			tags = append(tags, "platform:"+p.Platform)
		}
		if p.Input != "" {
			tags = append(tags, "input:"+p.Input)
		}
		if p.Pace != "" {
			tags = append(tags, "pace:"+p.Pace)
		}
	}
	if n.FinalChoice != nil && n.FinalChoice.OptionID != "" {
		tags = append(tags, "chosen:"+n.FinalChoice.OptionID)
	}
	tags = append(tags, "type:"+string(n.Kind))
	return tags
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
