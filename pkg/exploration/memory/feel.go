package memory

import (
	"math"
	"sort"

	"game-exploration-be/pkg/exploration/schema"
)

const (
	// ProfileNoteWindow and ProfilePreferenceWindow bound the cross-project feel profile inputs.
	ProfileNoteWindow       = 50
	ProfilePreferenceWindow = 10

	profileListLimit = 15
)

// FeelProfile is the cross-project summary of how the user likes games to feel.
// Stage D receives it next to the game-type defaults.
type FeelProfile struct {
	StyleTendency    string                 `json:"style_tendency"`
	DevicePreference string                 `json:"device_preference"`
	InputPreference  string                 `json:"input_preference"`
	SessionLength    string                 `json:"session_length"`
	FeedbackLevel    string                 `json:"feedback_level"`
	Likes            []string               `json:"likes"`
	Dislikes         []string               `json:"dislikes"`
	TuningTendencies map[string]interface{} `json:"tuning_tendencies"`
	SessionCount     int                    `json:"session_count"`
}

var feedbackByPace = map[string]string{
	"fast":   "strong",
	"medium": "moderate",
	"slow":   "minimal",
	"idle":   "minimal",
}

// BuildFeelProfile aggregates notes and preference records from every project.
func BuildFeelProfile(notes []Note, prefs []schema.Preference) FeelProfile {
	if len(notes) > ProfileNoteWindow {
		notes = notes[:ProfileNoteWindow]
	}
	if len(prefs) > ProfilePreferenceWindow {
		prefs = prefs[:ProfilePreferenceWindow]
	}
	profile := FeelProfile{
		Likes:            []string{},
		Dislikes:         []string{},
		TuningTendencies: map[string]interface{}{},
		SessionCount:     len(notes),
	}

	platform, input, pace, session := votes{}, votes{}, votes{}, votes{}
	for _, p := range prefs {
		platform.add(p.Platform)
		input.add(p.Input)
		pace.add(p.Pace)
		session.add(p.SessionLength)
	}
	profile.DevicePreference = platform.top()
	profile.InputPreference = input.top()
	profile.SessionLength = session.top()

	likes, dislikes := map[string]struct{}{}, map[string]struct{}{}
	var gravity, dragRatios []float64
	presets := votes{}
	for _, n := range notes {
		for _, h := range n.Content.ValidatedHypotheses {
			likes[h] = struct{}{}
		}
		for _, h := range n.Content.RejectedHypotheses {
			dislikes[h] = struct{}{}
		}
		for _, h := range n.Content.PitfallsAndGuards {
			dislikes[h] = struct{}{}
		}
		d := n.Content.DecisionDetail
		if d == nil || d.FeelSpec == nil {
			continue
		}
		if g, ok := number(d.FeelSpec.JumpModel["gravity"]); ok {
			gravity = append(gravity, g)
		}
		accel, okA := number(d.FeelSpec.MovementModel["accel"])
		drag, okD := number(d.FeelSpec.MovementModel["drag"])
		if okA && okD && accel > 0 {
			dragRatios = append(dragRatios, drag/accel)
		}
		if p, ok := d.FeelSpec.Tuning["default_preset"].(string); ok {
			presets.add(p)
		}
	}
	profile.Likes = sortedHead(likes, profileListLimit)
	profile.Dislikes = sortedHead(dislikes, profileListLimit)

	if len(gravity) > 0 {
		profile.TuningTendencies["avg_gravity"] = math.Round(mean(gravity))
	}
	if len(dragRatios) > 0 {
		ratio := mean(dragRatios)
		profile.TuningTendencies["avg_drag_ratio"] = math.Round(ratio*100) / 100
		switch {
		case ratio >= 0.85:
			profile.StyleTendency = "tight"
		case ratio <= 0.5:
			profile.StyleTendency = "floaty"
		default:
			profile.StyleTendency = "arcade"
		}
	}
	if preset := presets.top(); preset != "" {
		profile.TuningTendencies["preferred_preset"] = preset
		if profile.StyleTendency == "" {
			profile.StyleTendency = preset
		}
	}
	if top := pace.top(); top != "" {
		profile.FeedbackLevel = "moderate"
		if level, ok := feedbackByPace[top]; ok {
			profile.FeedbackLevel = level
		}
	}
	return profile
}

// votes counts values in arrival order so ties resolve to the first seen.
type votes struct {
	order  []string
	counts map[string]int
}

func (v *votes) add(s string) {
	if s == "" {
		return
	}
	if v.counts == nil {
		v.counts = map[string]int{}
	}
	if v.counts[s] == 0 {
		v.order = append(v.order, s)
	}
	v.counts[s]++
}

func (v *votes) top() string {
	best, n := "", 0
	for _, s := range v.order {
		if v.counts[s] > n {
			best, n = s, v.counts[s]
		}
	}
	return best
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func mean(xs []float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func sortedHead(set map[string]struct{}, limit int) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return head(out, limit)
}
