// Package memory turns stored exploration notes into the context handed to
// pipeline stages: the search_memory tool digest and the static influence summary.
package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/llm"
)

const (
	// SearchWindow is how many of the latest notes a tool search scans.
	SearchWindow = 20
	// DigestLimit caps the notes rendered into one digest.
	DigestLimit = 10
	// InfluenceWindow is how many latest notes feed the influence summary.
	InfluenceWindow = 5
	// TopNotes is how many notes Stage B receives as prior context.
	TopNotes = 2

	influencePerNote = 3

	NoMemories = "No relevant memories found for this project."
)

const (
	FilterAll            = "all"
	FilterDesignDecision = string(schema.KindDesignDecision)
	FilterFinish         = string(schema.KindExplorationFinish)
)

// Note is a stored memory note as seen by the pipeline.
type Note struct {
	ID         uint
	Content    schema.NoteContent
	Confidence float64
	CreatedAt  time.Time
}

func ValidFilter(f string) bool {
	return f == FilterAll || f == FilterDesignDecision || f == FilterFinish
}

// Matches reports whether the note passes the type filter and has at least one
// query term in its serialized content. An empty query matches everything.
func Matches(n Note, query, filter string) bool {
	if filter != "" && filter != FilterAll && string(n.Content.Kind) != filter {
		return false
	}
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return true
	}
	raw, err := json.Marshal(n.Content)
	if err != nil {
		return false
	}
	text := strings.ToLower(string(raw))
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Search filters notes (newest first) and renders the digest returned to the model.
// When the query matches nothing the newest notes of the requested type are used.
func Search(notes []Note, pref *schema.Preference, query, filter string) string {
	if !ValidFilter(filter) {
		filter = FilterAll
	}
	if len(notes) > SearchWindow {
		notes = notes[:SearchWindow]
	}

	var matched []Note
	for _, n := range notes {
		if Matches(n, query, filter) {
			matched = append(matched, n)
		}
	}
	if len(matched) == 0 {
		head := notes
		if len(head) > DigestLimit {
			head = head[:DigestLimit]
		}
		for _, n := range head {
			if Matches(n, "", filter) {
				matched = append(matched, n)
			}
		}
	}
	if len(matched) > DigestLimit {
		matched = matched[:DigestLimit]
	}
	return Digest(matched, pref)
}

// Digest renders notes and the preference record as plain text.
func Digest(notes []Note, pref *schema.Preference) string {
	var parts []string
	if !pref.Empty() {
		parts = append(parts, "User Preferences: "+mustJSON(pref))
	}
	for i, n := range notes {
		parts = append(parts, renderNote(i+1, &n.Content))
	}
	if len(parts) == 0 {
		return NoMemories
	}
	return strings.Join(parts, "\n")
}

func renderNote(index int, c *schema.NoteContent) string {
	title := c.Title
	if title == "" {
		title = "Untitled"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "\n--- Memory #%d: %s ---", index, title)
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "\n%s: %s", label, value)
		}
	}
	line("Summary", c.Summary)
	line("Type", string(c.Kind))
	if d := c.DecisionDetail; d != nil && d.SelectedOption != nil {
		line("Selected", mustJSON(d.SelectedOption))
	}
	if len(c.ValidatedHypotheses) > 0 {
		line("Validated", mustJSON(c.ValidatedHypotheses))
	}
	if len(c.RejectedHypotheses) > 0 {
		line("Rejected", mustJSON(c.RejectedHypotheses))
	}
	if len(c.KeyDecisions) > 0 {
		line("Key decisions", mustJSON(c.KeyDecisions))
	}
	if len(c.PitfallsAndGuards) > 0 {
		line("Pitfalls", mustJSON(c.PitfallsAndGuards))
	}
	if d := c.DecisionDetail; d != nil {
		if len(d.Dimensions) > 0 {
			line("Dimensions explored", mustJSON(d.Dimensions))
		}
		if len(d.HardConstraints) > 0 {
			line("Constraints", mustJSON(d.HardConstraints))
		}
	}
	if !c.UserPreferences.Empty() {
		line("Preferences", mustJSON(c.UserPreferences))
	}
	return b.String()
}

// Influence is the read-only bias summary fed to Stage B and returned by explore.
type Influence struct {
	RelevantPreferences    *schema.Preference `json:"relevant_preferences"`
	RecurringPatterns      []string           `json:"recurring_patterns"`
	Warnings               []string           `json:"warnings"`
	SuggestedDirectionBias *schema.Preference `json:"suggested_direction_bias"`
}

// BuildInfluence summarizes the latest notes (newest first). The newest note
// carrying preferences decides the suggested bias.
func BuildInfluence(notes []Note, pref *schema.Preference) Influence {
	inf := Influence{
		RelevantPreferences: &schema.Preference{},
		RecurringPatterns:   []string{},
		Warnings:            []string{},
	}
	if !pref.Empty() {
		p := *pref
		inf.RelevantPreferences = &p
	}
	if len(notes) > InfluenceWindow {
		notes = notes[:InfluenceWindow]
	}
	for _, n := range notes {
		inf.RecurringPatterns = append(inf.RecurringPatterns, head(n.Content.ValidatedHypotheses, influencePerNote)...)
		inf.Warnings = append(inf.Warnings, head(n.Content.PitfallsAndGuards, influencePerNote)...)
		if inf.SuggestedDirectionBias == nil && !n.Content.UserPreferences.Empty() {
			p := *n.Content.UserPreferences
			inf.SuggestedDirectionBias = &p
		}
	}
	return inf
}

// Top ranks notes by confidence, then recency, and keeps the first limit.
func Top(notes []Note, limit int) []Note {
	ranked := make([]Note, len(notes))
	copy(ranked, notes)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		if !ranked[i].CreatedAt.Equal(ranked[j].CreatedAt) {
			return ranked[i].CreatedAt.After(ranked[j].CreatedAt)
		}
		return ranked[i].ID > ranked[j].ID
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// SearchArgs are the arguments of a search_memory tool call.
type SearchArgs struct {
	Query      string `json:"query"`
	FilterType string `json:"filter_type"`
}

// ParseSearchArgs decodes tool-call arguments. Missing or unknown filters mean all.
func ParseSearchArgs(arguments string) (SearchArgs, error) {
	var args SearchArgs
	if strings.TrimSpace(arguments) != "" {
		if err := json.Unmarshal([]byte(arguments), &args); err != nil {
			return args, fmt.Errorf("invalid search_memory arguments: %w", err)
		}
	}
	if !ValidFilter(args.FilterType) {
		args.FilterType = FilterAll
	}
	return args, nil
}

const ToolName = "search_memory"

// SearchTool is the tool definition offered to Stages A and B.
func SearchTool() llm.Tool {
	return llm.Tool{
		Name: ToolName,
		Description: "Search past exploration memories for relevant strategy paths, design decisions, " +
			"user preferences, validated/rejected hypotheses, and lessons learned from previous game explorations.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "What to search for, e.g. 'runner game controls', 'mobile tap games', 'what was rejected before'",
				},
				"filter_type": map[string]interface{}{
					"type":        "string",
					"enum":        []string{FilterAll, FilterDesignDecision, FilterFinish},
					"description": "Filter by memory type. 'all' returns everything.",
				},
			},
			"required": []string{"query"},
		},
	}
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func mustJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}
