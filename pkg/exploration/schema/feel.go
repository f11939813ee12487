package schema

import (
	"encoding/json"
	"fmt"

	"game-exploration-be/pkg/exploration"
)

// FeelSpec is the numeric micro-spec guiding code customization. Sections not
// relevant to a game are omitted.
type FeelSpec struct {
	MovementModel  map[string]interface{} `json:"movement_model,omitempty"`
	JumpModel      map[string]interface{} `json:"jump_model,omitempty"`
	Input          map[string]interface{} `json:"input,omitempty"`
	Camera         map[string]interface{} `json:"camera,omitempty"`
	Bounds         map[string]interface{} `json:"bounds,omitempty"`
	VisualFeedback map[string]interface{} `json:"visual_feedback,omitempty"`
	Tuning         map[string]interface{} `json:"tuning,omitempty"`
}

func (f *FeelSpec) Empty() bool {
	return f == nil || (len(f.MovementModel) == 0 && len(f.JumpModel) == 0 && len(f.Input) == 0 &&
		len(f.Camera) == 0 && len(f.Bounds) == 0 && len(f.VisualFeedback) == 0 && len(f.Tuning) == 0)
}

func (f *FeelSpec) Check() error {
	if f.Empty() {
		return fmt.Errorf("%w: feel spec has no sections", exploration.ErrMalformedOutput)
	}
	return nil
}

func (f *FeelSpec) JSON() string {
	if f == nil {
		return "{}"
	}
	b, _ := json.MarshalIndent(f, "", "  ")
	return string(b)
}

// FileMap maps file paths to their full content.
type FileMap map[string]string

const EntryFile = "index.html"

// RequireEntry checks a generated game carries a non-empty entry file.
func (m FileMap) RequireEntry() error {
	if m[EntryFile] == "" {
		return fmt.Errorf("%w: generated files have no %s", exploration.ErrMalformedOutput, EntryFile)
	}
	return nil
}

// Truncated returns a copy with every file cut to limit characters (runes).
func (m FileMap) Truncated(limit int) FileMap {
	out := make(FileMap, len(m))
	for path, content := range m {
		out[path] = truncateRunes(content, limit)
	}
	return out
}

func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
