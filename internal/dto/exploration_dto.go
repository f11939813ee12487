package dto

import (
	"time"

	"game-exploration-be/internal/entity"
	"game-exploration-be/pkg/exploration/memory"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/schema"

	"github.com/google/uuid"
)

type ExploreRequest struct {
	UserInput string `json:"user_input" validate:"required,max=4000"`
}

type OptionResponse struct {
	OptionId              string            `json:"option_id"`
	BranchId              string            `json:"branch_id"`
	Title                 string            `json:"title"`
	CoreLoop              string            `json:"core_loop"`
	Controls              string            `json:"controls"`
	Mechanics             []string          `json:"mechanics"`
	TemplateId            string            `json:"template_id"`
	GameType              string            `json:"game_type"`
	Complexity            string            `json:"complexity"`
	MobileFit             string            `json:"mobile_fit"`
	AssumptionsToValidate []string          `json:"assumptions_to_validate"`
	IsRecommended         bool              `json:"is_recommended"`
	Picked                map[string]string `json:"picked,omitempty"`
}

type ExploreResponse struct {
	SessionId       uint                  `json:"session_id"`
	State           string                `json:"state"`
	Mode            string                `json:"mode"`
	Decomposition   *schema.Decomposition `json:"decomposition"`
	Branches        []schema.Branch       `json:"branches"`
	Options         []OptionResponse      `json:"options"`
	MemoryInfluence *memory.Influence     `json:"memory_influence"`
}

type SelectOptionRequest struct {
	SessionId uint   `json:"session_id" validate:"required"`
	OptionId  string `json:"option_id" validate:"required,max=100"`
}

type SelectOptionResponse struct {
	SessionId uint   `json:"session_id"`
	OptionId  string `json:"option_id"`
	VersionId uint   `json:"version_id"`
	State     string `json:"state"`
}

type IterateRequest struct {
	SessionId uint   `json:"session_id" validate:"required"`
	UserInput string `json:"user_input" validate:"required,max=4000"`
}

type IterateResponse struct {
	SessionId        uint                    `json:"session_id"`
	VersionId        uint                    `json:"version_id"`
	IterationCount   int                     `json:"iteration_count"`
	HypothesisLedger entity.HypothesisLedger `json:"hypothesis_ledger"`
	State            string                  `json:"state"`
}

type FinishExplorationRequest struct {
	SessionId uint `json:"session_id" validate:"required"`
}

type MemoryNoteResponse struct {
	Id              uint               `json:"id"`
	ProjectId       uuid.UUID          `json:"project_id"`
	Kind            string             `json:"kind"`
	Content         schema.NoteContent `json:"content_json"`
	Tags            []string           `json:"tags"`
	Confidence      float64            `json:"confidence"`
	SourceSessionId *uint              `json:"source_session_id"`
	SourceVersionId *uint              `json:"source_version_id"`
	CreatedAt       time.Time          `json:"created_at"`
}

type FinishExplorationResponse struct {
	SessionId  uint               `json:"session_id"`
	MemoryNote MemoryNoteResponse `json:"memory_note"`
	State      string             `json:"state"`
}

type ExplorationStateResponse struct {
	SessionId        uint                    `json:"session_id"`
	State            string                  `json:"state"`
	SelectedOptionId *string                 `json:"selected_option_id"`
	IterationCount   int                     `json:"iteration_count"`
	HypothesisLedger entity.HypothesisLedger `json:"hypothesis_ledger"`
}

type ActiveSessionResponse struct {
	SessionId        uint                    `json:"session_id"`
	State            string                  `json:"state"`
	UserInput        string                  `json:"user_input"`
	Decomposition    *schema.Decomposition   `json:"decomposition"`
	Options          []OptionResponse        `json:"options"`
	SelectedOptionId *string                 `json:"selected_option_id"`
	HypothesisLedger entity.HypothesisLedger `json:"hypothesis_ledger"`
	IterationCount   int                     `json:"iteration_count"`
}

type PreviewOptionRequest struct {
	SessionId uint   `json:"session_id" validate:"required"`
	OptionId  string `json:"option_id" validate:"required,max=100"`
}

type PreviewOptionResponse struct {
	SessionId    uint      `json:"session_id"`
	OptionId     string    `json:"option_id"`
	PreviewReady bool      `json:"preview_ready"`
	Cached       bool      `json:"cached"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type FixPreviewRequest struct {
	SessionId uint                   `json:"session_id" validate:"required"`
	OptionId  string                 `json:"option_id" validate:"required,max=100"`
	Errors    []preview.RuntimeError `json:"errors" validate:"required,min=1"`
}

type FixPreviewResponse struct {
	SessionId   uint   `json:"session_id"`
	OptionId    string `json:"option_id"`
	Fixed       bool   `json:"fixed"`
	FixAttempts int    `json:"fix_attempts"`
}

type PreviewingRequest struct {
	SessionId uint  `json:"session_id" validate:"required"`
	Active    *bool `json:"active" validate:"required"`
}

type PreviewingResponse struct {
	SessionId uint   `json:"session_id"`
	State     string `json:"state"`
}
