package entity

import (
	"time"

	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/state"

	"github.com/google/uuid"
)

// HypothesisLedger is append-only during a session; finish may rewrite it.
type HypothesisLedger struct {
	Validated     []string `json:"validated"`
	Rejected      []string `json:"rejected"`
	OpenQuestions []string `json:"open_questions"`
}

func NewHypothesisLedger() HypothesisLedger {
	return HypothesisLedger{Validated: []string{}, Rejected: []string{}, OpenQuestions: []string{}}
}

type ExplorationSession struct {
	Id               uint
	ProjectId        uuid.UUID
	UserInput        string
	Decomposition    *schema.Decomposition
	State            state.State
	SelectedOptionId *string
	HypothesisLedger HypothesisLedger
	FeelSpec         *schema.FeelSpec
	IterationCount   int
	CreatedAt        time.Time
	UpdatedAt        *time.Time
}

type ExplorationOption struct {
	Id                    uint
	SessionId             uint
	OptionId              string
	BranchId              string
	Title                 string
	CoreLoop              string
	Controls              string
	Mechanics             []string
	Picked                map[string]string
	TemplateId            string
	Complexity            string
	MobileFit             string
	AssumptionsToValidate []string
	IsRecommended         bool
	CreatedAt             time.Time
}

// Spec returns the option as the stage schema sees it.
func (o *ExplorationOption) Spec() schema.Option {
	return schema.Option{
		OptionID:              o.OptionId,
		BranchID:              o.BranchId,
		Title:                 o.Title,
		CoreLoop:              o.CoreLoop,
		Controls:              o.Controls,
		Mechanics:             o.Mechanics,
		TemplateID:            o.TemplateId,
		Complexity:            o.Complexity,
		MobileFit:             o.MobileFit,
		AssumptionsToValidate: o.AssumptionsToValidate,
		IsRecommended:         o.IsRecommended,
		Picked:                o.Picked,
	}
}

func NewExplorationOption(sessionId uint, o schema.Option) *ExplorationOption {
	return &ExplorationOption{
		SessionId:             sessionId,
		OptionId:              o.OptionID,
		BranchId:              o.BranchID,
		Title:                 o.Title,
		CoreLoop:              o.CoreLoop,
		Controls:              o.Controls,
		Mechanics:             o.Mechanics,
		Picked:                o.Picked,
		TemplateId:            o.TemplateID,
		Complexity:            o.Complexity,
		MobileFit:             o.MobileFit,
		AssumptionsToValidate: o.AssumptionsToValidate,
		IsRecommended:         o.IsRecommended,
	}
}

type MemoryNote struct {
	Id              uint
	ProjectId       uuid.UUID
	Kind            schema.NoteKind
	Content         schema.NoteContent
	Tags            []string
	Confidence      float64
	SourceSessionId *uint
	SourceVersionId *uint
	CreatedAt       time.Time
}

type UserPreference struct {
	Id         uint
	ProjectId  uuid.UUID
	Preference schema.Preference
	UpdatedAt  time.Time
}
