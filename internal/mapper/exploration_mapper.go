package mapper

import (
	"encoding/json"
	"time"

	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/model"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/state"

	"gorm.io/datatypes"
)

type ExplorationMapper struct{}

func NewExplorationMapper() *ExplorationMapper {
	return &ExplorationMapper{}
}

func toJSON(v interface{}) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// fromJSON leaves out untouched when raw is empty or null.
func fromJSON(raw datatypes.JSON, out interface{}) {
	if len(raw) == 0 || string(raw) == "null" {
		return
	}
	_ = json.Unmarshal(raw, out)
}

// Session Mappers

func (m *ExplorationMapper) SessionToEntity(s *model.ExplorationSession) *entity.ExplorationSession {
	if s == nil {
		return nil
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	var decomposition *schema.Decomposition
	if len(s.Decomposition) > 0 && string(s.Decomposition) != "null" {
		decomposition = &schema.Decomposition{}
		fromJSON(s.Decomposition, decomposition)
	}

	var feel *schema.FeelSpec
	if len(s.FeelSpec) > 0 && string(s.FeelSpec) != "null" {
		feel = &schema.FeelSpec{}
		fromJSON(s.FeelSpec, feel)
	}

	ledger := entity.NewHypothesisLedger()
	fromJSON(s.HypothesisLedger, &ledger)
	if ledger.Validated == nil {
		ledger.Validated = []string{}
	}
	if ledger.Rejected == nil {
		ledger.Rejected = []string{}
	}
	if ledger.OpenQuestions == nil {
		ledger.OpenQuestions = []string{}
	}

	return &entity.ExplorationSession{
		Id:               s.Id,
		ProjectId:        s.ProjectId,
		UserInput:        s.UserInput,
		Decomposition:    decomposition,
		State:            state.State(s.State),
		SelectedOptionId: s.SelectedOptionId,
		HypothesisLedger: ledger,
		FeelSpec:         feel,
		IterationCount:   s.IterationCount,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

func (m *ExplorationMapper) SessionToModel(s *entity.ExplorationSession) *model.ExplorationSession {
	if s == nil {
		return nil
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	var decomposition, feel datatypes.JSON
	if s.Decomposition != nil {
		decomposition = toJSON(s.Decomposition)
	}
	if s.FeelSpec != nil {
		feel = toJSON(s.FeelSpec)
	}

	return &model.ExplorationSession{
		Id:               s.Id,
		ProjectId:        s.ProjectId,
		UserInput:        s.UserInput,
		Decomposition:    decomposition,
		State:            string(s.State),
		SelectedOptionId: s.SelectedOptionId,
		HypothesisLedger: toJSON(s.HypothesisLedger),
		FeelSpec:         feel,
		IterationCount:   s.IterationCount,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        updatedAt,
	}
}

// Option Mappers

func (m *ExplorationMapper) OptionToEntity(o *model.ExplorationOption) *entity.ExplorationOption {
	if o == nil {
		return nil
	}

	mechanics := []string{}
	fromJSON(o.Mechanics, &mechanics)
	assumptions := []string{}
	fromJSON(o.AssumptionsToValidate, &assumptions)
	picked := map[string]string{}
	fromJSON(o.Picked, &picked)

	return &entity.ExplorationOption{
		Id:                    o.Id,
		SessionId:             o.SessionId,
		OptionId:              o.OptionId,
		BranchId:              o.BranchId,
		Title:                 o.Title,
		CoreLoop:              o.CoreLoop,
		Controls:              o.Controls,
		Mechanics:             mechanics,
		Picked:                picked,
		TemplateId:            o.TemplateId,
		Complexity:            o.Complexity,
		MobileFit:             o.MobileFit,
		AssumptionsToValidate: assumptions,
		IsRecommended:         o.IsRecommended,
		CreatedAt:             o.CreatedAt,
	}
}

func (m *ExplorationMapper) OptionToModel(o *entity.ExplorationOption) *model.ExplorationOption {
	if o == nil {
		return nil
	}
	return &model.ExplorationOption{
		Id:                    o.Id,
		SessionId:             o.SessionId,
		OptionId:              o.OptionId,
		BranchId:              o.BranchId,
		Title:                 o.Title,
		CoreLoop:              o.CoreLoop,
		Controls:              o.Controls,
		Mechanics:             toJSON(nonNilStrings(o.Mechanics)),
		Picked:                toJSON(o.Picked),
		TemplateId:            o.TemplateId,
		Complexity:            o.Complexity,
		MobileFit:             o.MobileFit,
		AssumptionsToValidate: toJSON(nonNilStrings(o.AssumptionsToValidate)),
		IsRecommended:         o.IsRecommended,
		CreatedAt:             o.CreatedAt,
	}
}

func (m *ExplorationMapper) OptionsToEntities(models []*model.ExplorationOption) []*entity.ExplorationOption {
	out := make([]*entity.ExplorationOption, len(models))
	for i, o := range models {
		out[i] = m.OptionToEntity(o)
	}
	return out
}

// Memory Mappers

func (m *ExplorationMapper) MemoryNoteToEntity(n *model.ExplorationMemoryNote) *entity.MemoryNote {
	if n == nil {
		return nil
	}

	var content schema.NoteContent
	if err := json.Unmarshal(n.Content, &content); err != nil {
		// Unknown payloads still render with their stored kind
		content = schema.NoteContent{Kind: schema.NoteKind(n.Kind)}
	}
	tags := []string{}
	fromJSON(n.Tags, &tags)

	return &entity.MemoryNote{
		Id:              n.Id,
		ProjectId:       n.ProjectId,
		Kind:            content.Kind,
		Content:         content,
		Tags:            tags,
		Confidence:      n.Confidence,
		SourceSessionId: n.SourceSessionId,
		SourceVersionId: n.SourceVersionId,
		CreatedAt:       n.CreatedAt,
	}
}

func (m *ExplorationMapper) MemoryNoteToModel(n *entity.MemoryNote) *model.ExplorationMemoryNote {
	if n == nil {
		return nil
	}
	kind := n.Kind
	if kind == "" {
		kind = n.Content.Kind
	}
	return &model.ExplorationMemoryNote{
		Id:              n.Id,
		ProjectId:       n.ProjectId,
		Kind:            string(kind),
		Content:         toJSON(n.Content),
		Tags:            toJSON(nonNilStrings(n.Tags)),
		Confidence:      n.Confidence,
		SourceSessionId: n.SourceSessionId,
		SourceVersionId: n.SourceVersionId,
		CreatedAt:       n.CreatedAt,
	}
}

func (m *ExplorationMapper) PreferenceToEntity(p *model.UserPreference) *entity.UserPreference {
	if p == nil {
		return nil
	}
	var pref schema.Preference
	fromJSON(p.Preference, &pref)
	return &entity.UserPreference{
		Id:         p.Id,
		ProjectId:  p.ProjectId,
		Preference: pref,
		UpdatedAt:  p.UpdatedAt,
	}
}

func (m *ExplorationMapper) PreferenceToModel(p *entity.UserPreference) *model.UserPreference {
	if p == nil {
		return nil
	}
	return &model.UserPreference{
		Id:         p.Id,
		ProjectId:  p.ProjectId,
		Preference: toJSON(p.Preference),
		UpdatedAt:  p.UpdatedAt,
	}
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
