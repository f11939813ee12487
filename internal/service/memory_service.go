package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/internal/repository/specification"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/pkg/exploration/memory"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/stage"
	"game-exploration-be/pkg/llm"

	"github.com/google/uuid"
)

// StageMemory is the read-only memory context fed to branch synthesis.
type StageMemory struct {
	Influence memory.Influence
	// Context is the rendered prompt section: top notes, preferences and influence.
	Context string
}

type IMemoryService interface {
	// Search runs the search_memory tool against the project's latest notes.
	Search(ctx context.Context, projectId uuid.UUID, query, filterType string) (string, error)
	// ToolHandler answers search_memory calls made by a stage for projectId.
	ToolHandler(projectId uuid.UUID) stage.ToolHandler
	ListNotes(ctx context.Context, projectId uuid.UUID) ([]*dto.MemoryNoteResponse, error)
	StageContext(ctx context.Context, projectId uuid.UUID) (*StageMemory, error)
	// FeelProfile aggregates notes and preferences across every project.
	FeelProfile(ctx context.Context) (memory.FeelProfile, error)
}

type memoryService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewMemoryService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IMemoryService {
	return &memoryService{uowFactory: uowFactory, logger: log}
}

func (s *memoryService) Search(ctx context.Context, projectId uuid.UUID, query, filterType string) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	notes, err := s.latestNotes(ctx, uow, projectId, memory.SearchWindow)
	if err != nil {
		return "", err
	}
	pref, err := s.preference(ctx, uow, projectId)
	if err != nil {
		return "", err
	}

	digest := memory.Search(notes, pref, query, filterType)
	s.logger.Debug("MEMORY", "search_memory executed", map[string]interface{}{
		"project_id":  projectId,
		"query":       query,
		"filter_type": filterType,
		"scanned":     len(notes),
	})
	return digest, nil
}

func (s *memoryService) ToolHandler(projectId uuid.UUID) stage.ToolHandler {
	return func(ctx context.Context, call llm.ToolCall) (string, error) {
		if call.Name != memory.ToolName {
			return "", fmt.Errorf("unknown tool %q", call.Name)
		}
		args, err := memory.ParseSearchArgs(call.Arguments)
		if err != nil {
			return "", err
		}
		return s.Search(ctx, projectId, args.Query, args.FilterType)
	}
}

func (s *memoryService) ListNotes(ctx context.Context, projectId uuid.UUID) ([]*dto.MemoryNoteResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := append([]specification.Specification{specification.ByProjectID{ProjectID: projectId}}, specification.Newest(0)...)
	notes, err := uow.MemoryNoteRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.MemoryNoteResponse, 0, len(notes))
	for _, n := range notes {
		r := toMemoryNoteResponse(n)
		res = append(res, &r)
	}
	return res, nil
}

func (s *memoryService) StageContext(ctx context.Context, projectId uuid.UUID) (*StageMemory, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	notes, err := s.latestNotes(ctx, uow, projectId, memory.SearchWindow)
	if err != nil {
		return nil, err
	}
	pref, err := s.preference(ctx, uow, projectId)
	if err != nil {
		return nil, err
	}

	influence := memory.BuildInfluence(notes, pref)
	raw, err := json.MarshalIndent(influence, "", "  ")
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString(memory.Digest(memory.Top(notes, memory.TopNotes), pref))
	b.WriteString("\n\nInfluence summary:\n")
	b.Write(raw)
	return &StageMemory{Influence: influence, Context: b.String()}, nil
}

func (s *memoryService) FeelProfile(ctx context.Context) (memory.FeelProfile, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	entities, err := uow.MemoryNoteRepository().FindAll(ctx, specification.Newest(memory.ProfileNoteWindow)...)
	if err != nil {
		return memory.FeelProfile{}, err
	}
	prefRows, err := uow.UserPreferenceRepository().FindAll(ctx,
		specification.OrderBy{Field: "updated_at", Desc: true},
		specification.Pagination{Limit: memory.ProfilePreferenceWindow},
	)
	if err != nil {
		return memory.FeelProfile{}, err
	}

	prefs := make([]schema.Preference, 0, len(prefRows))
	for _, p := range prefRows {
		prefs = append(prefs, p.Preference)
	}
	return memory.BuildFeelProfile(toMemoryNotes(entities), prefs), nil
}

// latestNotes returns the project's newest notes first.
func (s *memoryService) latestNotes(ctx context.Context, uow unitofwork.UnitOfWork, projectId uuid.UUID, limit int) ([]memory.Note, error) {
	specs := append([]specification.Specification{specification.ByProjectID{ProjectID: projectId}}, specification.Newest(limit)...)
	entities, err := uow.MemoryNoteRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}
	return toMemoryNotes(entities), nil
}

func (s *memoryService) preference(ctx context.Context, uow unitofwork.UnitOfWork, projectId uuid.UUID) (*schema.Preference, error) {
	row, err := uow.UserPreferenceRepository().FindOne(ctx, specification.ByProjectID{ProjectID: projectId})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, nil
	}
	pref := row.Preference
	return &pref, nil
}

func toMemoryNotes(entities []*entity.MemoryNote) []memory.Note {
	notes := make([]memory.Note, 0, len(entities))
	for _, e := range entities {
		notes = append(notes, memory.Note{
			ID:         e.Id,
			Content:    e.Content,
			Confidence: e.Confidence,
			CreatedAt:  e.CreatedAt,
		})
	}
	return notes
}

func toMemoryNoteResponse(n *entity.MemoryNote) dto.MemoryNoteResponse {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	return dto.MemoryNoteResponse{
		Id:              n.Id,
		ProjectId:       n.ProjectId,
		Kind:            string(n.Kind),
		Content:         n.Content,
		Tags:            tags,
		Confidence:      n.Confidence,
		SourceSessionId: n.SourceSessionId,
		SourceVersionId: n.SourceVersionId,
		CreatedAt:       n.CreatedAt,
	}
}
