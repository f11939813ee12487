package service

import (
	"context"
	"fmt"
	"strings"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/internal/repository/specification"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/pkg/events"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/keylock"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/stage"
	"game-exploration-be/pkg/exploration/state"
	"game-exploration-be/pkg/templates"

	"github.com/google/uuid"
)

const explorationModule = "EXPLORATION"

type IExplorationService interface {
	Explore(ctx context.Context, projectId uuid.UUID, req *dto.ExploreRequest) (*dto.ExploreResponse, error)
	PreviewOption(ctx context.Context, projectId uuid.UUID, req *dto.PreviewOptionRequest) (*dto.PreviewOptionResponse, error)
	FixPreview(ctx context.Context, projectId uuid.UUID, req *dto.FixPreviewRequest) (*dto.FixPreviewResponse, error)
	SetPreviewing(ctx context.Context, projectId uuid.UUID, req *dto.PreviewingRequest) (*dto.PreviewingResponse, error)
	// PreviewHTML returns the cached prototype with the runtime error catcher injected.
	PreviewHTML(ctx context.Context, projectId uuid.UUID, sessionId uint, optionId string) (string, error)
	SelectOption(ctx context.Context, projectId uuid.UUID, req *dto.SelectOptionRequest) (*dto.SelectOptionResponse, error)
	Iterate(ctx context.Context, projectId uuid.UUID, req *dto.IterateRequest) (*dto.IterateResponse, error)
	FinishExploration(ctx context.Context, projectId uuid.UUID, req *dto.FinishExplorationRequest) (*dto.FinishExplorationResponse, error)
	GetState(ctx context.Context, projectId uuid.UUID, sessionId uint) (*dto.ExplorationStateResponse, error)
	GetActiveSession(ctx context.Context, projectId uuid.UUID) (*dto.ActiveSessionResponse, error)
	ListTemplates() []templates.Metadata
	TemplateHTML(templateId string) (string, error)
}

type explorationService struct {
	uowFactory unitofwork.RepositoryFactory
	runner     *stage.Runner
	catalog    *templates.Catalog
	previews   *preview.Cache
	memory     IMemoryService
	events     IEventService
	locks      *keylock.Locker
	logger     logger.ILogger
}

func NewExplorationService(
	uowFactory unitofwork.RepositoryFactory,
	runner *stage.Runner,
	catalog *templates.Catalog,
	previews *preview.Cache,
	memorySvc IMemoryService,
	eventSvc IEventService,
	log logger.ILogger,
) IExplorationService {
	return &explorationService{
		uowFactory: uowFactory,
		runner:     runner,
		catalog:    catalog,
		previews:   previews,
		memory:     memorySvc,
		events:     eventSvc,
		locks:      keylock.New(),
		logger:     log,
	}
}

// priorContext is what a contextual explore inherits from the project.
type priorContext struct {
	files   schema.FileMap
	decided string
	carried map[string]string
}

func (s *explorationService) Explore(ctx context.Context, projectId uuid.UUID, req *dto.ExploreRequest) (*dto.ExploreResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	prior, err := s.loadPriorContext(ctx, uow, projectId)
	if err != nil {
		return nil, err
	}
	mode := schema.ModeFresh
	if prior != nil {
		mode = schema.ModeContextual
	}
	fields := map[string]interface{}{"project_id": projectId.String(), "mode": string(mode)}

	decomposition, err := s.decompose(ctx, projectId, req.UserInput, mode, prior, fields)
	if err != nil {
		return nil, err
	}

	mem, err := s.memory.StageContext(ctx, projectId)
	if err != nil {
		return nil, err
	}
	branches, err := s.synthesizeBranches(ctx, projectId, decomposition, mem.Context, fields)
	if err != nil {
		return nil, err
	}
	options, err := s.mapOptions(ctx, decomposition, branches, fields)
	if err != nil {
		return nil, err
	}

	next, err := state.Transition(ctx, state.Idle, state.EventExplore)
	if err != nil {
		return nil, err
	}
	session := &entity.ExplorationSession{
		ProjectId:        projectId,
		UserInput:        req.UserInput,
		Decomposition:    decomposition,
		State:            next,
		HypothesisLedger: entity.NewHypothesisLedger(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ExplorationSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}
	rows := make([]*entity.ExplorationOption, 0, len(options.Options))
	for _, o := range options.Options {
		rows = append(rows, entity.NewExplorationOption(session.Id, o))
	}
	if err := uow.ExplorationOptionRepository().CreateBatch(ctx, rows); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info(explorationModule, "Exploration session created", map[string]interface{}{
		"project_id": projectId,
		"session_id": session.Id,
		"mode":       mode,
		"dimensions": len(decomposition.Dimensions),
		"options":    len(rows),
	})
	s.publishState(ctx, session, state.Idle)

	res := &dto.ExploreResponse{
		SessionId:     session.Id,
		State:         string(session.State),
		Mode:          string(mode),
		Decomposition: decomposition,
		Branches:      branches.Branches,
		Options:       toOptionResponses(rows),
	}
	if !mem.Influence.RelevantPreferences.Empty() {
		influence := mem.Influence
		res.MemoryInfluence = &influence
	}
	return res, nil
}

// loadPriorContext returns nil when the project has no code yet.
func (s *explorationService) loadPriorContext(ctx context.Context, uow unitofwork.UnitOfWork, projectId uuid.UUID) (*priorContext, error) {
	current, err := uow.ProjectVersionRepository().FindCurrent(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if current == nil || len(current.Files) == 0 {
		return nil, nil
	}
	prior := &priorContext{files: current.FileMap(), carried: map[string]string{}}

	specs := append([]specification.Specification{
		specification.ByProjectID{ProjectID: projectId},
		specification.HasSelection{},
	}, specification.Newest(1)...)
	last, err := uow.ExplorationSessionRepository().FindOne(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if last == nil {
		return prior, nil
	}
	option, err := uow.ExplorationOptionRepository().FindOne(ctx,
		specification.BySessionID{SessionID: last.Id},
		specification.ByOptionID{OptionID: *last.SelectedOptionId},
	)
	if err != nil {
		return nil, err
	}
	if option != nil {
		for k, v := range option.Picked {
			prior.carried[k] = v
		}
		if _, ok := prior.carried["controls"]; !ok && option.Controls != "" {
			prior.carried["controls"] = option.Controls
		}
		if _, ok := prior.carried["core_loop"]; !ok && option.CoreLoop != "" {
			prior.carried["core_loop"] = option.CoreLoop
		}
	}
	prior.decided = describeDecisions(last, option)
	return prior, nil
}

func describeDecisions(session *entity.ExplorationSession, option *entity.ExplorationOption) string {
	var b strings.Builder
	if option != nil {
		fmt.Fprintf(&b, "Game: %s\n", option.Title)
		fmt.Fprintf(&b, "Core loop: %s\n", option.CoreLoop)
		fmt.Fprintf(&b, "Controls: %s\n", option.Controls)
		fmt.Fprintf(&b, "Mechanics: %s\n", strings.Join(option.Mechanics, ", "))
		fmt.Fprintf(&b, "Complexity: %s\n", option.Complexity)
		fmt.Fprintf(&b, "Mobile fit: %s\n", option.MobileFit)
	}
	fmt.Fprintf(&b, "Iterations done: %d\n", session.IterationCount)
	if l := session.HypothesisLedger; len(l.Validated) > 0 {
		fmt.Fprintf(&b, "Validated: %s\n", strings.Join(l.Validated, "; "))
	}
	if l := session.HypothesisLedger; len(l.Rejected) > 0 {
		fmt.Fprintf(&b, "Rejected: %s\n", strings.Join(l.Rejected, "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *explorationService) GetState(ctx context.Context, projectId uuid.UUID, sessionId uint) (*dto.ExplorationStateResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.loadSession(ctx, uow, projectId, sessionId)
	if err != nil {
		return nil, err
	}
	return &dto.ExplorationStateResponse{
		SessionId:        session.Id,
		State:            string(session.State),
		SelectedOptionId: session.SelectedOptionId,
		IterationCount:   session.IterationCount,
		HypothesisLedger: session.HypothesisLedger,
	}, nil
}

func (s *explorationService) GetActiveSession(ctx context.Context, projectId uuid.UUID) (*dto.ActiveSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := append([]specification.Specification{
		specification.ByProjectID{ProjectID: projectId},
		specification.StateNotIn{States: []string{string(state.Stable), string(state.Idle)}},
	}, specification.Newest(1)...)
	session, err := uow.ExplorationSessionRepository().FindOne(ctx, specs...)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: no active exploration session", exploration.ErrNotFound)
	}
	options, err := uow.ExplorationOptionRepository().FindAll(ctx,
		specification.BySessionID{SessionID: session.Id},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return nil, err
	}
	return &dto.ActiveSessionResponse{
		SessionId:        session.Id,
		State:            string(session.State),
		UserInput:        session.UserInput,
		Decomposition:    session.Decomposition,
		Options:          toOptionResponses(options),
		SelectedOptionId: session.SelectedOptionId,
		HypothesisLedger: session.HypothesisLedger,
		IterationCount:   session.IterationCount,
	}, nil
}

func (s *explorationService) ListTemplates() []templates.Metadata {
	return s.catalog.List()
}

func (s *explorationService) TemplateHTML(templateId string) (string, error) {
	t, ok := s.catalog.Get(templateId)
	if !ok {
		return "", fmt.Errorf("%w: template %q", exploration.ErrNotFound, templateId)
	}
	html := t.FileMap()[schema.EntryFile]
	if html == "" {
		return "", fmt.Errorf("%w: template %q has no %s", exploration.ErrNotFound, templateId, schema.EntryFile)
	}
	return html, nil
}

// loadSession fails with ErrNotFound for unknown ids and sessions of other projects.
func (s *explorationService) loadSession(ctx context.Context, uow unitofwork.UnitOfWork, projectId uuid.UUID, sessionId uint) (*entity.ExplorationSession, error) {
	session, err := uow.ExplorationSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: exploration session %d", exploration.ErrNotFound, sessionId)
	}
	return session, nil
}

func (s *explorationService) loadOption(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uint, optionId string) (*entity.ExplorationOption, error) {
	option, err := uow.ExplorationOptionRepository().FindOne(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.ByOptionID{OptionID: optionId},
	)
	if err != nil {
		return nil, err
	}
	if option == nil {
		return nil, fmt.Errorf("%w: option %q in session %d", exploration.ErrNotFound, optionId, sessionId)
	}
	return option, nil
}

// lockSession serializes state-changing operations on one session.
func (s *explorationService) lockSession(ctx context.Context, sessionId uint) (func(), error) {
	return s.locks.Lock(ctx, fmt.Sprintf("session:%d", sessionId))
}

func (s *explorationService) publishState(ctx context.Context, session *entity.ExplorationSession, from state.State) {
	if from == session.State {
		return
	}
	publishQuietly(ctx, s.events, events.NewStateChanged(session.ProjectId.String(), session.Id, string(from), string(session.State)))
}

func (s *explorationService) publishNote(ctx context.Context, note *entity.MemoryNote) {
	var sessionId uint
	if note.SourceSessionId != nil {
		sessionId = *note.SourceSessionId
	}
	publishQuietly(ctx, s.events, events.NewMemoryWritten(note.ProjectId.String(), sessionId, note.Id, string(note.Kind), note.Confidence))
}

func toOptionResponses(options []*entity.ExplorationOption) []dto.OptionResponse {
	res := make([]dto.OptionResponse, 0, len(options))
	for _, o := range options {
		res = append(res, dto.OptionResponse{
			OptionId:              o.OptionId,
			BranchId:              o.BranchId,
			Title:                 o.Title,
			CoreLoop:              o.CoreLoop,
			Controls:              o.Controls,
			Mechanics:             o.Mechanics,
			TemplateId:            o.TemplateId,
			GameType:              templates.GameType(o.TemplateId),
			Complexity:            o.Complexity,
			MobileFit:             o.MobileFit,
			AssumptionsToValidate: o.AssumptionsToValidate,
			IsRecommended:         o.IsRecommended,
			Picked:                o.Picked,
		})
	}
	return res
}
