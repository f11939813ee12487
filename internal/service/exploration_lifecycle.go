package service

import (
	"context"
	"fmt"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/repository/specification"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/state"

	"github.com/google/uuid"
)

func (s *explorationService) SelectOption(ctx context.Context, projectId uuid.UUID, req *dto.SelectOptionRequest) (*dto.SelectOptionResponse, error) {
	unlock, err := s.lockSession(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.loadSession(ctx, uow, projectId, req.SessionId)
	if err != nil {
		return nil, err
	}
	from := session.State
	next, err := state.Transition(ctx, from, state.EventSelect)
	if err != nil {
		return nil, err
	}
	option, err := s.loadOption(ctx, uow, session.Id, req.OptionId)
	if err != nil {
		return nil, err
	}
	considered, err := uow.ExplorationOptionRepository().FindAll(ctx,
		specification.BySessionID{SessionID: session.Id},
		specification.OrderBy{Field: "id"},
	)
	if err != nil {
		return nil, err
	}

	feel, files, err := s.generatePrototype(ctx, session, option)
	if err != nil {
		return nil, err
	}

	version := newVersion(projectId, entity.VersionSourceSelect, "selected "+option.OptionId, files)
	optionId := option.OptionId
	session.SelectedOptionId = &optionId
	session.FeelSpec = feel
	session.State = next

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ProjectVersionRepository().Create(ctx, version); err != nil {
		return nil, err
	}
	note := designDecisionNote(session, option, considered, version.Id)
	if err := uow.MemoryNoteRepository().Create(ctx, note); err != nil {
		return nil, err
	}
	if err := uow.ExplorationSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info(explorationModule, "Option committed", map[string]interface{}{
		"project_id": projectId,
		"session_id": session.Id,
		"option_id":  optionId,
		"version_id": version.Id,
		"note_id":    note.Id,
	})
	s.publishState(ctx, session, from)
	s.publishNote(ctx, note)

	return &dto.SelectOptionResponse{
		SessionId: session.Id,
		OptionId:  optionId,
		VersionId: version.Id,
		State:     string(session.State),
	}, nil
}

func designDecisionNote(session *entity.ExplorationSession, selected *entity.ExplorationOption, considered []*entity.ExplorationOption, versionId uint) *entity.MemoryNote {
	why := "User selected manually"
	if selected.IsRecommended {
		why = "Recommended by system"
	}
	summaries := make([]schema.OptionSummary, 0, len(considered))
	for _, o := range considered {
		summaries = append(summaries, schema.OptionSummary{
			OptionID:      o.OptionId,
			Title:         o.Title,
			CoreLoop:      o.CoreLoop,
			Controls:      o.Controls,
			IsRecommended: o.IsRecommended,
		})
	}
	spec := selected.Spec()
	detail := &schema.DecisionDetail{
		UserInput:         session.UserInput,
		Decomposition:     session.Decomposition,
		OptionsConsidered: summaries,
		SelectedOption:    &spec,
		FeelSpec:          session.FeelSpec,
	}
	dimensions := 0
	if d := session.Decomposition; d != nil {
		detail.Dimensions = d.DimensionNames()
		detail.HardConstraints = d.HardConstraints
		detail.Locked = d.Locked
		dimensions = len(d.Dimensions)
	}

	content := schema.NoteContent{
		Kind:  schema.KindDesignDecision,
		Title: "Design Decision: " + selected.Title,
		Summary: fmt.Sprintf(`User requested: "%s". Decomposed into %d dimensions. Selected "%s" from %d options.`,
			session.UserInput, dimensions, selected.Title, len(considered)),
		FinalChoice:         &schema.FinalChoice{OptionID: selected.OptionId, Why: why},
		ValidatedHypotheses: []string{},
		RejectedHypotheses:  []string{},
		KeyDecisions: []schema.KeyDecision{{
			Decision: "Selected " + selected.Title,
			Reason:   "Core loop: " + selected.CoreLoop,
			Evidence: fmt.Sprintf("Controls: %s, Complexity: %s", selected.Controls, selected.Complexity),
		}},
		PitfallsAndGuards: []string{},
		Refs:              &schema.NoteRefs{ExplorationSessionID: session.Id, StableVersionID: &versionId},
		DecisionDetail:    detail,
	}
	sessionId := session.Id
	return &entity.MemoryNote{
		ProjectId:       session.ProjectId,
		Kind:            schema.KindDesignDecision,
		Content:         content,
		Tags:            content.Tags(),
		Confidence:      schema.DesignDecisionConfidence,
		SourceSessionId: &sessionId,
		SourceVersionId: &versionId,
	}
}

func (s *explorationService) Iterate(ctx context.Context, projectId uuid.UUID, req *dto.IterateRequest) (*dto.IterateResponse, error) {
	unlock, err := s.lockSession(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.loadSession(ctx, uow, projectId, req.SessionId)
	if err != nil {
		return nil, err
	}
	from := session.State
	next, err := state.Transition(ctx, from, state.EventIterate)
	if err != nil {
		return nil, err
	}
	current, err := uow.ProjectVersionRepository().FindCurrent(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: project has no version to iterate on", exploration.ErrPrecondition)
	}

	base := schema.FileMap(current.FileMap())
	changed, err := s.modifyCode(ctx, session, base, req.UserInput)
	if err != nil {
		return nil, err
	}

	version := newVersion(projectId, entity.VersionSourceIterate, req.UserInput, mergeFiles(base, changed))
	session.State = next
	session.IterationCount++
	session.HypothesisLedger.OpenQuestions = append(session.HypothesisLedger.OpenQuestions, req.UserInput)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ProjectVersionRepository().Create(ctx, version); err != nil {
		return nil, err
	}
	if err := uow.ExplorationSessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info(explorationModule, "Iteration applied", map[string]interface{}{
		"project_id":      projectId,
		"session_id":      session.Id,
		"version_id":      version.Id,
		"iteration_count": session.IterationCount,
		"changed_files":   len(changed),
	})
	s.publishState(ctx, session, from)

	return &dto.IterateResponse{
		SessionId:        session.Id,
		VersionId:        version.Id,
		IterationCount:   session.IterationCount,
		HypothesisLedger: session.HypothesisLedger,
		State:            string(session.State),
	}, nil
}

// FinishExploration moves the session to memory_writing, synthesizes the
// finish note, then commits note, preference and stable state together. A
// failure after the first step returns the session to where it came from.
func (s *explorationService) FinishExploration(ctx context.Context, projectId uuid.UUID, req *dto.FinishExplorationRequest) (*dto.FinishExplorationResponse, error) {
	unlock, err := s.lockSession(ctx, req.SessionId)
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.loadSession(ctx, uow, projectId, req.SessionId)
	if err != nil {
		return nil, err
	}
	origin := session.State
	abort, err := abortEvent(origin)
	if err != nil {
		return nil, err
	}
	if err := s.moveSession(ctx, uow, session, state.EventFinish); err != nil {
		return nil, err
	}

	note, err := s.writeFinishMemory(ctx, uow, session)
	if err != nil {
		// The request context may be gone; the session must still leave memory_writing.
		restoreCtx := context.WithoutCancel(ctx)
		if rerr := s.moveSession(restoreCtx, s.uowFactory.NewUnitOfWork(restoreCtx), session, abort); rerr != nil {
			s.logger.Error(explorationModule, "Failed to restore session after finish failure", map[string]interface{}{
				"session_id": session.Id,
				"error":      rerr.Error(),
			})
		}
		return nil, err
	}

	s.logger.Info(explorationModule, "Exploration finished", map[string]interface{}{
		"project_id": projectId,
		"session_id": session.Id,
		"note_id":    note.Id,
	})
	s.publishState(ctx, session, state.MemoryWriting)
	s.publishNote(ctx, note)

	res := toMemoryNoteResponse(note)
	return &dto.FinishExplorationResponse{
		SessionId:  session.Id,
		MemoryNote: res,
		State:      string(session.State),
	}, nil
}

func abortEvent(from state.State) (string, error) {
	switch from {
	case state.Committed:
		return state.EventAbortFinishCommitted, nil
	case state.Iterating:
		return state.EventAbortFinishIterating, nil
	}
	return "", state.Require(from, "finish_exploration", state.Committed, state.Iterating)
}

// moveSession persists one transition on its own and publishes it.
func (s *explorationService) moveSession(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ExplorationSession, event string) error {
	from := session.State
	next, err := state.Transition(ctx, from, event)
	if err != nil {
		return err
	}
	session.State = next
	if err := uow.ExplorationSessionRepository().Update(ctx, session); err != nil {
		session.State = from
		return err
	}
	s.publishState(ctx, session, from)
	return nil
}

func (s *explorationService) writeFinishMemory(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ExplorationSession) (*entity.MemoryNote, error) {
	var selected *entity.ExplorationOption
	if session.SelectedOptionId != nil {
		option, err := uow.ExplorationOptionRepository().FindOne(ctx,
			specification.BySessionID{SessionID: session.Id},
			specification.ByOptionID{OptionID: *session.SelectedOptionId},
		)
		if err != nil {
			return nil, err
		}
		selected = option
	}
	current, err := uow.ProjectVersionRepository().FindCurrent(ctx, session.ProjectId)
	if err != nil {
		return nil, err
	}

	synthesis, err := s.synthesize(ctx, session, selected)
	if err != nil {
		return nil, err
	}

	refs := schema.NoteRefs{ExplorationSessionID: session.Id}
	var versionId *uint
	if current != nil {
		id := current.Id
		versionId = &id
		refs.StableVersionID = &id
	}
	content := schema.FinishNote(synthesis, refs)
	sessionId := session.Id
	note := &entity.MemoryNote{
		ProjectId:       session.ProjectId,
		Kind:            schema.KindExplorationFinish,
		Content:         content,
		Tags:            content.Tags(),
		Confidence:      schema.FinishConfidence,
		SourceSessionId: &sessionId,
		SourceVersionId: versionId,
	}

	next, err := state.Transition(ctx, session.State, state.EventMemoryWritten)
	if err != nil {
		return nil, err
	}
	finished := *session
	finished.State = next
	finished.HypothesisLedger.Validated = append(append([]string{}, session.HypothesisLedger.Validated...), content.ValidatedHypotheses...)
	finished.HypothesisLedger.Rejected = append(append([]string{}, session.HypothesisLedger.Rejected...), content.RejectedHypotheses...)

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.MemoryNoteRepository().Create(ctx, note); err != nil {
		return nil, err
	}
	if !synthesis.UserPreferences.Empty() {
		if err := uow.UserPreferenceRepository().Upsert(ctx, &entity.UserPreference{
			ProjectId:  session.ProjectId,
			Preference: synthesis.UserPreferences,
		}); err != nil {
			return nil, err
		}
	}
	if err := uow.ExplorationSessionRepository().Update(ctx, &finished); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	*session = finished
	return note, nil
}
