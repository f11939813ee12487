package service

import (
	"context"
	"errors"
	"fmt"

	"game-exploration-be/internal/dto"
	"game-exploration-be/pkg/exploration"
	"game-exploration-be/pkg/exploration/preview"
	"game-exploration-be/pkg/exploration/schema"
	"game-exploration-be/pkg/exploration/state"

	"github.com/google/uuid"
)

// PreviewOption builds or reuses the cached prototype of one option. It never
// changes the session state.
func (s *explorationService) PreviewOption(ctx context.Context, projectId uuid.UUID, req *dto.PreviewOptionRequest) (*dto.PreviewOptionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.loadSession(ctx, uow, projectId, req.SessionId)
	if err != nil {
		return nil, err
	}
	option, err := s.loadOption(ctx, uow, session.Id, req.OptionId)
	if err != nil {
		return nil, err
	}

	entry, generated, err := s.previews.Ensure(ctx, session.Id, option.OptionId, func(ctx context.Context) (string, error) {
		_, files, err := s.generatePrototype(ctx, session, option)
		if err != nil {
			return "", err
		}
		return files[schema.EntryFile], nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(explorationModule, "Preview ready", map[string]interface{}{
		"session_id": session.Id,
		"option_id":  option.OptionId,
		"cached":     !generated,
	})
	return &dto.PreviewOptionResponse{
		SessionId:    session.Id,
		OptionId:     option.OptionId,
		PreviewReady: true,
		Cached:       !generated,
		ExpiresAt:    entry.ExpiresAt,
	}, nil
}

func (s *explorationService) FixPreview(ctx context.Context, projectId uuid.UUID, req *dto.FixPreviewRequest) (*dto.FixPreviewResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.loadSession(ctx, uow, projectId, req.SessionId)
	if err != nil {
		return nil, err
	}

	errs := preview.Limit(req.Errors)
	entry, err := s.previews.Fix(ctx, preview.Key(session.Id, req.OptionId), preview.Messages(errs),
		func(ctx context.Context, current *preview.Entry) (string, error) {
			return s.repairPreview(ctx, current, errs)
		})
	if err != nil {
		if errors.Is(err, exploration.ErrFixLimitExceeded) {
			s.logger.Warn(explorationModule, "Preview fix limit reached", map[string]interface{}{
				"session_id":  session.Id,
				"option_id":   req.OptionId,
				"max_attempt": s.previews.MaxFixAttempts(),
			})
		}
		return nil, err
	}

	return &dto.FixPreviewResponse{
		SessionId:   session.Id,
		OptionId:    req.OptionId,
		Fixed:       true,
		FixAttempts: entry.FixAttempts,
	}, nil
}

// SetPreviewing toggles between explore_options and previewing. Asking for
// the state the session is already in is a no-op.
func (s *explorationService) SetPreviewing(ctx context.Context, projectId uuid.UUID, req *dto.PreviewingRequest) (*dto.PreviewingResponse, error) {
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

	event, target := state.EventEndPreview, state.ExploreOptions
	if *req.Active {
		event, target = state.EventBeginPreview, state.Previewing
	}
	if session.State != target {
		if err := s.moveSession(ctx, uow, session, event); err != nil {
			return nil, err
		}
	}
	return &dto.PreviewingResponse{SessionId: session.Id, State: string(session.State)}, nil
}

func (s *explorationService) PreviewHTML(ctx context.Context, projectId uuid.UUID, sessionId uint, optionId string) (string, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.loadSession(ctx, uow, projectId, sessionId); err != nil {
		return "", err
	}
	entry, err := s.previews.Get(ctx, preview.Key(sessionId, optionId))
	if err != nil {
		if errors.Is(err, exploration.ErrCacheMiss) {
			return "", fmt.Errorf("%w: preview for option %q is not ready", exploration.ErrNotFound, optionId)
		}
		return "", err
	}
	return preview.InjectErrorCatcher(entry.HTML), nil
}
