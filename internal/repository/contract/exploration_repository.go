package contract

import (
	"context"

	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/repository/specification"
)

type ExplorationSessionRepository interface {
	Create(ctx context.Context, session *entity.ExplorationSession) error
	Update(ctx context.Context, session *entity.ExplorationSession) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ExplorationSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ExplorationSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type ExplorationOptionRepository interface {
	CreateBatch(ctx context.Context, options []*entity.ExplorationOption) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ExplorationOption, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ExplorationOption, error)
}

type MemoryNoteRepository interface {
	Create(ctx context.Context, note *entity.MemoryNote) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MemoryNote, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryNote, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type UserPreferenceRepository interface {
	// Upsert keeps exactly one row per project; the last write wins
	Upsert(ctx context.Context, pref *entity.UserPreference) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserPreference, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserPreference, error)
}
