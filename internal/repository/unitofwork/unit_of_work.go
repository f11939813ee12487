package unitofwork

import (
	"context"

	"game-exploration-be/internal/repository/contract"
)

// RepositoryFactory hands out one UnitOfWork per operation.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

// UnitOfWork groups the exploration repositories. Outside Begin/Commit each
// repository call runs on its own; inside, all of them share the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	// Rollback is safe to defer; it does nothing once Commit has run.
	Rollback() error

	ExplorationSessionRepository() contract.ExplorationSessionRepository
	ExplorationOptionRepository() contract.ExplorationOptionRepository
	MemoryNoteRepository() contract.MemoryNoteRepository
	UserPreferenceRepository() contract.UserPreferenceRepository
	ProjectVersionRepository() contract.ProjectVersionRepository
}
