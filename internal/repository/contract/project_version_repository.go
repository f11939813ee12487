package contract

import (
	"context"

	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ProjectVersionRepository interface {
	// Create inserts the version and its files as a new immutable row
	Create(ctx context.Context, version *entity.ProjectVersion) error
	// FindOne loads the version with its files
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProjectVersion, error)
	// FindAll lists versions without their files
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProjectVersion, error)
	// FindCurrent returns the newest version of the project, or nil
	FindCurrent(ctx context.Context, projectId uuid.UUID) (*entity.ProjectVersion, error)
}
