package implementation

import (
	"context"
	"errors"

	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/mapper"
	"game-exploration-be/internal/model"
	"game-exploration-be/internal/repository/contract"
	"game-exploration-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectVersionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ProjectVersionMapper
}

func NewProjectVersionRepository(db *gorm.DB) contract.ProjectVersionRepository {
	return &ProjectVersionRepositoryImpl{
		db:     db,
		mapper: mapper.NewProjectVersionMapper(),
	}
}

func (r *ProjectVersionRepositoryImpl) Create(ctx context.Context, version *entity.ProjectVersion) error {
	m := r.mapper.VersionToModel(version)
	m.Id = 0
	for i := range m.Files {
		m.Files[i].Id = 0
		m.Files[i].VersionId = 0
	}
	// Files are inserted through the has-many association
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*version = *r.mapper.VersionToEntity(m)
	return nil
}

func (r *ProjectVersionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ProjectVersion, error) {
	var m model.ProjectVersion
	query := applySpecifications(r.db.WithContext(ctx).Preload("Files", func(db *gorm.DB) *gorm.DB {
		return db.Order("file_path ASC")
	}), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.VersionToEntity(&m), nil
}

func (r *ProjectVersionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ProjectVersion, error) {
	var models []*model.ProjectVersion
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ProjectVersion, len(models))
	for i, m := range models {
		entities[i] = r.mapper.VersionToEntity(m)
	}
	return entities, nil
}

func (r *ProjectVersionRepositoryImpl) FindCurrent(ctx context.Context, projectId uuid.UUID) (*entity.ProjectVersion, error) {
	return r.FindOne(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "id", Desc: true},
	)
}
