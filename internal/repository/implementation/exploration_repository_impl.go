package implementation

import (
	"context"
	"errors"

	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/mapper"
	"game-exploration-be/internal/model"
	"game-exploration-be/internal/repository/contract"
	"game-exploration-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Sessions

type ExplorationSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ExplorationMapper
}

func NewExplorationSessionRepository(db *gorm.DB) contract.ExplorationSessionRepository {
	return &ExplorationSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewExplorationMapper(),
	}
}

func (r *ExplorationSessionRepositoryImpl) Create(ctx context.Context, session *entity.ExplorationSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *ExplorationSessionRepositoryImpl) Update(ctx context.Context, session *entity.ExplorationSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *ExplorationSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ExplorationSession, error) {
	var m model.ExplorationSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *ExplorationSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ExplorationSession, error) {
	var models []*model.ExplorationSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ExplorationSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *ExplorationSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.ExplorationSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Options

type ExplorationOptionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ExplorationMapper
}

func NewExplorationOptionRepository(db *gorm.DB) contract.ExplorationOptionRepository {
	return &ExplorationOptionRepositoryImpl{
		db:     db,
		mapper: mapper.NewExplorationMapper(),
	}
}

func (r *ExplorationOptionRepositoryImpl) CreateBatch(ctx context.Context, options []*entity.ExplorationOption) error {
	if len(options) == 0 {
		return nil
	}
	models := make([]*model.ExplorationOption, len(options))
	for i, o := range options {
		models[i] = r.mapper.OptionToModel(o)
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*options[i] = *r.mapper.OptionToEntity(m)
	}
	return nil
}

func (r *ExplorationOptionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ExplorationOption, error) {
	var m model.ExplorationOption
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OptionToEntity(&m), nil
}

func (r *ExplorationOptionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ExplorationOption, error) {
	var models []*model.ExplorationOption
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.OptionsToEntities(models), nil
}

// Memory notes

type MemoryNoteRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ExplorationMapper
}

func NewMemoryNoteRepository(db *gorm.DB) contract.MemoryNoteRepository {
	return &MemoryNoteRepositoryImpl{
		db:     db,
		mapper: mapper.NewExplorationMapper(),
	}
}

func (r *MemoryNoteRepositoryImpl) Create(ctx context.Context, note *entity.MemoryNote) error {
	m := r.mapper.MemoryNoteToModel(note)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		return err
	}
	*note = *r.mapper.MemoryNoteToEntity(m)
	return nil
}

func (r *MemoryNoteRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.MemoryNote, error) {
	var m model.ExplorationMemoryNote
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.MemoryNoteToEntity(&m), nil
}

func (r *MemoryNoteRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.MemoryNote, error) {
	var models []*model.ExplorationMemoryNote
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.MemoryNote, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MemoryNoteToEntity(m)
	}
	return entities, nil
}

func (r *MemoryNoteRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.ExplorationMemoryNote{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Preferences

type UserPreferenceRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ExplorationMapper
}

func NewUserPreferenceRepository(db *gorm.DB) contract.UserPreferenceRepository {
	return &UserPreferenceRepositoryImpl{
		db:     db,
		mapper: mapper.NewExplorationMapper(),
	}
}

func (r *UserPreferenceRepositoryImpl) Upsert(ctx context.Context, pref *entity.UserPreference) error {
	m := r.mapper.PreferenceToModel(pref)
	m.Id = 0
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "project_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"preference", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return err
	}

	var stored model.UserPreference
	if err := r.db.WithContext(ctx).Where("project_id = ?", pref.ProjectId).First(&stored).Error; err != nil {
		return err
	}
	*pref = *r.mapper.PreferenceToEntity(&stored)
	return nil
}

func (r *UserPreferenceRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UserPreference, error) {
	var m model.UserPreference
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PreferenceToEntity(&m), nil
}

func (r *UserPreferenceRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UserPreference, error) {
	var models []*model.UserPreference
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.UserPreference, len(models))
	for i, m := range models {
		entities[i] = r.mapper.PreferenceToEntity(m)
	}
	return entities, nil
}
