package unitofwork

import (
	"context"
	"errors"

	"game-exploration-be/internal/repository/contract"
	"game-exploration-be/internal/repository/implementation"

	"gorm.io/gorm"
)

var ErrTxStarted = errors.New("unitofwork: transaction already started")

type gormFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &gormFactory{db: db}
}

func (f *gormFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return &gormUnitOfWork{db: f.db.WithContext(ctx)}
}

type gormUnitOfWork struct {
	db *gorm.DB
	tx *gorm.DB
}

func (u *gormUnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *gormUnitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTxStarted
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *gormUnitOfWork) Commit() error {
	if u.tx == nil {
		return gorm.ErrInvalidTransaction
	}
	tx := u.tx
	u.tx = nil
	return tx.Commit().Error
}

func (u *gormUnitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}
	tx := u.tx
	u.tx = nil
	return tx.Rollback().Error
}

func (u *gormUnitOfWork) ExplorationSessionRepository() contract.ExplorationSessionRepository {
	return implementation.NewExplorationSessionRepository(u.conn())
}

func (u *gormUnitOfWork) ExplorationOptionRepository() contract.ExplorationOptionRepository {
	return implementation.NewExplorationOptionRepository(u.conn())
}

func (u *gormUnitOfWork) MemoryNoteRepository() contract.MemoryNoteRepository {
	return implementation.NewMemoryNoteRepository(u.conn())
}

func (u *gormUnitOfWork) UserPreferenceRepository() contract.UserPreferenceRepository {
	return implementation.NewUserPreferenceRepository(u.conn())
}

func (u *gormUnitOfWork) ProjectVersionRepository() contract.ProjectVersionRepository {
	return implementation.NewProjectVersionRepository(u.conn())
}
