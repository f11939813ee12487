package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByProjectID struct {
	ProjectID uuid.UUID
}

func (s ByProjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("project_id = ?", s.ProjectID)
}

type BySessionID struct {
	SessionID uint
}

func (s BySessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_id = ?", s.SessionID)
}

type ByOptionID struct {
	OptionID string
}

func (s ByOptionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("option_id = ?", s.OptionID)
}

// StateNotIn excludes sessions in the given states.
type StateNotIn struct {
	States []string
}

func (s StateNotIn) Apply(db *gorm.DB) *gorm.DB {
	if len(s.States) == 0 {
		return db
	}
	return db.Where("state NOT IN ?", s.States)
}

type ByKind struct {
	Kind string
}

func (s ByKind) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("kind = ?", s.Kind)
}

// HasSelection keeps sessions where an option was committed.
type HasSelection struct{}

func (s HasSelection) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("selected_option_id IS NOT NULL")
}
