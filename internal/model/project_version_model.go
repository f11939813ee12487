package model

import (
	"time"

	"github.com/google/uuid"
)

// ProjectVersion rows are never updated; the current version is the highest id.
type ProjectVersion struct {
	Id        uint      `gorm:"primaryKey;autoIncrement"`
	ProjectId uuid.UUID `gorm:"type:uuid;not null;index"`
	Source    string    `gorm:"type:varchar(40)"`
	Note      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`

	Files []ProjectFile `gorm:"foreignKey:VersionId;constraint:OnDelete:CASCADE"`
}

func (ProjectVersion) TableName() string {
	return "project_versions"
}

type ProjectFile struct {
	Id        uint   `gorm:"primaryKey;autoIncrement"`
	VersionId uint   `gorm:"not null;index"`
	FilePath  string `gorm:"type:varchar(500);not null"`
	Content   string `gorm:"type:text;not null;default:''"`
	FileType  string `gorm:"type:varchar(50);not null;default:'text/plain'"`
}

func (ProjectFile) TableName() string {
	return "project_files"
}
