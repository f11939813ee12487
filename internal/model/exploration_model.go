package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ExplorationSession struct {
	Id               uint           `gorm:"primaryKey;autoIncrement"`
	ProjectId        uuid.UUID      `gorm:"type:uuid;not null;index"`
	UserInput        string         `gorm:"type:text;not null"`
	Decomposition    datatypes.JSON `gorm:"type:jsonb"`
	State            string         `gorm:"type:varchar(30);not null;default:'idle'"`
	SelectedOptionId *string        `gorm:"type:varchar(100)"`
	HypothesisLedger datatypes.JSON `gorm:"type:jsonb"`
	FeelSpec         datatypes.JSON `gorm:"type:jsonb"`
	IterationCount   int            `gorm:"not null;default:0"`
	CreatedAt        time.Time      `gorm:"autoCreateTime"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime"`

	Options []ExplorationOption `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
}

func (ExplorationSession) TableName() string {
	return "exploration_sessions"
}

type ExplorationOption struct {
	Id                    uint           `gorm:"primaryKey;autoIncrement"`
	SessionId             uint           `gorm:"not null;index"`
	OptionId              string         `gorm:"type:varchar(100);not null"`
	BranchId              string         `gorm:"type:varchar(100)"`
	Title                 string         `gorm:"type:text;not null"`
	CoreLoop              string         `gorm:"type:text"`
	Controls              string         `gorm:"type:text"`
	Mechanics             datatypes.JSON `gorm:"type:jsonb"`
	Picked                datatypes.JSON `gorm:"type:jsonb"`
	TemplateId            string         `gorm:"type:varchar(100);not null"`
	Complexity            string         `gorm:"type:varchar(20)"`
	MobileFit             string         `gorm:"type:varchar(20)"`
	AssumptionsToValidate datatypes.JSON `gorm:"type:jsonb"`
	IsRecommended         bool           `gorm:"not null;default:false"`
	CreatedAt             time.Time      `gorm:"autoCreateTime"`
}

func (ExplorationOption) TableName() string {
	return "exploration_options"
}

type ExplorationMemoryNote struct {
	Id              uint           `gorm:"primaryKey;autoIncrement"`
	ProjectId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Kind            string         `gorm:"type:varchar(40);not null;index"`
	Content         datatypes.JSON `gorm:"type:jsonb;not null"`
	Tags            datatypes.JSON `gorm:"type:jsonb"`
	Confidence      float64        `gorm:"not null;default:0.5"`
	SourceSessionId *uint          `gorm:"index"`
	SourceVersionId *uint
	CreatedAt       time.Time `gorm:"autoCreateTime;index"`

	SourceSession *ExplorationSession `gorm:"foreignKey:SourceSessionId;constraint:OnDelete:SET NULL"`
}

func (ExplorationMemoryNote) TableName() string {
	return "exploration_memory_notes"
}

type UserPreference struct {
	Id         uint           `gorm:"primaryKey;autoIncrement"`
	ProjectId  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	Preference datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
}

func (UserPreference) TableName() string {
	return "user_preferences"
}
