package dto

import (
	"time"

	"github.com/google/uuid"
)

type ProjectFileResponse struct {
	Id        uint   `json:"id"`
	VersionId uint   `json:"version_id"`
	FilePath  string `json:"file_path"`
	Content   string `json:"content"`
	FileType  string `json:"file_type"`
}

type ProjectVersionResponse struct {
	Id        uint                  `json:"id"`
	ProjectId uuid.UUID             `json:"project_id"`
	Source    string                `json:"source"`
	Note      string                `json:"note"`
	CreatedAt time.Time             `json:"created_at"`
	Files     []ProjectFileResponse `json:"files,omitempty"`
}
