package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	VersionSourceSelect   = "exploration_select"
	VersionSourceIterate  = "exploration_iterate"
	VersionSourceRollback = "rollback"
)

type ProjectVersion struct {
	Id        uint
	ProjectId uuid.UUID
	Source    string
	Note      string
	CreatedAt time.Time
	Files     []*ProjectFile
}

// FileMap returns the version files keyed by path.
func (v *ProjectVersion) FileMap() map[string]string {
	out := make(map[string]string, len(v.Files))
	for _, f := range v.Files {
		out[f.FilePath] = f.Content
	}
	return out
}

type ProjectFile struct {
	Id        uint
	VersionId uint
	FilePath  string
	Content   string
	FileType  string
}
