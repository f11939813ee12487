package mapper

import (
	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/model"
)

type ProjectVersionMapper struct{}

func NewProjectVersionMapper() *ProjectVersionMapper {
	return &ProjectVersionMapper{}
}

func (m *ProjectVersionMapper) VersionToEntity(v *model.ProjectVersion) *entity.ProjectVersion {
	if v == nil {
		return nil
	}
	files := make([]*entity.ProjectFile, len(v.Files))
	for i := range v.Files {
		files[i] = m.FileToEntity(&v.Files[i])
	}
	return &entity.ProjectVersion{
		Id:        v.Id,
		ProjectId: v.ProjectId,
		Source:    v.Source,
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
		Files:     files,
	}
}

func (m *ProjectVersionMapper) VersionToModel(v *entity.ProjectVersion) *model.ProjectVersion {
	if v == nil {
		return nil
	}
	files := make([]model.ProjectFile, len(v.Files))
	for i, f := range v.Files {
		files[i] = *m.FileToModel(f)
	}
	return &model.ProjectVersion{
		Id:        v.Id,
		ProjectId: v.ProjectId,
		Source:    v.Source,
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
		Files:     files,
	}
}

func (m *ProjectVersionMapper) FileToEntity(f *model.ProjectFile) *entity.ProjectFile {
	if f == nil {
		return nil
	}
	return &entity.ProjectFile{
		Id:        f.Id,
		VersionId: f.VersionId,
		FilePath:  f.FilePath,
		Content:   f.Content,
		FileType:  f.FileType,
	}
}

func (m *ProjectVersionMapper) FileToModel(f *entity.ProjectFile) *model.ProjectFile {
	if f == nil {
		return nil
	}
	fileType := f.FileType
	if fileType == "" {
		fileType = "text/plain"
	}
	return &model.ProjectFile{
		Id:        f.Id,
		VersionId: f.VersionId,
		FilePath:  f.FilePath,
		Content:   f.Content,
		FileType:  fileType,
	}
}
