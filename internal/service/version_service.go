package service

import (
	"context"
	"fmt"
	"path"
	"sort"

	"game-exploration-be/internal/dto"
	"game-exploration-be/internal/entity"
	"game-exploration-be/internal/pkg/logger"
	"game-exploration-be/internal/repository/specification"
	"game-exploration-be/internal/repository/unitofwork"
	"game-exploration-be/pkg/exploration"

	"github.com/google/uuid"
)

type IVersionService interface {
	List(ctx context.Context, projectId uuid.UUID) ([]*dto.ProjectVersionResponse, error)
	Current(ctx context.Context, projectId uuid.UUID) (*dto.ProjectVersionResponse, error)
	Rollback(ctx context.Context, projectId uuid.UUID, versionId uint) (*dto.ProjectVersionResponse, error)
}

type versionService struct {
	uowFactory unitofwork.RepositoryFactory
	logger     logger.ILogger
}

func NewVersionService(uowFactory unitofwork.RepositoryFactory, log logger.ILogger) IVersionService {
	return &versionService{uowFactory: uowFactory, logger: log}
}

func (s *versionService) List(ctx context.Context, projectId uuid.UUID) ([]*dto.ProjectVersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	versions, err := uow.ProjectVersionRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "id", Desc: true},
	)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.ProjectVersionResponse, 0, len(versions))
	for _, v := range versions {
		res = append(res, toVersionResponse(v, false))
	}
	return res, nil
}

func (s *versionService) Current(ctx context.Context, projectId uuid.UUID) (*dto.ProjectVersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	current, err := uow.ProjectVersionRepository().FindCurrent(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("%w: project %s has no version", exploration.ErrNotFound, projectId)
	}
	return toVersionResponse(current, true), nil
}

// Rollback creates a new version carrying the files of versionId.
func (s *versionService) Rollback(ctx context.Context, projectId uuid.UUID, versionId uint) (*dto.ProjectVersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	target, err := uow.ProjectVersionRepository().FindOne(ctx,
		specification.ByID{ID: versionId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: version %d", exploration.ErrNotFound, versionId)
	}

	version := newVersion(projectId, entity.VersionSourceRollback, fmt.Sprintf("rollback to version %d", versionId), target.FileMap())

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ProjectVersionRepository().Create(ctx, version); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("VERSIONS", "Rolled back project", map[string]interface{}{
		"project_id":  projectId,
		"target_id":   versionId,
		"new_version": version.Id,
	})
	return toVersionResponse(version, true), nil
}

// newVersion builds an unsaved version with files in path order.
func newVersion(projectId uuid.UUID, source, note string, files map[string]string) *entity.ProjectVersion {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	v := &entity.ProjectVersion{ProjectId: projectId, Source: source, Note: note}
	for _, p := range paths {
		v.Files = append(v.Files, &entity.ProjectFile{
			FilePath: p,
			Content:  files[p],
			FileType: fileTypeFor(p),
		})
	}
	return v
}

func fileTypeFor(p string) string {
	switch path.Ext(p) {
	case ".html", ".htm":
		return "text/html"
	case ".js":
		return "application/javascript"
	case ".css":
		return "text/css"
	case ".json":
		return "application/json"
	}
	return "text/plain"
}

func toVersionResponse(v *entity.ProjectVersion, withFiles bool) *dto.ProjectVersionResponse {
	res := &dto.ProjectVersionResponse{
		Id:        v.Id,
		ProjectId: v.ProjectId,
		Source:    v.Source,
		Note:      v.Note,
		CreatedAt: v.CreatedAt,
	}
	if withFiles {
		res.Files = make([]dto.ProjectFileResponse, 0, len(v.Files))
		for _, f := range v.Files {
			res.Files = append(res.Files, dto.ProjectFileResponse{
				Id:        f.Id,
				VersionId: f.VersionId,
				FilePath:  f.FilePath,
				Content:   f.Content,
				FileType:  f.FileType,
			})
		}
	}
	return res
}
