package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")
	ErrNotOwner = errors.New("course belongs to another instructor")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		UpdateCourse(ctx context.Context, crs Course) (Course, error)
		DeleteCourse(ctx context.Context, id string) error
	}

	// Generator produces a course outline for a topic. Implementations call an
	// external model; failures surface as a single wrapped error.
	Generator interface {
		GenerateCurriculum(ctx context.Context, topic string) ([]Module, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error)
		QueryAll(ctx context.Context) ([]Course, error)
		GetByID(ctx context.Context, id string) (Course, error)
		Update(ctx context.Context, id, instructorID string, uc UpdateCourse) (Course, error)
		Delete(ctx context.Context, id, instructorID string) error
		Generate(ctx context.Context, topic string) ([]Module, error)
	}

	service struct {
		repo      Repository
		generator Generator
	}
)

var _ ServiceInterface = (*service)(nil)

func NewService(repo Repository, generator Generator) ServiceInterface {
	return &service{
		repo:      repo,
		generator: generator,
	}
}

func (svc *service) Create(ctx context.Context, instructorID string, nc NewCourse) (Course, error) {
	now := time.Now().UTC()
	crs := Course{
		Title:        nc.Title,
		Description:  nc.Description,
		Category:     nc.Category,
		InstructorID: instructorID,
		ThumbnailURL: nc.ThumbnailURL,
		Modules:      EnsureIDs(nc.Modules),
		Published:    nc.Published,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	crs.TotalDuration = crs.ComputeTotalDuration()
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) QueryAll(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// Update mutates course content; only the owning instructor may do so.
func (svc *service) Update(ctx context.Context, id, instructorID string, uc UpdateCourse) (Course, error) {
	origCrs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return Course{}, err
	}
	if origCrs.InstructorID != instructorID {
		return Course{}, ErrNotOwner
	}

	crs := origCrs
	crs.Title = uc.Title
	crs.Description = uc.Description
	crs.Category = uc.Category
	if uc.ThumbnailURL != "" {
		crs.ThumbnailURL = uc.ThumbnailURL
	}
	if uc.Modules != nil {
		crs.Modules = EnsureIDs(uc.Modules)
	}
	if uc.Published != nil {
		crs.Published = *uc.Published
	}
	crs.TotalDuration = crs.ComputeTotalDuration()
	crs.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCourse(ctx, crs)
}

func (svc *service) Delete(ctx context.Context, id, instructorID string) error {
	origCrs, err := svc.repo.GetCourseByID(ctx, id)
	if err != nil {
		return err
	}
	if origCrs.InstructorID != instructorID {
		return ErrNotOwner
	}
	return svc.repo.DeleteCourse(ctx, id)
}

func (svc *service) Generate(ctx context.Context, topic string) ([]Module, error) {
	if svc.generator == nil {
		return nil, errors.New("no curriculum generator configured")
	}
	modules, err := svc.generator.GenerateCurriculum(ctx, topic)
	if err != nil {
		return nil, errors.Wrap(err, "generating curriculum")
	}
	return EnsureIDs(modules), nil
}
