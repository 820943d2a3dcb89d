package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/talimhq/talim/core"
	"github.com/talimhq/talim/core/course"
)

type courseRow struct {
	ID            string         `db:"id"`
	Title         string         `db:"title"`
	Description   string         `db:"description"`
	Category      string         `db:"category"`
	InstructorID  string         `db:"instructor_id"`
	ThumbnailURL  string         `db:"thumbnail_url"`
	Modules       types.JSONText `db:"modules"`
	Published     bool           `db:"published"`
	TotalDuration int            `db:"total_duration"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func packCourse(crs course.Course) (courseRow, error) {
	modules, err := json.Marshal(crs.Modules)
	if err != nil {
		return courseRow{}, errors.Wrap(err, "encoding modules")
	}
	return courseRow{
		ID:            crs.ID,
		Title:         crs.Title,
		Description:   crs.Description,
		Category:      crs.Category,
		InstructorID:  crs.InstructorID,
		ThumbnailURL:  crs.ThumbnailURL,
		Modules:       modules,
		Published:     crs.Published,
		TotalDuration: crs.TotalDuration,
		CreatedAt:     crs.CreatedAt.UTC(),
		UpdatedAt:     crs.UpdatedAt.UTC(),
	}, nil
}

func (row courseRow) unpack() (course.Course, error) {
	var modules []course.Module
	if err := json.Unmarshal(row.Modules, &modules); err != nil {
		return course.Course{}, errors.Wrap(err, "decoding modules")
	}
	return course.Course{
		ID:            row.ID,
		Title:         row.Title,
		Description:   row.Description,
		Category:      row.Category,
		InstructorID:  row.InstructorID,
		ThumbnailURL:  row.ThumbnailURL,
		Modules:       modules,
		Published:     row.Published,
		TotalDuration: row.TotalDuration,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}, nil
}

type courseRepository struct {
	db core.DBExecutor
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db core.DBExecutor) *courseRepository {
	return &courseRepository{db: db}
}

func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo courseRepository) CreateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.ID = uuid.NewString()
	row, err := packCourse(crs)
	if err != nil {
		return course.Course{}, err
	}

	q := `
		INSERT INTO courses (id, title, description, category, instructor_id, thumbnail_url,
		                     modules, published, total_duration, created_at, updated_at)
		VALUES (:id, :title, :description, :category, :instructor_id, :thumbnail_url,
		        :modules, :published, :total_duration, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return crs, nil
}

func (repo courseRepository) QueryAllCourses(ctx context.Context) ([]course.Course, error) {
	var rows []courseRow
	q := `SELECT * FROM courses ORDER BY created_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}

	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		crs, err := row.unpack()
		if err != nil {
			return nil, err
		}
		courses = append(courses, crs)
	}
	return courses, nil
}

func (repo courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}

	var row courseRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM courses WHERE id = $1`, id); err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "finding course by ID")
	}
	return row.unpack()
}

func (repo courseRepository) UpdateCourse(ctx context.Context, crs course.Course) (course.Course, error) {
	crs.UpdatedAt = time.Now().UTC()
	row, err := packCourse(crs)
	if err != nil {
		return course.Course{}, err
	}

	q := `
		UPDATE courses
		SET title = :title, description = :description, category = :category,
		    thumbnail_url = :thumbnail_url, modules = :modules, published = :published,
		    total_duration = :total_duration, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return course.Course{}, course.ErrNotFound
	}
	return crs, nil
}

func (repo courseRepository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := repo.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return nil
}
