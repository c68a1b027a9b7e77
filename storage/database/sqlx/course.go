package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/wisonline/woec/core/course"
	"github.com/wisonline/woec/storage/database"
)

var courseColumns = []string{"id", "name", "description", "duration", "sessions_per_week", "level"}

type courseRow struct {
	ID              int    `db:"id"`
	Name            string `db:"name"`
	Description     string `db:"description"`
	Duration        string `db:"duration"`
	SessionsPerWeek int    `db:"sessions_per_week"`
	Level           string `db:"level"`
}

func (r courseRow) unboil() course.Course {
	return course.Course(r)
}

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{db: db}
}

func (repo *courseRepository) QueryCourses(ctx context.Context) ([]course.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").OrderBy("id").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []courseRow
	if err = database.Conn(ctx, repo.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.unboil())
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id int) (course.Course, error) {
	query, args, err := psql.Select(courseColumns...).From("courses").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return course.Course{}, errors.Wrap(err, "building query")
	}

	var row courseRow
	if err = database.Conn(ctx, repo.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return row.unboil(), nil
}
