package sqlxrepos

import (
	"context"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/wisonline/woec/core/application"
	"github.com/wisonline/woec/storage/database"
)

var applicationColumns = []string{
	"id", "first_name", "last_name", "email", "country", "course_id", "motivation",
	"status", "reason", "decided_at", "user_id", "created_at",
}

type applicationRow struct {
	ID         int         `db:"id"`
	FirstName  string      `db:"first_name"`
	LastName   string      `db:"last_name"`
	Email      string      `db:"email"`
	Country    string      `db:"country"`
	CourseID   int         `db:"course_id"`
	Motivation string      `db:"motivation"`
	Status     string      `db:"status"`
	Reason     null.String `db:"reason"`
	DecidedAt  null.Time   `db:"decided_at"`
	UserID     null.Int    `db:"user_id"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (r applicationRow) unboil() application.Application {
	app := application.Application{
		ID:         r.ID,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Email:      r.Email,
		Country:    r.Country,
		CourseID:   r.CourseID,
		Motivation: r.Motivation,
		Status:     application.Status(r.Status),
		Reason:     r.Reason.String,
		UserID:     r.UserID.Int,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if r.DecidedAt.Valid {
		decidedAt := r.DecidedAt.Time.UTC()
		app.DecidedAt = &decidedAt
	}
	return app
}

func statusStrings(statuses []application.Status) []string {
	ss := make([]string, 0, len(statuses))
	for _, s := range statuses {
		ss = append(ss, string(s))
	}
	return ss
}

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *sqlx.DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	query, args, err := psql.Insert("applications").
		Columns("first_name", "last_name", "email", "country", "course_id", "motivation", "status", "created_at").
		Values(app.FirstName, app.LastName, app.Email, app.Country, app.CourseID, app.Motivation, string(app.Status), app.CreatedAt).
		Suffix("RETURNING " + strings.Join(applicationColumns, ", ")).
		ToSql()
	if err != nil {
		return application.Application{}, errors.Wrap(err, "building query")
	}

	var row applicationRow
	if err = database.Conn(ctx, repo.db).GetContext(ctx, &row, query, args...); err != nil {
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return row.unboil(), nil
}

func (repo *applicationRepository) QueryApplications(ctx context.Context, filter application.QueryFilter) ([]application.Application, error) {
	b := psql.Select(applicationColumns...).From("applications")
	if len(filter.Statuses) > 0 {
		b = b.Where(sq.Eq{"status": statusStrings(filter.Statuses)})
	}
	for _, ord := range filter.Ordering {
		b = b.OrderBy(ord.String())
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []applicationRow
	if err = database.Conn(ctx, repo.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting applications")
	}
	apps := make([]application.Application, 0, len(rows))
	for _, r := range rows {
		apps = append(apps, r.unboil())
	}
	return apps, nil
}

func (repo *applicationRepository) getApplication(ctx context.Context, id int, forUpdate bool) (application.Application, error) {
	b := psql.Select(applicationColumns...).From("applications").Where(sq.Eq{"id": id})
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}
	query, args, err := b.ToSql()
	if err != nil {
		return application.Application{}, errors.Wrap(err, "building query")
	}

	var row applicationRow
	if err = database.Conn(ctx, repo.db).GetContext(ctx, &row, query, args...); err != nil {
		if isNoRows(err) {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "selecting application")
	}
	return row.unboil(), nil
}

func (repo *applicationRepository) GetApplicationByID(ctx context.Context, id int) (application.Application, error) {
	return repo.getApplication(ctx, id, false)
}

// GetApplicationForUpdate row-locks the application; ctx must carry a transaction.
func (repo *applicationRepository) GetApplicationForUpdate(ctx context.Context, id int) (application.Application, error) {
	if !database.InTx(ctx) {
		return application.Application{}, errors.New("locking an application requires a transaction")
	}
	return repo.getApplication(ctx, id, true)
}

// UpdateApplicationStatus runs a single conditional UPDATE when upd.OnlyFrom is set,
// so concurrent transitions on the same application cannot both apply.
func (repo *applicationRepository) UpdateApplicationStatus(ctx context.Context, upd application.StatusUpdate) (application.Application, error) {
	b := psql.Update("applications").
		Set("status", string(upd.Status)).
		Set("reason", null.NewString(upd.Reason, upd.Reason != "")).
		Set("decided_at", null.NewTime(upd.DecidedAt, !upd.DecidedAt.IsZero())).
		Set("user_id", null.NewInt(upd.UserID, upd.UserID != 0)).
		Where(sq.Eq{"id": upd.ID})
	if len(upd.OnlyFrom) > 0 {
		b = b.Where(sq.Eq{"status": statusStrings(upd.OnlyFrom)})
	}
	query, args, err := b.Suffix("RETURNING " + strings.Join(applicationColumns, ", ")).ToSql()
	if err != nil {
		return application.Application{}, errors.Wrap(err, "building query")
	}

	var row applicationRow
	if err = database.Conn(ctx, repo.db).GetContext(ctx, &row, query, args...); err != nil {
		if !isNoRows(err) {
			return application.Application{}, errors.Wrap(err, "updating application status")
		}
		// no row: either unknown id or the guard did not match
		if _, err = repo.GetApplicationByID(ctx, upd.ID); err != nil {
			return application.Application{}, err
		}
		return application.Application{}, application.ErrInvalidTransition
	}
	return row.unboil(), nil
}
