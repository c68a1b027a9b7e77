package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/wisonline/woec/core/application"
)

type applicationRepository struct {
	db *applicationTable
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db.application}
}

func (repo *applicationRepository) CreateApplication(ctx context.Context, app application.Application) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.pk++
	app.ID = repo.db.pk
	repo.db.table[app.ID] = &app
	onRollback(ctx, func() {
		repo.db.mutex.Lock()
		delete(repo.db.table, app.ID)
		repo.db.mutex.Unlock()
	})
	return app, nil
}

func (repo *applicationRepository) QueryApplications(_ context.Context, filter application.QueryFilter) ([]application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	apps := make([]application.Application, 0, len(repo.db.table))
	for _, app := range repo.db.table {
		if matchesStatuses(app.Status, filter.Statuses) {
			apps = append(apps, *app)
		}
	}

	sort.SliceStable(apps, func(i, j int) bool {
		for _, ord := range filter.Ordering {
			c := compareApplications(apps[i], apps[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

func (repo *applicationRepository) GetApplicationByID(_ context.Context, id int) (application.Application, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if app, ok := repo.db.table[id]; ok {
		return *app, nil
	}
	return application.Application{}, application.ErrNotFound
}

// GetApplicationForUpdate needs no row lock: transactions on the DB are serialized.
func (repo *applicationRepository) GetApplicationForUpdate(ctx context.Context, id int) (application.Application, error) {
	return repo.GetApplicationByID(ctx, id)
}

func (repo *applicationRepository) UpdateApplicationStatus(ctx context.Context, upd application.StatusUpdate) (application.Application, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	app, ok := repo.db.table[upd.ID]
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	if len(upd.OnlyFrom) > 0 && !matchesStatuses(app.Status, upd.OnlyFrom) {
		return application.Application{}, application.ErrInvalidTransition
	}

	prev := *app
	decidedAt := upd.DecidedAt
	app.Status = upd.Status
	app.Reason = upd.Reason
	app.UserID = upd.UserID
	app.DecidedAt = &decidedAt
	onRollback(ctx, func() {
		repo.db.mutex.Lock()
		*app = prev
		repo.db.mutex.Unlock()
	})
	return *app, nil
}

func matchesStatuses(status application.Status, statuses []application.Status) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// compareApplications compares a and b on the column field.
func compareApplications(a, b application.Application, field string) int {
	switch field {
	case "id":
		return compareInts(a.ID, b.ID)
	case "course_id":
		return compareInts(a.CourseID, b.CourseID)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "last_name":
		return strings.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName))
	case "created_at":
		return compareTimes(a.CreatedAt, b.CreatedAt)
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTimes(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
