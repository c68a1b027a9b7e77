package application_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/application"
	"github.com/wisonline/woec/core/course"
	"github.com/wisonline/woec/core/user"
	emailsvc "github.com/wisonline/woec/services/email"
	logsvc "github.com/wisonline/woec/services/logger"
	inmemdb "github.com/wisonline/woec/storage/database/inmem"
	"github.com/wisonline/woec/tests"
)

var passwordLine = regexp.MustCompile(`Password: (\S+)`)

type retrierMock struct {
	mu   sync.Mutex
	msgs []*core.EmailMessage
}

func (r *retrierMock) Retry(msg *core.EmailMessage) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

type fixture struct {
	svc     *application.Service
	apps    application.Repository
	users   user.Repository
	mail    *emailsvc.ConsoleServiceMock
	retrier *retrierMock
}

// statusUpdateFailingRepo fails every status update with err.
type statusUpdateFailingRepo struct {
	application.Repository
	err error
}

func (r statusUpdateFailingRepo) UpdateApplicationStatus(context.Context, application.StatusUpdate) (application.Application, error) {
	return application.Application{}, r.err
}

// newFixture wires a Service over an in-memory database. wrap, if given, decorates
// the application repository seen by the Service.
func newFixture(t *testing.T, wrap ...func(application.Repository) application.Repository) *fixture {
	t.Helper()
	conf := testutil.NewConfig()
	logger := logsvc.NewNopLogger()
	db := inmemdb.Open()

	f := &fixture{
		apps:    inmemdb.NewApplicationRepository(db),
		users:   inmemdb.NewUserRepository(db),
		mail:    emailsvc.NewConsoleServiceMock(conf, logger),
		retrier: &retrierMock{},
	}
	svcRepo := f.apps
	for _, w := range wrap {
		svcRepo = w(svcRepo)
	}
	f.svc = application.NewService(
		svcRepo,
		inmemdb.NewTxManager(db),
		course.NewService(inmemdb.NewCourseRepository(db)),
		application.NewProvisioner(f.users, conf, logger),
		application.NewNotifier(f.mail, f.retrier, conf, logger),
		testutil.NewValidator(),
		logger,
	)
	return f
}

func anaApplication() application.NewApplication {
	return application.NewApplication{
		FirstName:  "Ana",
		LastName:   "Lopez",
		Email:      "ana@example.com",
		Country:    "Spain",
		CourseID:   2,
		Motivation: "I want fluency for work",
	}
}

func (f *fixture) submit(t *testing.T) application.Application {
	t.Helper()
	app, err := f.svc.Submit(context.Background(), anaApplication())
	require.NoError(t, err)
	return app
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	app := f.submit(t)
	assert.NotZero(t, app.ID)
	assert.Equal(t, application.StatusPending, app.Status)
	assert.False(t, app.CreatedAt.IsZero())
	assert.Nil(t, app.DecidedAt)

	got, err := f.svc.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, app, got)

	tests := []struct {
		name      string
		mutate    func(na *application.NewApplication)
		wantField string
	}{
		{name: "blank first name", mutate: func(na *application.NewApplication) { na.FirstName = "  " }, wantField: "firstName"},
		{name: "short last name", mutate: func(na *application.NewApplication) { na.LastName = "L" }, wantField: "lastName"},
		{name: "bad email", mutate: func(na *application.NewApplication) { na.Email = "ana@" }, wantField: "email"},
		{name: "no country", mutate: func(na *application.NewApplication) { na.Country = "" }, wantField: "country"},
		{name: "no course", mutate: func(na *application.NewApplication) { na.CourseID = 0 }, wantField: "courseId"},
		{name: "negative course", mutate: func(na *application.NewApplication) { na.CourseID = -1 }, wantField: "courseId"},
		{name: "short motivation", mutate: func(na *application.NewApplication) { na.Motivation = "hi" }, wantField: "motivation"},
		{name: "long motivation", mutate: func(na *application.NewApplication) { na.Motivation = strings.Repeat("a", 501) }, wantField: "motivation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			na := anaApplication()
			tt.mutate(&na)
			_, err := f.svc.Submit(ctx, na)

			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Equal(t, tt.wantField, verrs[0].Field())
		})
	}

	t.Run("unknown course", func(t *testing.T) {
		na := anaApplication()
		na.CourseID = 42
		_, err := f.svc.Submit(ctx, na)

		var verr *core.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "courseId", verr.Fields[0].Field)
	})
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.submit(t)

	dec, err := f.svc.UpdateStatus(ctx, app.ID, application.StatusChange{Status: "approved"})
	require.NoError(t, err)
	require.NoError(t, dec.EmailErr)
	assert.Equal(t, application.StatusApproved, dec.Application.Status)
	assert.NotNil(t, dec.Application.DecidedAt)
	assert.True(t, strings.HasPrefix(dec.Username, "ana.lopez."), dec.Username)

	usr, err := f.users.GetUser(ctx, user.GetFilter{ID: dec.Application.UserID})
	require.NoError(t, err)
	assert.Equal(t, dec.Username, usr.Username)
	assert.Equal(t, user.RoleStudent, usr.Role)
	assert.Equal(t, "ana@example.com", usr.Email)
	assert.Equal(t, "Ana", usr.FirstName)
	assert.Equal(t, "Lopez", usr.LastName)

	_, err = f.users.GetUser(ctx, user.GetFilter{ID: usr.ID + 1})
	assert.Equal(t, user.ErrNotFound, err, "exactly one account")

	msgs := f.mail.SentMessages()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Equal(t, "ana@example.com", msg.To[0].Address)
	assert.Equal(t, 1, strings.Count(msg.TextContent, dec.Username))
	assert.Equal(t, 1, strings.Count(msg.HTMLContent, dec.Username))

	match := passwordLine.FindStringSubmatch(msg.TextContent)
	require.Len(t, match, 2)
	pwd := match[1]
	assert.Equal(t, 1, strings.Count(msg.TextContent, pwd))
	assert.NotEqual(t, []byte(pwd), usr.PasswordHash)
	assert.NoError(t, usr.CheckPassword(pwd))
}

func TestApproveStatusUpdateFailure(t *testing.T) {
	errUpdate := errors.New("update failed")
	f := newFixture(t, func(repo application.Repository) application.Repository {
		return statusUpdateFailingRepo{Repository: repo, err: errUpdate}
	})
	ctx := context.Background()
	app := f.submit(t)

	dec, err := f.svc.Approve(ctx, app.ID)
	assert.Equal(t, errUpdate, err)
	assert.Equal(t, application.Decision{}, dec)
	assert.Empty(t, f.mail.SentMessages(), "no credentials emailed")

	_, err = f.users.GetUser(ctx, user.GetFilter{UsernameOrEmail: "ana@example.com"})
	assert.Equal(t, user.ErrNotFound, err, "account rolled back")

	got, err := f.apps.GetApplicationByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, got.Status)
}

func TestReject(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		reason     string
		wantReason string
	}{
		{name: "with reason", reason: "Course full", wantReason: "Course full"},
		{name: "default reason", reason: "  ", wantReason: "We have reached our capacity for this enrollment period."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			app := f.submit(t)

			dec, err := f.svc.UpdateStatus(ctx, app.ID, application.StatusChange{Status: "rejected", Reason: tt.reason})
			require.NoError(t, err)
			require.NoError(t, dec.EmailErr)
			assert.Equal(t, application.StatusRejected, dec.Application.Status)
			assert.Equal(t, tt.wantReason, dec.Application.Reason)
			assert.Empty(t, dec.Username)
			assert.Zero(t, dec.Application.UserID)

			_, err = f.users.GetUser(ctx, user.GetFilter{ID: 1})
			assert.Equal(t, user.ErrNotFound, err, "no account created")

			msgs := f.mail.SentMessages()
			require.Len(t, msgs, 1)
			assert.Contains(t, msgs[0].TextContent, tt.wantReason)
			assert.Contains(t, msgs[0].HTMLContent, tt.wantReason)
		})
	}
}

func TestTransitionOnce(t *testing.T) {
	ctx := context.Background()
	approve := application.StatusChange{Status: application.StatusApproved}
	reject := application.StatusChange{Status: application.StatusRejected}

	tests := []struct {
		name          string
		first, second application.StatusChange
	}{
		{name: "approve twice", first: approve, second: approve},
		{name: "reject twice", first: reject, second: reject},
		{name: "reject approved", first: approve, second: reject},
		{name: "approve rejected", first: reject, second: approve},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			app := f.submit(t)

			first, err := f.svc.UpdateStatus(ctx, app.ID, tt.first)
			require.NoError(t, err)

			_, err = f.svc.UpdateStatus(ctx, app.ID, tt.second)
			assert.Equal(t, application.ErrInvalidTransition, err)

			got, err := f.svc.GetByID(ctx, app.ID)
			require.NoError(t, err)
			assert.Equal(t, first.Application, got, "first decision kept")
			assert.Len(t, f.mail.SentMessages(), 1)
		})
	}
}

func TestUnknownApplication(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, 99)
	assert.Equal(t, application.ErrNotFound, err)
	_, err = f.svc.Reject(ctx, 99, "")
	assert.Equal(t, application.ErrNotFound, err)
	_, err = f.svc.GetByID(ctx, 99)
	assert.Equal(t, application.ErrNotFound, err)
	assert.Empty(t, f.mail.SentMessages())
}

func TestInvalidStatusChange(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	for _, status := range []application.Status{"", "pending", "archived"} {
		_, err := f.svc.UpdateStatus(context.Background(), app.ID, application.StatusChange{Status: status})
		var verrs validator.ValidationErrors
		assert.ErrorAs(t, err, &verrs, "status %q", status)
	}
}

func TestConcurrentApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.submit(t)

	const callers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		errs      []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Approve(ctx, app.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	require.Len(t, errs, callers-1)
	for _, err := range errs {
		assert.Equal(t, application.ErrInvalidTransition, err)
	}

	_, err := f.users.GetUser(ctx, user.GetFilter{ID: 2})
	assert.Equal(t, user.ErrNotFound, err, "one account only")
	assert.Len(t, f.mail.SentMessages(), 1)
}

func TestEmailFailureKeepsTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.submit(t)
	f.mail.Fail(errors.New("provider down"))

	dec, err := f.svc.Approve(ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, errors.Is(dec.EmailErr, core.ErrEmailDelivery), dec.EmailErr)
	assert.Equal(t, application.StatusApproved, dec.Application.Status)

	got, err := f.svc.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusApproved, got.Status)

	_, err = f.users.GetUser(ctx, user.GetFilter{ID: got.UserID})
	assert.NoError(t, err)

	require.Len(t, f.retrier.msgs, 1)
	assert.Equal(t, "welcome", f.retrier.msgs[0].TemplateName)
}

func TestQuery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.submit(t)
	second := f.submit(t)
	_, err := f.svc.Reject(ctx, second.ID, "")
	require.NoError(t, err)

	apps, err := f.svc.Query(ctx, application.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, apps, 2)

	apps, err = f.svc.Query(ctx, application.QueryFilter{Statuses: []application.Status{application.StatusPending}})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, first.ID, apps[0].ID)
}

func TestPreviewEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	app := f.submit(t)

	msg, err := f.svc.PreviewEmail(ctx, app.ID, application.StatusChange{Status: application.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(msg.TextContent, "[username]"))
	assert.Equal(t, 1, strings.Count(msg.TextContent, "[password]"))
	assert.Contains(t, msg.HTMLContent, "Hello Ana")

	msg, err = f.svc.PreviewEmail(ctx, app.ID, application.StatusChange{Status: application.StatusRejected, Reason: "Course full"})
	require.NoError(t, err)
	assert.Contains(t, msg.TextContent, "Course full")

	_, err = f.svc.PreviewEmail(ctx, 99, application.StatusChange{Status: application.StatusRejected})
	assert.Equal(t, application.ErrNotFound, err)

	got, err := f.svc.GetByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, got.Status, "preview changes nothing")
	assert.Empty(t, f.mail.SentMessages())
}
