package application

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/course"
)

var (
	// errors
	ErrNotFound          = errors.New("application not found")
	ErrInvalidTransition = errors.New("application has already been decided")
	errUnknownCourse     = errors.New("unknown course")
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application) (Application, error)
		QueryApplications(ctx context.Context, filter QueryFilter) ([]Application, error)
		GetApplicationByID(ctx context.Context, id int) (Application, error)
		// GetApplicationForUpdate locks the application until the transaction carried by ctx ends.
		GetApplicationForUpdate(ctx context.Context, id int) (Application, error)
		UpdateApplicationStatus(ctx context.Context, upd StatusUpdate) (Application, error)
	}

	// Decision is the outcome of a lifecycle transition.
	// EmailErr is set when the status change committed but the notification was not delivered.
	Decision struct {
		Application Application
		Username    string // approved only
		EmailErr    error
	}

	Service struct {
		repo        Repository
		txm         core.TxManager
		courses     *course.Service
		provisioner *Provisioner
		notifier    *Notifier
		validate    *validator.Validate
		logger      core.Logger
		nowFunc     func() time.Time
	}
)

func NewService(
	repo Repository,
	txm core.TxManager,
	courses *course.Service,
	provisioner *Provisioner,
	notifier *Notifier,
	validate *validator.Validate,
	logger core.Logger,
) *Service {
	return &Service{
		repo:        repo,
		txm:         txm,
		courses:     courses,
		provisioner: provisioner,
		notifier:    notifier,
		validate:    validate,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

func (svc *Service) now() time.Time {
	return svc.nowFunc().UTC()
}

// Submit stores a new pending application.
func (svc *Service) Submit(ctx context.Context, na NewApplication) (Application, error) {
	if err := na.Validate(svc.validate); err != nil {
		return Application{}, err
	}
	ok, err := svc.courses.Exists(ctx, na.CourseID)
	if err != nil {
		return Application{}, pkgerrors.Wrap(err, "checking course")
	}
	if !ok {
		return Application{}, core.NewValidationError(
			errUnknownCourse,
			core.FieldError{Field: "courseId", Error: errUnknownCourse.Error()},
		)
	}

	app, err := svc.repo.CreateApplication(ctx, Application{
		FirstName:  na.FirstName,
		LastName:   na.LastName,
		Email:      na.Email,
		Country:    na.Country,
		CourseID:   na.CourseID,
		Motivation: na.Motivation,
		Status:     StatusPending,
		CreatedAt:  svc.now(),
	})
	if err != nil {
		return Application{}, pkgerrors.Wrap(err, "creating application")
	}
	svc.logger.Info("application submitted", map[string]interface{}{"application_id": app.ID, "course_id": app.CourseID})
	return app, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Application, error) {
	if len(filter.Ordering) == 0 {
		filter.Ordering = DefaultOrdering
	}
	return svc.repo.QueryApplications(ctx, filter)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Application, error) {
	return svc.repo.GetApplicationByID(ctx, id)
}

// UpdateStatus validates sc and applies the matching transition.
func (svc *Service) UpdateStatus(ctx context.Context, id int, sc StatusChange) (Decision, error) {
	if err := sc.Validate(svc.validate); err != nil {
		return Decision{}, err
	}
	if sc.Status == StatusApproved {
		return svc.Approve(ctx, id)
	}
	return svc.Reject(ctx, id, sc.Reason)
}

// Approve provisions a student account for a pending application, marks it approved
// and emails the credentials. Account and status are committed together.
func (svc *Service) Approve(ctx context.Context, id int) (Decision, error) {
	var (
		app   Application
		creds Credentials
	)
	err := svc.txm.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := svc.repo.GetApplicationForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !cur.Status.CanTransition(StatusApproved) {
			return ErrInvalidTransition
		}

		usr, c, err := svc.provisioner.ProvisionStudent(ctx, cur)
		if err != nil {
			return pkgerrors.Wrap(err, "provisioning account")
		}
		app, err = svc.repo.UpdateApplicationStatus(ctx, StatusUpdate{
			ID:        id,
			Status:    StatusApproved,
			UserID:    usr.ID,
			DecidedAt: svc.now(),
			OnlyFrom:  SourcesOf(StatusApproved),
		})
		if err != nil {
			return err
		}
		creds = c
		return nil
	})
	if err != nil {
		return Decision{}, err
	}
	svc.logger.Info("application approved", map[string]interface{}{"application_id": app.ID, "user_id": app.UserID})

	dec := Decision{Application: app, Username: creds.Username}
	dec.EmailErr = svc.notifier.SendWelcome(context.WithoutCancel(ctx), app, creds)
	return dec, nil
}

// Reject marks a pending application rejected and emails the reason,
// or the default one when reason is empty.
func (svc *Service) Reject(ctx context.Context, id int, reason string) (Decision, error) {
	reason = svc.notifier.RejectionReason(reason)

	var app Application
	err := svc.txm.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		app, err = svc.repo.UpdateApplicationStatus(ctx, StatusUpdate{
			ID:        id,
			Status:    StatusRejected,
			Reason:    reason,
			DecidedAt: svc.now(),
			OnlyFrom:  SourcesOf(StatusRejected),
		})
		return err
	})
	if err != nil {
		return Decision{}, err
	}
	svc.logger.Info("application rejected", map[string]interface{}{"application_id": app.ID})

	dec := Decision{Application: app}
	dec.EmailErr = svc.notifier.SendRejection(context.WithoutCancel(ctx), app, reason)
	return dec, nil
}

// PreviewEmail renders the email the applicant would receive for sc, with credential placeholders.
func (svc *Service) PreviewEmail(ctx context.Context, id int, sc StatusChange) (*core.EmailMessage, error) {
	if err := sc.Validate(svc.validate); err != nil {
		return nil, err
	}
	app, err := svc.repo.GetApplicationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return svc.notifier.Preview(app, sc.Status, sc.Reason)
}
