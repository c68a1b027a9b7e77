package application

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wisonline/woec/core"
)

type Status string

// Statuses
const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

var AllStatuses = []Status{StatusPending, StatusApproved, StatusRejected}

// transitions lists, for each target status, the statuses it may be reached from.
var transitions = map[Status][]Status{
	StatusApproved: {StatusPending},
	StatusRejected: {StatusPending},
}

func (s Status) IsValid() bool {
	for _, st := range AllStatuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// CanTransition reports whether an application in status s may move to target.
func (s Status) CanTransition(target Status) bool {
	for _, from := range transitions[target] {
		if s == from {
			return true
		}
	}
	return false
}

// SourcesOf returns the statuses target may be reached from.
func SourcesOf(target Status) []Status {
	return transitions[target]
}

type Application struct {
	ID         int        `json:"id"`
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Country    string     `json:"country"`
	CourseID   int        `json:"courseId"`
	Motivation string     `json:"motivation"`
	Status     Status     `json:"status"`
	Reason     string     `json:"reason,omitempty"`    // rejection reason
	DecidedAt  *time.Time `json:"decidedAt,omitempty"` // UTC
	UserID     int        `json:"userId,omitempty"`    // provisioned account, once approved
	CreatedAt  time.Time  `json:"createdAt"`           // UTC
}

// NewApplication contains the information a prospective student submits.
type NewApplication struct {
	FirstName  string `json:"firstName" validate:"required,min=2,max=50"`
	LastName   string `json:"lastName" validate:"required,min=2,max=50"`
	Email      string `json:"email" validate:"required,email"`
	Country    string `json:"country" validate:"required,notblank"`
	CourseID   int    `json:"courseId" validate:"required,gt=0"`
	Motivation string `json:"motivation" validate:"required,min=10,max=500"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.Country = core.CleanString(na.Country)
	na.Motivation = core.CleanString(na.Motivation)
	return validate.Struct(na)
}

// StatusChange is an administrator's decision on an application.
type StatusChange struct {
	Status Status `json:"status" validate:"required,oneof=approved rejected"`
	Reason string `json:"reason" validate:"max=500"`
}

func (sc *StatusChange) Validate(validate *validator.Validate) error {
	sc.Status = Status(core.CleanString(string(sc.Status), true /* lower */))
	sc.Reason = core.CleanString(sc.Reason)
	return validate.Struct(sc)
}

// StatusUpdate is the store level status write.
// An empty OnlyFrom overwrites unconditionally; otherwise the update only applies
// while the current status is one of OnlyFrom, and fails with ErrInvalidTransition.
type StatusUpdate struct {
	ID        int
	Status    Status
	Reason    string
	UserID    int
	DecidedAt time.Time
	OnlyFrom  []Status
}

// QueryFilter applies AND operation on available fields.
type QueryFilter struct {
	Statuses []Status
	Ordering []core.DBOrdering
}

// DefaultOrdering lists newest applications first.
var DefaultOrdering = []core.DBOrdering{{Field: "created_at"}, {Field: "id"}}

// OrderingFields maps the allowed ordering fields to their column names.
var OrderingFields = map[string]string{
	"id":         "id",
	"created_at": "created_at",
	"createdAt":  "created_at",
	"status":     "status",
	"last_name":  "last_name",
	"lastName":   "last_name",
	"course_id":  "course_id",
	"courseId":   "course_id",
}
