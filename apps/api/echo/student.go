package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/wisonline/woec/core/user"
)

type (
	UpcomingClass struct {
		ID         int    `json:"id"`
		Title      string `json:"title"`
		Instructor string `json:"instructor"`
		Time       string `json:"time"`
		Duration   string `json:"duration"`
	}

	Assignment struct {
		ID      int    `json:"id"`
		Title   string `json:"title"`
		DueDate string `json:"dueDate"`
		Status  string `json:"status"` // pending | completed
		Score   string `json:"score,omitempty"`
	}

	CourseProgress struct {
		ID               int    `json:"id"`
		Name             string `json:"name"`
		Progress         int    `json:"progress"` // percent
		Instructor       string `json:"instructor"`
		TotalLessons     int    `json:"totalLessons"`
		CompletedLessons int    `json:"completedLessons"`
	}

	Notification struct {
		ID      int    `json:"id"`
		Message string `json:"message"`
		Time    string `json:"time"`
		Read    bool   `json:"read"`
	}

	DashboardResponse struct {
		Student         user.User        `json:"student"`
		UpcomingClasses []UpcomingClass  `json:"upcomingClasses"`
		Assignments     []Assignment     `json:"assignments"`
		Courses         []CourseProgress `json:"courses"`
		Notifications   []Notification   `json:"notifications"`
	}
)

// Scheduling and grading are not modelled yet: the dashboard serves fixed sample data.
var (
	sampleClasses = []UpcomingClass{
		{ID: 1, Title: "Speaking Practice", Instructor: "Emily Parker", Time: "Today, 3:00 PM", Duration: "60 min"},
		{ID: 2, Title: "Grammar Review", Instructor: "Michael Johnson", Time: "Tomorrow, 10:00 AM", Duration: "45 min"},
	}
	sampleAssignments = []Assignment{
		{ID: 1, Title: "Writing Exercise", DueDate: "Sep 15, 2023", Status: "pending"},
		{ID: 2, Title: "Grammar Quiz", DueDate: "Sep 10, 2023", Status: "completed", Score: "85%"},
	}
	sampleCourses = []CourseProgress{
		{ID: 1, Name: "Beginner English", Progress: 100, Instructor: "James Wilson", TotalLessons: 12, CompletedLessons: 12},
		{ID: 2, Name: "Intermediate English", Progress: 65, Instructor: "Emily Parker", TotalLessons: 24, CompletedLessons: 16},
		{ID: 3, Name: "Business English", Progress: 30, Instructor: "Michael Johnson", TotalLessons: 18, CompletedLessons: 5},
	}
	sampleNotifications = []Notification{
		{ID: 1, Message: "Your Speaking Practice class starts in 2 hours", Time: "2 hours ago"},
		{ID: 2, Message: "New assignment posted: Writing Exercise", Time: "1 day ago"},
		{ID: 3, Message: "Your Grammar Quiz has been graded", Time: "3 days ago", Read: true},
	}
)

func registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *user.Service) {
	sg := g.Group("/student", jwt, studentMiddleware())
	sg.GET("/dashboard", func(ctx echo.Context) error {
		usr, err := getContextUser(ctx, svc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		return ctx.JSON(http.StatusOK, DashboardResponse{
			Student:         usr,
			UpcomingClasses: sampleClasses,
			Assignments:     sampleAssignments,
			Courses:         sampleCourses,
			Notifications:   sampleNotifications,
		})
	})
}
