package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/wisonline/woec/core/course"
)

func Test_courseApi(t *testing.T) {
	ta := setup(t)

	runHTTPTests(t, ta, []httpTest{
		{
			name:     "list",
			method:   http.MethodGet,
			path:     "/api/courses",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.Catalog),
		},
		{
			name:     "trailing slash",
			method:   http.MethodGet,
			path:     "/api/courses/",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.Catalog),
		},
		{
			name:     "retrieve",
			method:   http.MethodGet,
			path:     "/api/courses/3",
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.Catalog[2]),
		},
		{
			name:     "unknown",
			method:   http.MethodGet,
			path:     "/api/courses/99",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
		{
			name:     "not a number",
			method:   http.MethodGet,
			path:     "/api/courses/abc",
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
	})
}
