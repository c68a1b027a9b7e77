package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"regexp"
	"testing"

	. "github.com/wisonline/woec/apps/api/echo"
	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/application"
	"github.com/wisonline/woec/core/course"
	"github.com/wisonline/woec/core/user"
	emailsvc "github.com/wisonline/woec/services/email"
	logsvc "github.com/wisonline/woec/services/logger"
	"github.com/wisonline/woec/services/ratelimit"
	inmemdb "github.com/wisonline/woec/storage/database/inmem"
	"github.com/wisonline/woec/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	passwordLine    = regexp.MustCompile(`Password: (\S+)`)
)

type nopRetrier struct{}

func (nopRetrier) Retry(*core.EmailMessage) {}

type testApp struct {
	server   *Server
	conf     *core.Config
	usrRepo  user.Repository
	appRepo  application.Repository
	mailSvc  *emailsvc.ConsoleServiceMock
	admin    user.User
	student  user.User
	adminTkn string
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *testApp {
	t.Helper()
	conf := testutil.NewConfig()
	conf.RateLimit.Requests = 100
	for _, fn := range configure {
		fn(conf)
	}
	logger := logsvc.NewNopLogger()
	validate := testutil.NewValidator()

	// set up DB & repos
	db := inmemdb.Open()
	ta := &testApp{
		conf:    conf,
		usrRepo: inmemdb.NewUserRepository(db),
		appRepo: inmemdb.NewApplicationRepository(db),
		mailSvc: emailsvc.NewConsoleServiceMock(conf, logger),
	}

	// set up services
	courseSvc := course.NewService(inmemdb.NewCourseRepository(db))
	appSvc := application.NewService(
		ta.appRepo,
		inmemdb.NewTxManager(db),
		courseSvc,
		application.NewProvisioner(ta.usrRepo, conf, logger),
		application.NewNotifier(ta.mailSvc, nopRetrier{}, conf, logger),
		validate,
		logger,
	)

	// set up server
	ta.server = NewServer(&Deps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     core.NewTranslator(),
		UserSvc:        user.NewService(ta.usrRepo, validate),
		CourseSvc:      courseSvc,
		ApplicationSvc: appSvc,
		Limiter:        ratelimit.NewMemoryLimiter(),
	})

	ta.admin = testutil.CreateUser(t, ta.usrRepo, "admin", "admin@woec.test", "Adm1n-Pa55word!", user.RoleAdmin)
	ta.student = testutil.CreateUser(t, ta.usrRepo, "student", "student@woec.test", "Stud3nt-Pa55word!", user.RoleStudent)
	ta.adminTkn = getToken(t, conf, ta.admin)
	return ta
}

func (ta *testApp) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	ta.server.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var obj map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &obj); err != nil {
		t.Fatalf("unmarchallObj(%s): %v", rec.Body.String(), err)
	}
	return obj
}

func unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, ta *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, ta.do(req, rec))
		})
	}
}
