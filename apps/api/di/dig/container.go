package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/wisonline/woec/apps/api/echo"
	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/application"
	"github.com/wisonline/woec/core/course"
	"github.com/wisonline/woec/core/user"
	emailsvc "github.com/wisonline/woec/services/email"
	logsvc "github.com/wisonline/woec/services/logger"
	"github.com/wisonline/woec/services/ratelimit"
	"github.com/wisonline/woec/storage/database"
	inmemdb "github.com/wisonline/woec/storage/database/inmem"
	sqlxrepos "github.com/wisonline/woec/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Stores groups the repositories of the configured database engine.
type Stores struct {
	dig.Out
	Users        user.Repository
	Courses      course.Repository
	Applications application.Repository
	TxManager    core.TxManager
	Closer       func() error `name:"dbCloser"`
}

type DBCloserParam struct {
	dig.In
	Close func() error `name:"dbCloser"`
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(os.Stdout, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	return newLogger(conf)
}

func newStores(conf *core.Config, loggerParam DBLoggerParam) Stores {
	if conf.Database.InMemory() {
		db := inmemdb.Open()
		return Stores{
			Users:        inmemdb.NewUserRepository(db),
			Courses:      inmemdb.NewCourseRepository(db),
			Applications: inmemdb.NewApplicationRepository(db),
			TxManager:    inmemdb.NewTxManager(db),
			Closer:       func() error { return nil },
		}
	}

	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}

		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Stores{
		Users:        sqlxrepos.NewUserRepository(db),
		Courses:      sqlxrepos.NewCourseRepository(db),
		Applications: sqlxrepos.NewApplicationRepository(db),
		TxManager:    database.NewTxManager(db),
		Closer:       db.Close,
	}
}

func newRetryQueue(conf *core.Config, svc core.EmailService, logger core.Logger) (*emailsvc.RetryQueue, core.EmailRetrier) {
	q := emailsvc.NewRetryQueue(svc, conf, logger)
	return q, q
}

func newLimiter(conf *core.Config, logger core.Logger) ratelimit.Limiter {
	if conf.RateLimit.RedisURL == "" {
		return ratelimit.NewMemoryLimiter()
	}
	client, err := ratelimit.NewRedisClient(conf.RateLimit.RedisURL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return ratelimit.NewRedisLimiter(client)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	usrSvc *user.Service,
	courseSvc *course.Service,
	appSvc *application.Service,
	limiter ratelimit.Limiter,
) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		ApplicationSvc: appSvc,
		Limiter:        limiter,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStores))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(newRetryQueue))
	must(c.Provide(newLimiter))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(application.NewProvisioner))
	must(c.Provide(application.NewNotifier))
	must(c.Provide(application.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
