package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/wisonline/woec/core"
	"github.com/wisonline/woec/core/user"
	"github.com/wisonline/woec/storage/database"
	inmemdb "github.com/wisonline/woec/storage/database/inmem"
	sqlxrepos "github.com/wisonline/woec/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	if err := user.LoadCommonPasswords(conf.CommonPasswordsPath); err != nil {
		logger.Printf("common passwords not loaded: %v", err)
	}

	cli := commandLine{out: os.Stdout}
	if conf.Database.InMemory() {
		cli.usrRepo = inmemdb.NewUserRepository(inmemdb.Open())
	} else {
		ctx := context.Background()
		errAndDie(database.CreateIfNotExist(ctx, conf))
		db, err := database.Open(ctx, conf)
		errAndDie(err)
		defer db.Close()

		cli.usrRepo = sqlxrepos.NewUserRepository(db)
		cli.migrate = func(command string, args ...string) error {
			return database.Migrate(db, command, args...)
		}
	}
	cli.usrSvc = user.NewService(cli.usrRepo, validate)

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
