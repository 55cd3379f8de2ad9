package main

import (
	"context"
	"log"
	"os"

	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
	"github.com/trezcool/journal/core/school"
	"github.com/trezcool/journal/storage/database"
	sqlxdb "github.com/trezcool/journal/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	cli := commandLine{
		conf:     conf,
		out:      os.Stdout,
		createDB: database.CreateIfNotExist,
	}

	// createdb runs before the database exists
	if len(os.Args) > 1 && os.Args[1] != "createdb" {
		db, err := database.Open(context.Background(), conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()

		cli.db = db.DB
		validate := core.NewValidator()
		cli.registry, err = school.NewRegistry(validate)
		errAndDie(err)
		cli.svc = crud.NewService(sqlxdb.NewUnitOfWork(db), crud.NewValidator(validate), crud.NewPagingLimits(conf.Paging))
	}

	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
