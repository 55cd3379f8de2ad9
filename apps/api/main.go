package main

import (
	"context"
	"fmt"
	"log"
	"os"

	echoapi "github.com/trezcool/journal/apps/api/echo"
	"github.com/trezcool/journal/core"
	"github.com/trezcool/journal/core/crud"
	"github.com/trezcool/journal/core/school"
	logsvc "github.com/trezcool/journal/services/logger"
	"github.com/trezcool/journal/storage/database"
	inmemdb "github.com/trezcool/journal/storage/database/inmem"
	sqlxdb "github.com/trezcool/journal/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	uow, closeDB, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := core.NewValidator()
	translator, err := core.NewTranslator(conf.I18n.Locales...)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading translations: %v", err), err)
	}
	registry, err := school.NewRegistry(validate)
	if err != nil {
		logger.Fatal(fmt.Sprintf("loading entities: %v", err), err)
	}
	svc := crud.NewService(uow, crud.NewValidator(validate), crud.NewPagingLimits(conf.Paging))

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.Deps{
			Conf:       conf,
			Logger:     logger,
			Registry:   registry,
			Service:    svc,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()
	logger.Info(fmt.Sprintf("Listening on %s", conf.Server.Address))

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB returns the unit of work of the configured engine and the function closing it.
func setUpDB(conf *core.Config) (crud.UnitOfWork, func() error, error) {
	if conf.Database.Engine == "inmem" {
		return inmemdb.Open(), func() error { return nil }, nil
	}

	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return sqlxdb.NewUnitOfWork(db), db.Close, nil
}
