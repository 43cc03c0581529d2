package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/classroom"
	"github.com/trezcool/kelasi/services/logger"
	"github.com/trezcool/kelasi/storage/cache"
	"github.com/trezcool/kelasi/storage/database"
	"github.com/trezcool/kelasi/storage/database/sqlx"
)

func main() {
	conf, err := core.NewConfig()
	errAndDie(err)

	zl, err := logsvc.NewZapLogger(conf.Debug)
	errAndDie(err)
	logger := logsvc.NewRollbarLogger(zl.Named("ADMIN"), conf)
	defer logger.Sync()

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	store := sqlxrepos.NewStore(db)

	// new classes must show up in cached listings
	var listings classroom.ListingCache
	if !conf.Redis.Disabled {
		if client, rErr := cache.NewClient(context.Background(), conf.Redis); rErr == nil {
			defer client.Close()
			listings = cache.NewClassListings(client, conf.Redis.TTL)
		} else {
			logger.Warn("redis unavailable", rErr)
		}
	}

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)

	// start CLI
	cli := commandLine{
		db:         db,
		store:      store,
		classSvc:   classroom.NewService(store.Classes(), listings, logger, validate, translator),
		validate:   validate,
		translator: translator,
		out:        os.Stdout,
	}
	if err = cli.run(os.Args); err != nil {
		if err != errHelp {
			color.New(color.FgRed).Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		logger.Sync()
		db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
