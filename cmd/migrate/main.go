package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/db"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// offline commands work on migration files only.
var offline = map[string]func(options) error{
	"create":   createMigration,
	"validate": validateMigrations,
}

// online commands run goose against the ledger database.
var online = map[string]func(context.Context, *sql.DB, options) error{
	"up":      runGoose,
	"down":    runGoose,
	"status":  runGoose,
	"redo":    runGoose,
	"version": migrateToVersion,
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|redo|version|create|validate")
	flag.StringVar(&opts.dir, "dir", "", "goose migrations directory on disk (empty runs the embedded set)")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if fn, ok := offline[opts.cmd]; ok {
		return fn(opts)
	}
	fn, ok := online[opts.cmd]
	if !ok {
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		return errors.New("goose migrations target postgres; unset STOCKLEDGER_USE_SQLITE")
	}

	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
		Fields:      map[string]any{"env": cfg.App.Env},
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd": opts.cmd,
		"dir": opts.dir,
	})

	dbClient, err := db.New(ctx, cfg.DB, false, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	started := time.Now()
	if err := fn(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "migration failed", err)
		return err
	}
	logg.Info(logg.WithField(ctx, "duration_ms", time.Since(started).Milliseconds()), "migration finished")
	return nil
}

func createMigration(opts options) error {
	if opts.name == "" {
		return errors.New("missing -name")
	}
	target := opts.dir
	if target == "" {
		target = migrate.DefaultDir
	}
	path, err := migrate.CreateSQLMigration(target, opts.name, time.Now())
	if err != nil {
		return err
	}
	fmt.Println("created migration:", path)
	return nil
}

func validateMigrations(opts options) error {
	var err error
	if opts.dir != "" {
		err = migrate.ValidateDir(opts.dir)
	} else {
		err = migrate.ValidateFS(migrate.Embedded())
	}
	if err != nil {
		return err
	}
	fmt.Println("migration validation passed")
	return nil
}

func runGoose(ctx context.Context, sqlDB *sql.DB, opts options) error {
	return migrate.Run(ctx, sqlDB, opts.dir, opts.cmd)
}

func migrateToVersion(ctx context.Context, sqlDB *sql.DB, opts options) error {
	if opts.version == "" {
		return errors.New("missing -version")
	}
	return migrate.MigrateToVersion(ctx, sqlDB, opts.dir, opts.version)
}
