package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dividify/dividify-backend/pkg/config"
	"github.com/dividify/dividify-backend/pkg/db"
	"github.com/dividify/dividify-backend/pkg/logger"
	"github.com/dividify/dividify-backend/pkg/migrate"
)

const serviceName = "migrate"

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

// offline commands never touch the database.
func (o options) offline() bool {
	return o.cmd == "create" || o.cmd == "validate"
}

func parseOptions(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.cmd, "cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	fs.StringVar(&o.dir, "dir", "", "read migrations from this directory instead of the embedded set")
	fs.StringVar(&o.name, "name", "", "migration name (for create)")
	fs.StringVar(&o.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	switch o.cmd {
	case "up", "down", "redo", "status", "validate":
	case "create":
		if o.name == "" {
			return o, errors.New("missing -name for create")
		}
	case "version":
		if o.version == "" {
			return o, errors.New("missing -version for version command")
		}
	default:
		return o, fmt.Errorf("unknown -cmd value %q", o.cmd)
	}
	return o, nil
}

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(2)
	}
	_ = godotenv.Load()

	logg := logger.New(logger.Options{ServiceName: serviceName})
	ctx := logg.WithFields(context.Background(), map[string]any{"cmd": opts.cmd, "dir": opts.dir})

	if err := run(ctx, opts, logg); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, logg *logger.Logger) error {
	if opts.offline() {
		return runOffline(opts)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg = logger.FromConfig(serviceName, cfg.App)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer func() { _ = dbClient.Close() }()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	runner, err := migrate.NewRunner(sqlDB, migrate.FromDir(opts.dir), logg)
	if err != nil {
		return err
	}

	if opts.cmd == "version" {
		err = runner.To(ctx, opts.version)
	} else {
		err = runner.Apply(ctx, opts.cmd)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", opts.cmd, err)
	}
	logg.Info(ctx, "migrate finished")
	return nil
}

func runOffline(opts options) error {
	switch opts.cmd {
	case "create":
		target := opts.dir
		if target == "" {
			target = migrate.SourceDir
		}
		path, err := migrate.CreateSQLMigration(target, opts.name, time.Now())
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		fmt.Println("created migration:", path)
	case "validate":
		if err := migrate.ValidateFS(migrate.FromDir(opts.dir)); err != nil {
			return fmt.Errorf("migration validation: %w", err)
		}
		fmt.Println("migration validation passed")
	}
	return nil
}
