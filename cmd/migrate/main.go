// Command migrate applies pending schema migrations, reports ledger status
// and creates new migration stubs.
//
// Usage:
//
//	migrate up --dir db/migrations
//	migrate status --dir db/migrations
//	migrate new add_embeddings --dir db/migrations
//
// Connection settings come from the environment (see package config); a
// local .env file is loaded when present. Exit status is 0 on success,
// including the case where nothing is pending, and non-zero on any
// failure: discovery error, lock contention, bootstrap error or a failing
// migration.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/kengine/migrate"
	"github.com/kengine/migrate/config"
	"github.com/kengine/migrate/fingerprint"
	"github.com/kengine/migrate/ledger"
	"github.com/kengine/migrate/lock"
	"github.com/kengine/migrate/pkg/migrations"
	"github.com/kengine/migrate/pkg/version"
	"github.com/kengine/migrate/source"
)

var (
	app     = kingpin.New("migrate", "Schema migration runner for the knowledge-engine database.").Version(version.Version)
	dir     = app.Flag("dir", "Migration directory.").Default("db/migrations").String()
	adapter = app.Flag("adapter", "Database adapter: postgres, mysql or sqlite. Overrides MIGRATE_ADAPTER.").String()
	lockKey = app.Flag("lock-key", "Advisory lock key shared by all runners on this database.").Default(fmt.Sprint(lock.DefaultKey)).Int64()
	verbose = app.Flag("verbose", "Log skipped migrations too.").Short('v').Bool()

	upCmd = app.Command("up", "Apply all pending migrations in order.")

	statusCmd = app.Command("status", "List applied migrations with drift checks and the pending set.")

	newCmd  = app.Command("new", "Create a new migration stub.")
	newName = newCmd.Arg("name", "snake_case description, e.g. add_embeddings.").Required().String()
	newNoTx = newCmd.Flag("no-transaction", "Mark the migration to run outside a transaction.").Bool()
)

func main() {
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logger := logrus.WithField("component", "migrate")

	var err error
	switch command {
	case upCmd.FullCommand():
		err = runUp(logger)
	case statusCmd.FullCommand():
		err = runStatus()
	case newCmd.FullCommand():
		err = runNew()
	}
	if err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// loadConfig merges the environment config with command-line overrides.
func loadConfig() config.Config {
	cfg := config.FromEnv()
	if *adapter != "" {
		cfg.Adapter = *adapter
	}
	return cfg
}

// openDB opens the target database and verifies connectivity.
func openDB(cfg config.Config) (*sql.DB, error) {
	driver, err := cfg.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Adapter, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", cfg.Adapter, err)
	}
	return db, nil
}

// buildRunner wires the adapter-specific ledger and locker into a Runner.
func buildRunner(cfg config.Config, db *sql.DB, logger *logrus.Entry) (*migrate.Runner, error) {
	var (
		ldg migrate.Ledger
		lkr migrate.Locker
	)
	switch cfg.Adapter {
	case config.AdapterPostgres:
		ldg = ledger.NewPostgres(db)
		lkr = lock.NewPostgresWithKey(db, *lockKey)
	case config.AdapterMySQL:
		ldg = ledger.NewMySQL(db)
		lkr = lock.NewMySQLWithKey(db, *lockKey)
	case config.AdapterSQLite:
		ldg = ledger.NewSQLite(db)
		lkr = lock.NewSQLiteLease(db)
	default:
		return nil, fmt.Errorf("unsupported adapter %q", cfg.Adapter)
	}

	return migrate.New(migrate.Config{
		DB:     db,
		Source: source.New(*dir),
		Ledger: ldg,
		Locker: lkr,
		Logger: logger,
	})
}

func runUp(logger *logrus.Entry) error {
	cfg := loadConfig()
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := buildRunner(cfg, db, logger)
	if err != nil {
		return err
	}

	res, err := runner.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d applied, %d skipped", res.Applied, res.Skipped)
	if res.Drifted > 0 {
		fmt.Printf(", %d drifted", res.Drifted)
	}
	fmt.Println()
	return nil
}

func runStatus() error {
	cfg := loadConfig()
	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := buildRunner(cfg, db, logrus.WithField("component", "migrate"))
	if err != nil {
		return err
	}

	status, err := runner.Status(context.Background())
	if err != nil {
		return err
	}

	if len(status.Entries) == 0 {
		fmt.Println("no migrations applied yet")
	}
	for _, e := range status.Entries {
		state := "ok"
		switch {
		case e.Missing:
			state = "MISSING"
		case e.Drifted:
			state = fmt.Sprintf("DRIFT (current %s)", fingerprint.Short(e.CurrentSHA256))
		}
		fmt.Printf("%-40s  %s  %s  %s\n",
			e.Filename,
			fingerprint.Short(e.ContentSHA256),
			e.AppliedAt.Format("2006-01-02 15:04:05"),
			state)
	}
	for _, name := range status.Pending {
		fmt.Printf("%-40s  pending\n", name)
	}
	return nil
}

func runNew() error {
	path, err := migrations.Create(migrations.Config{
		Dir:           *dir,
		Name:          *newName,
		NoTransaction: *newNoTx,
	})
	if err != nil {
		return err
	}
	fmt.Printf("created %s\n", path)
	return nil
}
