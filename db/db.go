package db

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/appatize/waitlist/models"
	"github.com/appatize/waitlist/util"
)

// Database interface: the durable, append-only record of accepted
// submissions. Records are never updated or deleted outside of tests.
type Database interface {
	// Appends one accepted submission.
	PutSubmission(models.SubmissionRecord) error
	// Retrieves every submission, in the order they were stored.
	GetSubmissions() ([]models.SubmissionRecord, error)
	// Removes all submissions. Only used by tests.
	ClearTables() error
}

// Backends that can be selected with WAITLIST_STORE.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
)

// Config is a configuration struct for a Database.
type Config struct {
	Store             string
	LogPath           string
	DbHost            string
	DbName            string
	DbUsername        string
	DbPass            string
	DbSubmissionTable string
	// Bounds connecting to and each statement against Postgres.
	DbTimeout time.Duration
}

// DefaultDbTimeout is used when DB_TIMEOUT is unset.
const DefaultDbTimeout = 5 * time.Second

// Default configuration values. Can be overwritten by env vars of the same name.
var configDefaults = map[string]string{
	"WAITLIST_STORE":      StoreFile,
	"WAITLIST_LOG_PATH":   "data/waitlist.csv",
	"DB_NAME":             "waitlist",
	"TEST_DB_NAME":        "waitlist_test",
	"DB_SUBMISSION_TABLE": "submissions",
}

func getEnvOrDefault(varName string) string {
	return util.GetEnvOrDefault(varName, configDefaults[varName])
}

// LoadEnvironmentVariables loads relevant environment variables into a
// Config object. When the postgres store is selected, DB_HOST, DB_USERNAME
// and DB_PASSWORD must be set; every missing one is reported.
func LoadEnvironmentVariables() (Config, error) {
	config := Config{
		Store:             getEnvOrDefault("WAITLIST_STORE"),
		LogPath:           getEnvOrDefault("WAITLIST_LOG_PATH"),
		DbName:            getEnvOrDefault("DB_NAME"),
		DbSubmissionTable: getEnvOrDefault("DB_SUBMISSION_TABLE"),
	}
	if flag.Lookup("test.v") != nil {
		// Avoid accidentally wiping the default db during tests.
		config.DbName = getEnvOrDefault("TEST_DB_NAME")
	}
	if config.Store != StoreFile && config.Store != StorePostgres {
		return config, fmt.Errorf("WAITLIST_STORE must be %q or %q, got %q",
			StoreFile, StorePostgres, config.Store)
	}
	varErrs := util.Errors{}
	timeout, err := util.GetEnvDuration("DB_TIMEOUT", DefaultDbTimeout)
	if err != nil {
		varErrs = append(varErrs, err)
	}
	config.DbTimeout = timeout
	if config.Store == StorePostgres {
		config.DbHost = util.RequireEnv("DB_HOST", &varErrs)
		config.DbUsername = util.RequireEnv("DB_USERNAME", &varErrs)
		config.DbPass = util.RequireEnv("DB_PASSWORD", &varErrs)
	} else {
		config.DbHost = os.Getenv("DB_HOST")
		config.DbUsername = os.Getenv("DB_USERNAME")
		config.DbPass = os.Getenv("DB_PASSWORD")
	}
	if len(varErrs) > 0 {
		return config, varErrs
	}
	return config, nil
}

// Open returns the Database selected by cfg.Store.
func Open(cfg Config) (Database, error) {
	switch cfg.Store {
	case StorePostgres:
		return InitSQLDatabase(cfg)
	case StoreFile, "":
		return InitFileDatabase(cfg), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}
