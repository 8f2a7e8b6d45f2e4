package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"net/url"
	"regexp"
	"time"

	"github.com/appatize/waitlist/models"
	// Imports postgresql driver for database/sql
	_ "github.com/lib/pq"
)

// Table names are interpolated into queries, so keep them to identifiers.
var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// SQLDatabase is a Database interface backed by postgresql.
type SQLDatabase struct {
	cfg   Config  // Configuration to define the DB connection.
	conn  *sql.DB // The database connection.
	table string
}

func timeoutOrDefault(cfg Config) time.Duration {
	if cfg.DbTimeout <= 0 {
		return DefaultDbTimeout
	}
	return cfg.DbTimeout
}

func getConnectionString(cfg Config) string {
	// connect_timeout is in whole seconds.
	connectTimeout := int(math.Ceil(timeoutOrDefault(cfg).Seconds()))
	connectionString := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable&connect_timeout=%d",
		url.PathEscape(cfg.DbUsername),
		url.PathEscape(cfg.DbPass),
		url.PathEscape(cfg.DbHost),
		url.PathEscape(cfg.DbName),
		connectTimeout)
	return connectionString
}

func (db *SQLDatabase) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeoutOrDefault(db.cfg))
}

// InitSQLDatabase creates a DB connection based on information in a Config, and
// returns a pointer the resulting SQLDatabase object. The submissions table is
// created if it doesn't exist yet. If connection fails, returns an error.
func InitSQLDatabase(cfg Config) (*SQLDatabase, error) {
	if !validTableName.MatchString(cfg.DbSubmissionTable) {
		return nil, fmt.Errorf("invalid submission table name %q", cfg.DbSubmissionTable)
	}
	connectionString := getConnectionString(cfg)
	log.Printf("Connecting to Postgres DB ... \n")
	conn, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}
	database := &SQLDatabase{cfg: cfg, conn: conn, table: cfg.DbSubmissionTable}
	ctx, cancel := database.withTimeout()
	defer cancel()
	if _, err = conn.ExecContext(ctx, database.createTableQuery()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not create table %s: %v", database.table, err)
	}
	return database, nil
}

func (db *SQLDatabase) createTableQuery() string {
	return fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s
(
    id          SERIAL PRIMARY KEY,
    timestamp   TIMESTAMPTZ NOT NULL,
    email       TEXT NOT NULL
)`, db.table)
}

// PutSubmission inserts one submission row.
func (db *SQLDatabase) PutSubmission(record models.SubmissionRecord) error {
	ctx, cancel := db.withTimeout()
	defer cancel()
	_, err := db.conn.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s(timestamp, email) VALUES($1, $2)", db.table),
		record.Timestamp.UTC(), record.Email)
	return err
}

// GetSubmissions retrieves every submission in insertion order.
func (db *SQLDatabase) GetSubmissions() ([]models.SubmissionRecord, error) {
	ctx, cancel := db.withTimeout()
	defer cancel()
	rows, err := db.conn.QueryContext(ctx,
		fmt.Sprintf("SELECT timestamp, email FROM %s ORDER BY id", db.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	records := []models.SubmissionRecord{}
	for rows.Next() {
		var record models.SubmissionRecord
		if err := rows.Scan(&record.Timestamp, &record.Email); err != nil {
			return records, err
		}
		record.Timestamp = record.Timestamp.UTC()
		records = append(records, record)
	}
	return records, rows.Err()
}

// ClearTables empties the submissions table.
func (db *SQLDatabase) ClearTables() error {
	ctx, cancel := db.withTimeout()
	defer cancel()
	_, err := db.conn.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", db.table))
	return err
}

// Close closes the underlying connection pool.
func (db *SQLDatabase) Close() error {
	return db.conn.Close()
}
