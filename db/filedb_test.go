package db_test

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/appatize/waitlist/db"
	"github.com/appatize/waitlist/models"
)

func tempFileDatabase(t *testing.T) *db.FileDatabase {
	return db.InitFileDatabase(db.Config{
		LogPath: filepath.Join(t.TempDir(), "data", "waitlist.csv"),
	})
}

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 6000000, time.UTC)

func TestEncodeRecord(t *testing.T) {
	line := db.EncodeRecord(models.SubmissionRecord{Timestamp: testTime, Email: `c"d@e.com`})
	expected := "\"2025-01-02T03:04:05.006Z\",\"c\"\"d@e.com\"\n"
	if line != expected {
		t.Errorf("expected %q, got %q", expected, line)
	}
}

func TestPutSubmissionCreatesDirectory(t *testing.T) {
	database := tempFileDatabase(t)
	if _, err := os.Stat(filepath.Dir(database.Path())); !os.IsNotExist(err) {
		t.Fatalf("expected directory not to exist yet, got %v", err)
	}
	if err := database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: "a@b.com"}); err != nil {
		t.Fatalf("PutSubmission failed: %v", err)
	}
	// Creating the directory again is a no-op.
	if err := database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: "b@b.com"}); err != nil {
		t.Fatalf("PutSubmission failed: %v", err)
	}
	records, err := database.GetSubmissions()
	if err != nil {
		t.Fatalf("GetSubmissions failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestPutSubmissionEscapesQuotes(t *testing.T) {
	database := tempFileDatabase(t)
	for _, email := range []string{"a@b.com", `c"d@e.com`} {
		err := database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: email})
		if err != nil {
			t.Fatalf("PutSubmission failed: %v", err)
		}
	}
	contents, err := ioutil.ReadFile(database.Path())
	if err != nil {
		t.Fatal(err)
	}
	expected := "\"2025-01-02T03:04:05.006Z\",\"a@b.com\"\n" +
		"\"2025-01-02T03:04:05.006Z\",\"c\"\"d@e.com\"\n"
	if string(contents) != expected {
		t.Errorf("expected file contents\n%s\ngot\n%s", expected, contents)
	}
	records, err := database.GetSubmissions()
	if err != nil {
		t.Fatalf("GetSubmissions failed: %v", err)
	}
	if len(records) != 2 || records[0].Email != "a@b.com" || records[1].Email != `c"d@e.com` {
		t.Errorf("unexpected records %v", records)
	}
	if !records[1].Timestamp.Equal(testTime) {
		t.Errorf("expected timestamp %v, got %v", testTime, records[1].Timestamp)
	}
}

func TestPutSubmissionConcurrent(t *testing.T) {
	database := tempFileDatabase(t)
	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- database.PutSubmission(models.SubmissionRecord{
				Timestamp: time.Now(),
				Email:     fmt.Sprintf("user%d@example.com", i),
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("PutSubmission failed: %v", err)
		}
	}
	records, err := database.GetSubmissions()
	if err != nil {
		t.Fatalf("GetSubmissions failed: %v", err)
	}
	if len(records) != n {
		t.Fatalf("expected %d records, got %d", n, len(records))
	}
	seen := make(map[string]bool)
	for _, record := range records {
		seen[record.Email] = true
	}
	for i := 0; i < n; i++ {
		if !seen[fmt.Sprintf("user%d@example.com", i)] {
			t.Errorf("missing record for user%d", i)
		}
	}
}

func TestGetSubmissionsMissingFile(t *testing.T) {
	database := tempFileDatabase(t)
	records, err := database.GetSubmissions()
	if err != nil || len(records) != 0 {
		t.Errorf("expected no records and no error, got %v %v", records, err)
	}
}

func TestPutSubmissionUnwritableLocation(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "data")
	if err := ioutil.WriteFile(blocker, []byte("not a directory"), 0644); err != nil {
		t.Fatal(err)
	}
	database := db.InitFileDatabase(db.Config{LogPath: filepath.Join(blocker, "waitlist.csv")})
	err := database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: "a@b.com"})
	if err == nil {
		t.Error("expected error when the log directory is a file")
	}
}

func TestReadRecordsRejectsCorruptLine(t *testing.T) {
	_, err := db.ReadRecords(strings.NewReader("\"not a time\",\"a@b.com\"\n"))
	if err == nil {
		t.Error("expected error on bad timestamp")
	}
	_, err = db.ReadRecords(strings.NewReader("\"2025-01-02T03:04:05.006Z\"\n"))
	if err == nil {
		t.Error("expected error on short record")
	}
}

func TestFileClearTables(t *testing.T) {
	database := tempFileDatabase(t)
	if err := database.ClearTables(); err != nil {
		t.Errorf("ClearTables on missing file failed: %v", err)
	}
	database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: "a@b.com"})
	if err := database.ClearTables(); err != nil {
		t.Fatalf("ClearTables failed: %v", err)
	}
	records, _ := database.GetSubmissions()
	if len(records) != 0 {
		t.Errorf("expected no records after ClearTables, got %d", len(records))
	}
}

func TestMemDatabase(t *testing.T) {
	database := db.InitMemDatabase()
	database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: "a@b.com"})
	database.PutErr = fmt.Errorf("disk full")
	if err := database.PutSubmission(models.SubmissionRecord{Timestamp: testTime, Email: "c@d.com"}); err == nil {
		t.Error("expected PutErr to be returned")
	}
	records, _ := database.GetSubmissions()
	if len(records) != 1 || records[0].Email != "a@b.com" {
		t.Errorf("unexpected records %v", records)
	}
}

func TestLoadEnvironmentVariables(t *testing.T) {
	os.Setenv("WAITLIST_STORE", "carrier-pigeon")
	defer os.Unsetenv("WAITLIST_STORE")
	if _, err := db.LoadEnvironmentVariables(); err == nil {
		t.Error("expected error for unknown store")
	}
	os.Setenv("WAITLIST_STORE", "file")
	os.Setenv("WAITLIST_LOG_PATH", "/tmp/x/waitlist.csv")
	defer os.Unsetenv("WAITLIST_LOG_PATH")
	cfg, err := db.LoadEnvironmentVariables()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LogPath != "/tmp/x/waitlist.csv" || cfg.DbName != "waitlist_test" {
		t.Errorf("unexpected config %+v", cfg)
	}
	database, err := db.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := database.(*db.FileDatabase); !ok {
		t.Errorf("expected a FileDatabase, got %T", database)
	}
}
