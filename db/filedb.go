package db

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/appatize/waitlist/models"
)

// FileDatabase is a Database backed by an append-only CSV file, one record
// per line:
//
//	"<timestamp>","<email>"
//
// Every field is quoted and embedded quotes are doubled, so no email can
// break a record boundary.
type FileDatabase struct {
	path string
}

// InitFileDatabase returns a FileDatabase writing to cfg.LogPath. The file
// and its directory are created on first write.
func InitFileDatabase(cfg Config) *FileDatabase {
	return &FileDatabase{path: cfg.LogPath}
}

// Path is the location of the backing file.
func (db *FileDatabase) Path() string {
	return db.path
}

func quoteField(s string) string {
	return `"` + strings.Replace(s, `"`, `""`, -1) + `"`
}

// EncodeRecord renders a record as a single CSV line, including the
// trailing newline.
func EncodeRecord(record models.SubmissionRecord) string {
	return quoteField(record.FormattedTimestamp()) + "," + quoteField(record.Email) + "\n"
}

// PutSubmission appends one record with a single write. O_APPEND makes the
// write land at the end of the file even with concurrent writers.
func (db *FileDatabase) PutSubmission(record models.SubmissionRecord) error {
	if err := os.MkdirAll(filepath.Dir(db.path), 0755); err != nil {
		return fmt.Errorf("could not create directory for %s: %v", db.path, err)
	}
	f, err := os.OpenFile(db.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("could not open %s: %v", db.path, err)
	}
	_, err = f.Write([]byte(EncodeRecord(record)))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("could not append to %s: %v", db.path, err)
	}
	return nil
}

// GetSubmissions reads back every record in the file. A missing file means
// no submissions yet.
func (db *FileDatabase) GetSubmissions() ([]models.SubmissionRecord, error) {
	f, err := os.Open(db.path)
	if os.IsNotExist(err) {
		return []models.SubmissionRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadRecords(f)
}

// ReadRecords parses records written by EncodeRecord.
func ReadRecords(r io.Reader) ([]models.SubmissionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	records := []models.SubmissionRecord{}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return records, err
		}
		timestamp, err := models.ParseTimestamp(row[0])
		if err != nil {
			line, _ := reader.FieldPos(0)
			return records, fmt.Errorf("bad timestamp on line %d: %v", line, err)
		}
		records = append(records, models.SubmissionRecord{Timestamp: timestamp, Email: row[1]})
	}
	return records, nil
}

// ClearTables truncates the backing file.
func (db *FileDatabase) ClearTables() error {
	err := os.Truncate(db.path, 0)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
