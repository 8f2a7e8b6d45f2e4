package db

import (
	"sync"

	"github.com/appatize/waitlist/models"
)

// MemDatabase is an in-memory Database (for testing!)
type MemDatabase struct {
	mu          sync.Mutex
	submissions []models.SubmissionRecord
	// If set, PutSubmission fails with this error without storing anything.
	PutErr error
}

// InitMemDatabase returns an empty MemDatabase.
func InitMemDatabase() *MemDatabase {
	return &MemDatabase{submissions: []models.SubmissionRecord{}}
}

// PutSubmission appends record, or returns PutErr.
func (db *MemDatabase) PutSubmission(record models.SubmissionRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.PutErr != nil {
		return db.PutErr
	}
	db.submissions = append(db.submissions, record)
	return nil
}

// GetSubmissions returns a copy of every stored record.
func (db *MemDatabase) GetSubmissions() ([]models.SubmissionRecord, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	records := make([]models.SubmissionRecord, len(db.submissions))
	copy(records, db.submissions)
	return records, nil
}

// ClearTables drops every stored record.
func (db *MemDatabase) ClearTables() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.submissions = []models.SubmissionRecord{}
	return nil
}
