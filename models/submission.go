package models

import (
	"regexp"
	"strings"
	"time"
)

// TimestampFormat is the ISO-8601 layout used for SubmissionRecord
// timestamps: UTC with millisecond precision.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// Whitespace as browsers see it: ECMAScript WhiteSpace and LineTerminator.
// RE2's \s is ASCII only.
const whitespaceClass = `\t\n\v\f\r \x{00A0}\x{1680}\x{2000}-\x{200A}\x{2028}\x{2029}\x{202F}\x{205F}\x{3000}\x{FEFF}`

// Coarse syntactic check: something@something.something, no whitespace and
// no extra @. Plenty of RFC 5322 addresses fail this, and that's fine.
var emailPattern = regexp.MustCompile(
	`^[^` + whitespaceClass + `@]+@[^` + whitespaceClass + `@]+\.[^` + whitespaceClass + `@]+$`)

func isWhitespace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', ' ', '\u00A0', '\u1680',
		'\u2028', '\u2029', '\u202F', '\u205F', '\u3000', '\uFEFF':
		return true
	}
	return r >= '\u2000' && r <= '\u200A'
}

// ValidationReason enumerates why a submission was rejected.
type ValidationReason string

// Possible values for ValidationReason
const (
	MissingEmail  ValidationReason = "MissingEmail"
	InvalidFormat ValidationReason = "InvalidFormat"
)

// ValidationError is returned for submissions that fail validation. Its
// message is safe to show to the submitter.
type ValidationError struct {
	Reason ValidationReason
}

func (e ValidationError) Error() string {
	switch e.Reason {
	case InvalidFormat:
		return "Invalid email format"
	default:
		return "Email is required"
	}
}

// SubmissionRequest is the decoded body of a waitlist POST. Email is left
// as an interface{} so that a non-string value can be told apart from a
// missing one and rejected the same way.
type SubmissionRequest struct {
	Email interface{} `json:"email"`
}

// Validate extracts and checks the email address of a submission, returning
// the whitespace-trimmed address. No other normalization is applied.
func (s SubmissionRequest) Validate() (string, error) {
	raw, ok := s.Email.(string)
	if !ok {
		return "", ValidationError{Reason: MissingEmail}
	}
	email := strings.TrimFunc(raw, isWhitespace)
	if len(email) == 0 {
		return "", ValidationError{Reason: MissingEmail}
	}
	if !emailPattern.MatchString(email) {
		return "", ValidationError{Reason: InvalidFormat}
	}
	return email, nil
}

// SubmissionRecord is one accepted submission in the durable log.
type SubmissionRecord struct {
	Timestamp time.Time `json:"timestamp"` // When the submission was accepted
	Email     string    `json:"email"`     // Validated, trimmed address
}

// NewSubmissionRecord captures the submission time for a validated email.
func NewSubmissionRecord(email string, now time.Time) SubmissionRecord {
	return SubmissionRecord{Timestamp: now.UTC(), Email: email}
}

// FormattedTimestamp returns the record's timestamp in TimestampFormat.
func (r SubmissionRecord) FormattedTimestamp() string {
	return r.Timestamp.UTC().Format(TimestampFormat)
}

// ParseTimestamp parses a timestamp written with TimestampFormat. RFC 3339
// timestamps without milliseconds are accepted as well.
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(TimestampFormat, value)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, value)
}

// Domain returns the part of the email address after the last "@".
func (r SubmissionRecord) Domain() string {
	i := strings.LastIndex(r.Email, "@")
	if i < 0 {
		return ""
	}
	return r.Email[i+1:]
}
