package models

import "fmt"

// SubscriptionStatus enumerates the outcome of asking the remote email-list
// provider to subscribe an address.
type SubscriptionStatus int

// Possible values for SubscriptionStatus
const (
	SubscriptionCreated       SubscriptionStatus = iota // Provider created (or reactivated) the subscription.
	SubscriptionAlreadyExists                           // Provider already had this address.
	SubscriptionSkipped                                 // Call was never attempted.
	SubscriptionFailed                                  // Call was attempted and did not succeed.
)

// Reasons for SubscriptionSkipped.
const (
	SkipCredentialsMissing = "CredentialsMissing"
)

func (s SubscriptionStatus) String() string {
	switch s {
	case SubscriptionCreated:
		return "created"
	case SubscriptionAlreadyExists:
		return "already_exists"
	case SubscriptionSkipped:
		return "skipped"
	case SubscriptionFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown_%d", int(s))
}

// SubscriptionOutcome is the result of one remote subscription attempt. It is
// only ever used for logging and error reporting.
type SubscriptionOutcome struct {
	Status         SubscriptionStatus
	StatusCode     int    // HTTP status from the provider, 0 if no response.
	SubscriptionID string // Provider's id, when the response carried one.
	Detail         string // Skip reason or failure detail.
}

// Succeeded is true for Created and AlreadyExists.
func (o SubscriptionOutcome) Succeeded() bool {
	return o.Status == SubscriptionCreated || o.Status == SubscriptionAlreadyExists
}

func (o SubscriptionOutcome) String() string {
	switch o.Status {
	case SubscriptionSkipped:
		return fmt.Sprintf("skipped (%s)", o.Detail)
	case SubscriptionFailed:
		return fmt.Sprintf("failed (%s)", o.Detail)
	}
	if o.SubscriptionID != "" {
		return fmt.Sprintf("%s (status %d, id %s)", o.Status, o.StatusCode, o.SubscriptionID)
	}
	return fmt.Sprintf("%s (status %d)", o.Status, o.StatusCode)
}
