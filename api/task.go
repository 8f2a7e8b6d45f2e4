package api

import (
	"fmt"

	"github.com/appatize/waitlist/models"
)

// taskResult is what a side-effect task hands back to the orchestrator.
type taskResult struct {
	err     error                      // anticipated failure, logged only
	outcome models.SubscriptionOutcome // remote subscription result
	fault   error                      // unexpected failure (panic)
}

// runTask runs f in its own goroutine. A panic in f is turned into a fault
// rather than crashing the process.
func runTask(f func() taskResult) <-chan taskResult {
	done := make(chan taskResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- taskResult{fault: fmt.Errorf("panic: %v", r)}
			}
		}()
		done <- f()
	}()
	return done
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
