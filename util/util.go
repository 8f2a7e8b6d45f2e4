package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Errors collects multiple errors, such as every missing environment
// variable, into a single error.
type Errors []error

func (e Errors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "\n")
}

// RequireEnv returns the value of the environment variable `name`. If it is
// unset or empty, an error is appended to errs.
func RequireEnv(name string, errs *Errors) string {
	value := os.Getenv(name)
	if len(value) == 0 {
		*errs = append(*errs, fmt.Errorf("environment variable %s must be set", name))
	}
	return value
}

// GetEnvOrDefault returns the value of environment variable `name`, or
// `fallback` if it is unset or empty.
func GetEnvOrDefault(name string, fallback string) string {
	value := os.Getenv(name)
	if len(value) == 0 {
		return fallback
	}
	return value
}

// GetEnvDuration parses environment variable `name` as a time.Duration,
// returning `fallback` if it is unset.
func GetEnvDuration(name string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(name)
	if len(value) == 0 {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s is not a valid duration: %v", name, err)
	}
	if d <= 0 {
		return fallback, fmt.Errorf("%s must be positive, got %s", name, value)
	}
	return d, nil
}

// ValidPort turns a port number into a listen address (":8080"), or returns
// an error if it isn't a number.
func ValidPort(port string) (string, error) {
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("Given portstring %s is invalid", port)
	}
	return fmt.Sprintf(":%s", port), nil
}

// SplitList splits a comma-separated environment value, dropping empty
// entries.
func SplitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if len(item) > 0 {
			items = append(items, item)
		}
	}
	return items
}
