package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"time"

	"github.com/appatize/waitlist/db"
	"github.com/appatize/waitlist/models"
	raven "github.com/getsentry/raven-go"
)

////////////////////////////////
//  *****   REST API   *****  //
////////////////////////////////

// Bodies larger than this are treated like unparseable ones.
const maxBodySize = 1 << 20

// DefaultSubscribeWait bounds how long a submission waits on the remote
// subscription before responding anyway.
const DefaultSubscribeWait = 10 * time.Second

// Messages returned to the submitter. Validation messages come from
// models.ValidationError.
const (
	msgInternalError = "Internal server error"
)

// API is the HTTP API that this service provides.
// Successful waitlist submissions respond with {"ok": true}; every failure
// responds with {"error": <message>}.
type API struct {
	Database   db.Database
	Subscriber Subscriber
	// Bearer token for /api/waitlist/stats. Empty disables the endpoint.
	StatsKey string
	// Origins allowed to call the API from a browser.
	AllowedOrigins []string
	// Upper bound on waiting for Subscriber. Defaults to DefaultSubscribeWait.
	SubscribeWait time.Duration
	// Clock, overridden in tests.
	Now func() time.Time
}

// Subscriber wraps a remote email-list provider.
type Subscriber interface {
	// Subscribe registers an address. It must not block past ctx's deadline,
	// and reports every failure as part of the outcome.
	Subscribe(ctx context.Context, email string) models.SubscriptionOutcome
}

type response struct {
	StatusCode int
	Body       interface{}
	// Detail for operators; never sent to the client.
	Message string
}

type errorBody struct {
	Error string `json:"error"`
}

type okBody struct {
	OK bool `json:"ok"`
}

type apiHandler func(r *http.Request) response

func (api *API) wrapper(handler apiHandler) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		response := handler(r)
		if response.StatusCode == http.StatusInternalServerError {
			packet := raven.NewPacket(response.Message, raven.NewHttp(r))
			raven.Capture(packet, nil)
		}
		writeJSON(w, response)
	}
}

func pingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

// RegisterHandlers binds API functions to the given http server,
// and returns the resulting handler.
func (api *API) RegisterHandlers(mux *http.ServeMux) http.Handler {
	mux.Handle("/api/waitlist",
		throttleHandler(time.Hour, 20, http.HandlerFunc(api.wrapper(api.waitlist))))
	mux.HandleFunc("/api/waitlist/stats", api.wrapper(api.stats))
	mux.HandleFunc("/api/ping", pingHandler)
	return api.middleware(mux)
}

func (api *API) now() time.Time {
	if api.Now == nil {
		return time.Now()
	}
	return api.Now()
}

func (api *API) subscribeWait() time.Duration {
	if api.SubscribeWait <= 0 {
		return DefaultSubscribeWait
	}
	return api.SubscribeWait
}

// Waitlist is the handler for /api/waitlist
//
//	POST /api/waitlist
//	     JSON body {"email": <address>}
//	     Validates the address, appends it to the durable log and subscribes
//	     it with the email-list provider. Responds {"ok": true} once the
//	     address is accepted, whatever happened to the log write or the
//	     subscription.
func (api *API) waitlist(r *http.Request) response {
	if r.Method != http.MethodPost {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Body: errorBody{"/api/waitlist only accepts POST requests"}}
	}
	// A body that won't parse is just a submission without an email.
	submission, _ := parseSubmission(r.Body)
	email, err := submission.Validate()
	if err != nil {
		return badRequest(err.Error())
	}
	record := models.NewSubmissionRecord(email, api.now())
	if err := api.process(record); err != nil {
		return serverError("processing submission for %s: %v", email, err)
	}
	return response{StatusCode: http.StatusOK, Body: okBody{OK: true}}
}

// parseSubmission decodes a body holding exactly one JSON value. Oversized
// bodies and trailing data are errors.
func parseSubmission(body io.Reader) (models.SubmissionRequest, error) {
	var submission models.SubmissionRequest
	b, err := ioutil.ReadAll(io.LimitReader(body, maxBodySize+1))
	if err != nil {
		return submission, err
	}
	if len(b) > maxBodySize {
		return submission, fmt.Errorf("body exceeds %d bytes", maxBodySize)
	}
	if err := json.Unmarshal(b, &submission); err != nil {
		return models.SubmissionRequest{}, err
	}
	return submission, nil
}

// process runs the durable log write and the remote subscription side by
// side. Their failures are logged and reported, never returned; the only
// error returned is an unexpected fault such as a panic in either task.
func (api *API) process(record models.SubmissionRecord) error {
	// Detached from the request: a client hanging up doesn't cancel anything.
	ctx, cancel := context.WithTimeout(context.Background(), api.subscribeWait())
	defer cancel()

	logDone := runTask(func() taskResult {
		return taskResult{err: api.Database.PutSubmission(record)}
	})
	subscribeDone := runTask(func() taskResult {
		if api.Subscriber == nil {
			return taskResult{outcome: models.SubscriptionOutcome{
				Status: models.SubscriptionSkipped,
				Detail: models.SkipCredentialsMissing,
			}}
		}
		return taskResult{outcome: api.Subscriber.Subscribe(ctx, record.Email)}
	})

	logResult := <-logDone
	var subscribeResult taskResult
	select {
	case subscribeResult = <-subscribeDone:
	case <-ctx.Done():
		subscribeResult = taskResult{outcome: models.SubscriptionOutcome{
			Status: models.SubscriptionFailed,
			Detail: fmt.Sprintf("gave up after %v", api.subscribeWait()),
		}}
	}

	if logResult.fault != nil || subscribeResult.fault != nil {
		return firstError(logResult.fault, subscribeResult.fault)
	}
	reportLogWrite(record, logResult.err)
	reportSubscription(record, subscribeResult.outcome)
	return nil
}

func reportLogWrite(record models.SubmissionRecord, err error) {
	if err == nil {
		log.Printf("[waitlist] recorded submission for %s", record.Email)
		return
	}
	err = fmt.Errorf("durable log write failed (non-fatal): %v", err)
	log.Printf("[waitlist] %v", err)
	raven.CaptureError(err, map[string]string{"component": "durable_log"})
}

func reportSubscription(record models.SubmissionRecord, outcome models.SubscriptionOutcome) {
	log.Printf("[waitlist] subscription for %s: %s", record.Email, outcome)
	if outcome.Status == models.SubscriptionFailed {
		err := fmt.Errorf("remote subscription failed (non-fatal): %s", outcome.Detail)
		raven.CaptureError(err, map[string]string{
			"component":   "remote_subscription",
			"status_code": fmt.Sprint(outcome.StatusCode),
		})
	}
}

// Writes `apiResponse.Body` as a JSON object to http.ResponseWriter `w`. If an
// error occurs, writes `http.StatusInternalServerError` to `w`.
func writeJSON(w http.ResponseWriter, apiResponse response) {
	b, err := json.MarshalIndent(apiResponse.Body, "", "  ")
	if err != nil {
		log.Printf("[waitlist] could not format JSON response: %v", err)
		raven.CaptureError(err, nil)
		b, _ = json.Marshal(errorBody{msgInternalError})
		apiResponse.StatusCode = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(apiResponse.StatusCode)
	fmt.Fprintf(w, "%s\n", b)
}

func badRequest(message string) response {
	return response{
		StatusCode: http.StatusBadRequest,
		Body:       errorBody{message},
	}
}

// serverError hides the detail from the client and keeps it for Sentry.
func serverError(format string, a ...interface{}) response {
	message := fmt.Sprintf(format, a...)
	log.Printf("[waitlist] internal error: %s", message)
	return response{
		StatusCode: http.StatusInternalServerError,
		Body:       errorBody{msgInternalError},
		Message:    message,
	}
}
