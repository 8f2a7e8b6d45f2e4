package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/appatize/waitlist/stats"
)

// Stats is the handler for /api/waitlist/stats
//
//	GET /api/waitlist/stats
//	     Authorization: Bearer <STATS_API_KEY>
//	     Responds with a stats.Summary of the durable log.
func (api *API) stats(r *http.Request) response {
	if api.StatsKey == "" {
		return response{StatusCode: http.StatusNotFound, Body: errorBody{"Not found"}}
	}
	if r.Method != http.MethodGet {
		return response{StatusCode: http.StatusMethodNotAllowed,
			Body: errorBody{"/api/waitlist/stats only accepts GET requests"}}
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(api.StatsKey)) != 1 {
		return response{StatusCode: http.StatusUnauthorized, Body: errorBody{"Unauthorized"}}
	}
	summary, err := stats.Get(api.Database)
	if err != nil {
		return serverError("reading submissions: %v", err)
	}
	return response{StatusCode: http.StatusOK, Body: summary}
}
