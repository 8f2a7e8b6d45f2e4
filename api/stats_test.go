package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/appatize/waitlist/stats"
)

func getStats(t *testing.T, env *testEnv, key string) (*http.Response, stats.Summary) {
	req, err := http.NewRequest("GET", env.server.URL+"/api/waitlist/stats", nil)
	if err != nil {
		t.Fatal(err)
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var summary stats.Summary
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
			t.Fatal(err)
		}
	}
	return resp, summary
}

func TestGetStats(t *testing.T) {
	env := newTestEnv(t, true)
	for _, body := range []string{`{"email":"a@example.com"}`, `{"email":"b@example.com"}`, `{"email":"c@other.org"}`} {
		status, resp := env.post(t, body)
		expectOK(t, status, resp)
	}
	resp, summary := getStats(t, env, "stats-secret")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/waitlist/stats failed with error %d", resp.StatusCode)
	}
	if summary.Total != 3 || summary.UniqueEmails != 3 {
		t.Errorf("unexpected summary %+v", summary)
	}
	if len(summary.Domains) != 2 || summary.Domains[0].Domain != "example.com" || summary.Domains[0].Count != 2 {
		t.Errorf("unexpected domains %v", summary.Domains)
	}
}

func TestStatsRequiresKey(t *testing.T) {
	env := newTestEnv(t, true)
	if resp, _ := getStats(t, env, ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", resp.StatusCode)
	}
	if resp, _ := getStats(t, env, "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong key, got %d", resp.StatusCode)
	}
	env.api.StatsKey = ""
	if resp, _ := getStats(t, env, "stats-secret"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 when stats are disabled, got %d", resp.StatusCode)
	}
}
