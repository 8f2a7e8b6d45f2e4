package stats

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/appatize/waitlist/models"
	"golang.org/x/net/idna"
)

// Store is anything that can list accepted submissions.
type Store interface {
	GetSubmissions() ([]models.SubmissionRecord, error)
}

// DayCount is the number of submissions accepted on one UTC day.
type DayCount struct {
	Day   time.Time
	Count int
}

// Series represents signups per day, oldest first.
type Series []DayCount

// MarshalJSON marshals a Series to the format expected by chart.js.
// See https://www.chartjs.org/docs/latest/
func (s Series) MarshalJSON() ([]byte, error) {
	type xyPt struct {
		X time.Time `json:"x"`
		Y float64   `json:"y"`
	}
	xySeries := make([]xyPt, 0)
	for _, d := range s {
		xySeries = append(xySeries, xyPt{X: d.Day, Y: float64(d.Count)})
	}
	return json.Marshal(xySeries)
}

// DomainCount is the number of submissions for one email domain.
type DomainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// Summary describes the contents of the durable log.
type Summary struct {
	Total        int           `json:"total"`
	UniqueEmails int           `json:"unique_emails"`
	First        *time.Time    `json:"first,omitempty"`
	Last         *time.Time    `json:"last,omitempty"`
	Domains      []DomainCount `json:"domains"`
	Daily        Series        `json:"daily"`
}

// FoldDomain lowercases a domain and converts it to its ASCII (punycode)
// form, so that "Bücher.example" and "xn--bcher-kva.example" count together.
// Domains that aren't valid IDNs are just lowercased.
func FoldDomain(domain string) string {
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return strings.ToLower(domain)
	}
	return ascii
}

// Summarize computes a Summary over records. Emails are compared exactly, as
// they were stored; only domains are folded.
func Summarize(records []models.SubmissionRecord) Summary {
	summary := Summary{
		Total:   len(records),
		Domains: []DomainCount{},
		Daily:   Series{},
	}
	emails := make(map[string]bool)
	domains := make(map[string]int)
	days := make(map[time.Time]int)
	for _, record := range records {
		emails[record.Email] = true
		domains[FoldDomain(record.Domain())]++
		ts := record.Timestamp.UTC()
		days[ts.Truncate(24*time.Hour)]++
		if summary.First == nil || ts.Before(*summary.First) {
			first := ts
			summary.First = &first
		}
		if summary.Last == nil || ts.After(*summary.Last) {
			last := ts
			summary.Last = &last
		}
	}
	summary.UniqueEmails = len(emails)
	for domain, count := range domains {
		summary.Domains = append(summary.Domains, DomainCount{Domain: domain, Count: count})
	}
	// Most popular first, ties alphabetically.
	sort.Slice(summary.Domains, func(i, j int) bool {
		if summary.Domains[i].Count != summary.Domains[j].Count {
			return summary.Domains[i].Count > summary.Domains[j].Count
		}
		return summary.Domains[i].Domain < summary.Domains[j].Domain
	})
	for day, count := range days {
		summary.Daily = append(summary.Daily, DayCount{Day: day, Count: count})
	}
	sort.Slice(summary.Daily, func(i, j int) bool {
		return summary.Daily[i].Day.Before(summary.Daily[j].Day)
	})
	return summary
}

// Get reads every submission from store and summarizes them.
func Get(store Store) (Summary, error) {
	records, err := store.GetSubmissions()
	if err != nil {
		return Summary{}, err
	}
	return Summarize(records), nil
}
