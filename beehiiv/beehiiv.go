package beehiiv

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/appatize/waitlist/models"
	"github.com/appatize/waitlist/util"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL is the provider's public API host.
const DefaultBaseURL = "https://api.beehiiv.com"

// DefaultTimeout bounds a single subscription call.
const DefaultTimeout = 5 * time.Second

// Credentials authenticate against one publication.
type Credentials struct {
	APIKey        string
	PublicationID string
}

// Attribution holds the optional campaign fields sent with every
// subscription. Empty fields are omitted.
type Attribution struct {
	UTMSource     string
	UTMMedium     string
	UTMCampaign   string
	ReferringSite string
}

// Config for a Client. A nil Credentials means the provider isn't
// configured, and every Subscribe call is skipped.
type Config struct {
	Credentials *Credentials
	BaseURL     string
	Timeout     time.Duration
	Attribution Attribution
}

// MakeConfigFromEnv reads BEEHIIV_* environment variables. Missing
// credentials aren't an error.
func MakeConfigFromEnv() (Config, error) {
	timeout, err := util.GetEnvDuration("BEEHIIV_TIMEOUT", DefaultTimeout)
	if err != nil {
		return Config{}, err
	}
	c := Config{
		BaseURL: util.GetEnvOrDefault("BEEHIIV_API_URL", DefaultBaseURL),
		Timeout: timeout,
		Attribution: Attribution{
			UTMSource:     os.Getenv("BEEHIIV_UTM_SOURCE"),
			UTMMedium:     os.Getenv("BEEHIIV_UTM_MEDIUM"),
			UTMCampaign:   os.Getenv("BEEHIIV_UTM_CAMPAIGN"),
			ReferringSite: os.Getenv("BEEHIIV_REFERRING_SITE"),
		},
	}
	apiKey := os.Getenv("BEEHIIV_API_KEY")
	publicationID := os.Getenv("BEEHIIV_PUBLICATION_ID")
	if len(apiKey) > 0 && len(publicationID) > 0 {
		c.Credentials = &Credentials{APIKey: apiKey, PublicationID: publicationID}
	} else {
		log.Println("[waitlist] BEEHIIV_API_KEY or BEEHIIV_PUBLICATION_ID not set, remote subscriptions disabled")
	}
	return c, nil
}

// Client subscribes addresses to a publication's email list.
type Client struct {
	cfg    Config
	client *resty.Client
}

// NewClient builds a Client. Requests are never retried.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := resty.New()
	client.SetTimeout(cfg.Timeout)
	client.SetRetryCount(0)
	return &Client{cfg: cfg, client: client}
}

type subscriptionRequest struct {
	Email              string `json:"email"`
	ReactivateExisting bool   `json:"reactivate_existing"`
	SendWelcomeEmail   bool   `json:"send_welcome_email"`
	UTMSource          string `json:"utm_source,omitempty"`
	UTMMedium          string `json:"utm_medium,omitempty"`
	UTMCampaign        string `json:"utm_campaign,omitempty"`
	ReferringSite      string `json:"referring_site,omitempty"`
}

type subscriptionResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

func (c *Client) subscriptionsURL() string {
	return fmt.Sprintf("%s/v2/publications/%s/subscriptions",
		c.cfg.BaseURL, c.cfg.Credentials.PublicationID)
}

// Subscribe asks the provider to add email to the publication, reactivating
// it if it had unsubscribed and sending the welcome email. It never returns
// an error: every failure is reported as a SubscriptionFailed outcome.
func (c *Client) Subscribe(ctx context.Context, email string) models.SubscriptionOutcome {
	if c.cfg.Credentials == nil {
		return models.SubscriptionOutcome{
			Status: models.SubscriptionSkipped,
			Detail: models.SkipCredentialsMissing,
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()
	attribution := c.cfg.Attribution
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(c.cfg.Credentials.APIKey).
		SetBody(subscriptionRequest{
			Email:              email,
			ReactivateExisting: true,
			SendWelcomeEmail:   true,
			UTMSource:          attribution.UTMSource,
			UTMMedium:          attribution.UTMMedium,
			UTMCampaign:        attribution.UTMCampaign,
			ReferringSite:      attribution.ReferringSite,
		}).
		Post(c.subscriptionsURL())
	if err != nil {
		return models.SubscriptionOutcome{
			Status: models.SubscriptionFailed,
			Detail: fmt.Sprintf("request failed: %v", err),
		}
	}
	return outcomeFromResponse(resp)
}

// Both 200 and 201 count as created; the provider has used either.
func outcomeFromResponse(resp *resty.Response) models.SubscriptionOutcome {
	outcome := models.SubscriptionOutcome{StatusCode: resp.StatusCode()}
	switch resp.StatusCode() {
	case http.StatusCreated, http.StatusOK:
		outcome.Status = models.SubscriptionCreated
		var body subscriptionResponse
		if err := json.Unmarshal(resp.Body(), &body); err == nil {
			outcome.SubscriptionID = body.Data.ID
			outcome.Detail = body.Data.Status
		} else {
			log.Printf("[waitlist] could not parse subscription response: %v", err)
		}
	case http.StatusConflict:
		outcome.Status = models.SubscriptionAlreadyExists
	default:
		outcome.Status = models.SubscriptionFailed
		outcome.Detail = fmt.Sprintf("unexpected status %d: %s",
			resp.StatusCode(), truncate(resp.String(), 512))
	}
	return outcome
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
