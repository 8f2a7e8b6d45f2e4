package main

import (
	"log"
	"net/http"
	"os"

	"github.com/appatize/waitlist/api"
	"github.com/appatize/waitlist/beehiiv"
	"github.com/appatize/waitlist/db"
	"github.com/appatize/waitlist/util"
	raven "github.com/getsentry/raven-go"
	"github.com/joho/godotenv"
)

func loadAPI() (*api.API, error) {
	cfg, err := db.LoadEnvironmentVariables()
	if err != nil {
		return nil, err
	}
	database, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	beehiivCfg, err := beehiiv.MakeConfigFromEnv()
	if err != nil {
		return nil, err
	}
	subscribeWait, err := util.GetEnvDuration("WAITLIST_SUBSCRIBE_WAIT", api.DefaultSubscribeWait)
	if err != nil {
		return nil, err
	}
	return &api.API{
		Database:       database,
		Subscriber:     beehiiv.NewClient(beehiivCfg),
		StatsKey:       os.Getenv("STATS_API_KEY"),
		AllowedOrigins: util.SplitList(os.Getenv("ALLOWED_ORIGINS")),
		SubscribeWait:  subscribeWait,
	}, nil
}

// Serves the waitlist API.
func main() {
	// A missing .env is fine; the environment may be set some other way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("couldn't load .env: %v", err)
	}
	raven.SetDSN(os.Getenv("SENTRY_DSN"))
	portString, err := util.ValidPort(util.GetEnvOrDefault("PORT", "8080"))
	if err != nil {
		log.Fatal(err)
	}
	a, err := loadAPI()
	if err != nil {
		raven.CaptureErrorAndWait(err, nil)
		log.Fatal(err)
	}
	mux := http.NewServeMux()
	server := http.Server{
		Addr:    portString,
		Handler: a.RegisterHandlers(mux),
	}
	log.Printf("Listening on %s", portString)
	log.Fatal(server.ListenAndServe())
}
