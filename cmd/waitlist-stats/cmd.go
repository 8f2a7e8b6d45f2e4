package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/appatize/waitlist/db"
	"github.com/appatize/waitlist/stats"
	"github.com/joho/godotenv"
)

func summarizeFile(r io.Reader, w io.Writer) error {
	records, err := db.ReadRecords(r)
	if err != nil {
		return err
	}
	return writeSummary(stats.Summarize(records), w)
}

func writeSummary(summary stats.Summary, w io.Writer) error {
	b, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", b)
	return err
}

// Summarize the waitlist's durable log.
// =====================================
// Prints signup totals, counts per email domain and per day as JSON.
//
// CLI arguments
// =============
//
//	-log <filepath>  CSV log to read. "-" reads from stdin.
//	-env             Read from the store configured by the environment
//	                 (WAITLIST_STORE, WAITLIST_LOG_PATH, DB_*) instead.
func main() {
	flag.Usage = func() {
		log.Printf("Usage of %s:\n", os.Args[0])
		flag.PrintDefaults()
	}
	logFile := flag.String("log", "", "CSV waitlist log to summarize, or - for stdin.")
	fromEnv := flag.Bool("env", false, "Summarize the store configured by the environment.")
	flag.Parse()

	if *fromEnv {
		godotenv.Load()
		cfg, err := db.LoadEnvironmentVariables()
		if err != nil {
			log.Fatal(err)
		}
		database, err := db.Open(cfg)
		if err != nil {
			log.Fatalf("couldn't open store: %v", err)
		}
		summary, err := stats.Get(database)
		if err != nil {
			log.Fatalf("couldn't read submissions: %v", err)
		}
		if err := writeSummary(summary, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	var in io.Reader = os.Stdin
	if *logFile != "" && *logFile != "-" {
		f, err := os.Open(*logFile)
		if err != nil {
			log.Fatalf("couldn't read %s: %v", *logFile, err)
		}
		defer f.Close()
		in = f
	}
	if err := summarizeFile(in, os.Stdout); err != nil {
		log.Fatalf("couldn't summarize %s: %v", *logFile, err)
	}
}
