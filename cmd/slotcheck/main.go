// cmd/slotcheck/main.go
//
// slotcheck asks the API for a shop's opening hours and checks a visit
// locally, the way the booking form does before an order is placed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/client"
	"github.com/codr1/marketplace/internal/openhours"
	"github.com/codr1/marketplace/internal/slots"
)

const (
	exitValid    = 0
	exitError    = 1
	exitAdjusted = 2
	exitNoSlot   = 3
)

type options struct {
	apiURL     string
	token      string
	shopID     int64
	visitDate  string
	visitTime  string
	offset     int
	shopZone   *time.Location
	step       time.Duration
	searchDays int
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("slotcheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.apiURL, "api", envOr("MARKETPLACE_API", "http://localhost:8080"), "Marketplace API base URL")
	fs.StringVar(&opts.token, "token", os.Getenv("MARKETPLACE_TOKEN"), "Bearer token (optional)")
	fs.Int64Var(&opts.shopID, "shop", 0, "Shop ID")
	fs.StringVar(&opts.visitDate, "date", "", "Visit date, YYYY-MM-DD")
	fs.StringVar(&opts.visitTime, "time", "", "Visit time, HH:MM")
	fs.IntVar(&opts.offset, "offset", 0, "Client timezone offset in minutes (UTC+02:00 is -120)")
	zone := fs.String("zone", "", "Shop IANA time zone the hours are kept in (default: client offset)")
	fs.DurationVar(&opts.step, "step", slots.DefaultStep, "Slot rounding step")
	fs.IntVar(&opts.searchDays, "days", slots.DefaultSearchDays, "Days to search forward for a slot")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if opts.shopID <= 0 {
		return options{}, errors.New("-shop is required")
	}
	if opts.visitDate == "" || opts.visitTime == "" {
		return options{}, errors.New("-date and -time are required")
	}
	if *zone != "" {
		loc, err := time.LoadLocation(*zone)
		if err != nil {
			return options{}, fmt.Errorf("-zone: %w", err)
		}
		opts.shopZone = loc
	}
	return opts, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// fetchWeek is replaced in tests.
type fetchWeek func(ctx context.Context, shopID int64) (openhours.Week, error)

// check prints the decision for opts and returns the exit code.
func check(ctx context.Context, opts options, fetch fetchWeek, clock slots.Clock, stdout io.Writer) (int, error) {
	visitAt, err := slots.CombineVisit(opts.visitDate, opts.visitTime, opts.offset)
	if err != nil {
		return exitError, err
	}

	week, err := fetch(ctx, opts.shopID)
	if err != nil {
		return exitError, fmt.Errorf("fetch opening hours: %w", err)
	}

	resolver := slots.NewResolver(
		slots.WithClock(clock),
		slots.WithStep(opts.step),
		slots.WithSearchDays(opts.searchDays),
	)
	result, err := resolver.ResolveIn(visitAt, week, opts.shopZone)
	switch {
	case errors.Is(err, slots.ErrNoSchedule), errors.Is(err, slots.ErrNoSlot):
		fmt.Fprintln(stdout, "unavailable:", slots.Message(err))
		return exitNoSlot, nil
	case err != nil:
		return exitError, err
	case result.Adjusted:
		fmt.Fprintf(stdout, "adjusted: %s %s\n%s\n", result.Date(), result.Time(), result.Message())
		return exitAdjusted, nil
	default:
		fmt.Fprintf(stdout, "valid: %s %s\n", result.Date(), result.Time())
		return exitValid, nil
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(exitValid)
		}
		log.Error().Err(err).Msg("Invalid arguments")
		os.Exit(exitError)
	}

	api, err := client.New(opts.apiURL, client.WithToken(opts.token))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code, err := check(ctx, opts, api.OpeningHours, nil, os.Stdout)
	if err != nil {
		log.Error().Err(err).Int64("shop_id", opts.shopID).Msg("Slot check failed")
	}
	stop()
	os.Exit(code)
}
