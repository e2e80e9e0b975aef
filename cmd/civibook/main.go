// cmd/civibook/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/civibook/civibook-go/internal/cache"
	"github.com/civibook/civibook-go/internal/calendar"
	"github.com/civibook/civibook-go/internal/civibook"
	"github.com/civibook/civibook-go/internal/config"
	"github.com/civibook/civibook-go/internal/notifications"
)

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: civibook [-config path] <command>

commands:
  pois      list bookable venues
  events    list events (optionally -poi, -category, -page)
  calendar  show a venue's booked days (-poi required)
  watch     poll notifications until interrupted`)
	os.Exit(2)
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	session := civibook.NewSession(cfg.API.Token)
	client := civibook.NewClient(cfg.API.BaseURL, cfg.API.Timeout(), session)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch cmd := flag.Arg(0); cmd {
	case "pois":
		runErr = runPOIs(ctx, client)
	case "events":
		runErr = runEvents(ctx, client, flag.Args()[1:])
	case "calendar":
		runErr = runCalendar(ctx, client, flag.Args()[1:])
	case "watch":
		runErr = runWatch(ctx, client, cfg)
	default:
		log.Error().Str("command", cmd).Msg("Unknown command")
		usage()
	}

	if runErr != nil {
		log.Error().Err(runErr).Msg("Command failed")
		os.Exit(1)
	}
}

func runPOIs(ctx context.Context, client *civibook.Client) error {
	pois, err := client.ListPOIs(ctx)
	if err != nil {
		return fmt.Errorf("fetch pois: %w", err)
	}
	return printJSON(pois)
}

func runEvents(ctx context.Context, client *civibook.Client, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	poiID := fs.Int64("poi", 0, "filter by venue id")
	category := fs.String("category", "", "filter by category")
	page := fs.Int("page", 1, "result page")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pageResult, err := client.Events(ctx, civibook.EventFilter{
		POIID:    *poiID,
		Category: *category,
		Page:     *page,
	})
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	return printJSON(pageResult)
}

// runCalendar projects a venue's accepted events onto calendar days
// and prints each booked day with the events covering it.
func runCalendar(ctx context.Context, client *civibook.Client, args []string) error {
	fs := flag.NewFlagSet("calendar", flag.ExitOnError)
	poiID := fs.Int64("poi", 0, "venue id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *poiID == 0 {
		return errors.New("calendar requires -poi")
	}

	fetched, err := client.CalendarEvents(ctx, *poiID)
	if err != nil {
		return fmt.Errorf("fetch calendar events: %w", err)
	}

	input := make([]calendar.Event, 0, len(fetched))
	for _, e := range fetched {
		input = append(input, calendar.Event{
			ID:    e.ID,
			Title: e.Name,
			Start: e.EventStart,
			End:   e.EventEnd,
		})
	}
	projection := calendar.Project(input)

	type bookedDay struct {
		Day    string   `json:"day"`
		Events []string `json:"events"`
	}
	byDay := map[string][]string{}
	for _, occ := range projection.Occurrences() {
		day := occ.Day.Format("2006-01-02")
		byDay[day] = append(byDay[day], occ.Title)
	}
	days := make([]bookedDay, 0, len(byDay))
	for day, titles := range byDay {
		days = append(days, bookedDay{Day: day, Events: titles})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Day < days[j].Day })
	return printJSON(days)
}

// runWatch polls notifications on the configured interval and prints
// each refreshed list, falling back to the local cache when offline.
func runWatch(ctx context.Context, client *civibook.Client, cfg *config.Config) error {
	var (
		storeCache  notifications.Cache
		maintenance []notifications.Maintenance
	)
	if c, err := cache.Open(cfg.Cache.Path); err != nil {
		log.Warn().Err(err).Str("path", cfg.Cache.Path).Msg("Cache unavailable, running without offline fallback")
	} else {
		defer c.Close()
		storeCache = c
		maxAge := cfg.Cache.MaxAge()
		maintenance = append(maintenance, notifications.Maintenance{
			Name: "cache-purge",
			Cron: cfg.Cache.MaintenanceCron,
			Task: func(ctx context.Context) {
				if err := c.PurgeOlderThan(ctx, maxAge); err != nil {
					log.Warn().Err(err).Msg("Cache purge failed")
				}
			},
		})
	}

	store := notifications.NewStore(client, storeCache)
	store.OnChange(func() {
		if err := printJSON(store.Notifications()); err != nil {
			log.Warn().Err(err).Msg("Failed to print notifications")
		}
	})

	poller, err := notifications.NewPoller(store, cfg.PollInterval(), cfg.API.Timeout(), maintenance...)
	if err != nil {
		return fmt.Errorf("create poller: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Dur("interval", cfg.PollInterval()).
			Msg("Starting notification watch")
		poller.Start()
		<-ctx.Done()
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Stopping notification watch")
		return poller.Stop()
	})

	return g.Wait()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
