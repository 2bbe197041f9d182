package digest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"caldigest/internal/config"
	"caldigest/internal/ics"
	appLog "caldigest/internal/log"
	"caldigest/internal/model"
	"caldigest/internal/render"
)

// Engine builds the calendar section of the daily digest. It holds no
// state between invocations; every call starts from fresh feed data.
type Engine struct {
	fetcher      *ics.Fetcher
	feeds        []ics.Feed
	location     *time.Location
	horizonYears int
	twelveHour   bool
}

// New builds an Engine from configuration.
func New(cfg *config.Config) (*Engine, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("resolve timezone %q: %w", cfg.Timezone, err)
	}

	urls := cfg.FeedURLs()
	feeds := make([]ics.Feed, 0, len(urls))
	for i, url := range urls {
		feeds = append(feeds, ics.Feed{
			ID:  fmt.Sprintf("feed-%d", i+1),
			URL: url,
		})
	}

	return &Engine{
		fetcher:      ics.NewFetcher(),
		feeds:        feeds,
		location:     loc,
		horizonYears: cfg.HorizonYears,
		twelveHour:   cfg.TwelveHour(),
	}, nil
}

// Location returns the display zone occurrences are resolved into.
func (e *Engine) Location() *time.Location {
	return e.location
}

// Occurrences returns today's normalized occurrence list across all
// feeds, sorted by start instant (stable on ties). A feed that fails to
// fetch or parse contributes zero occurrences and never blocks the
// others.
func (e *Engine) Occurrences(ctx context.Context, now time.Time) []model.Occurrence {
	now = now.In(e.location)

	all := make([]model.Occurrence, 0)
	for _, feed := range e.feeds {
		occs, err := e.feedOccurrences(ctx, feed, now)
		if err != nil {
			appLog.Error("feed contributes no occurrences", err, "id", feed.ID)
			continue
		}
		all = append(all, occs...)
	}

	ics.Normalize(all, e.location)
	all = ics.FilterToday(all, now)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start.Time.Before(all[j].Start.Time)
	})

	return all
}

func (e *Engine) feedOccurrences(ctx context.Context, feed ics.Feed, now time.Time) ([]model.Occurrence, error) {
	body, err := e.fetcher.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}

	events, overrides, err := ics.ParseFeed(feed, body)
	if err != nil {
		return nil, err
	}

	occs := ics.Expand(events, ics.ExpandConfig{Now: now, HorizonYears: e.horizonYears})
	return ics.Merge(occs, overrides), nil
}

// Build renders today's digest section as Markdown.
func (e *Engine) Build(ctx context.Context, now time.Time) string {
	now = now.In(e.location)
	occs := e.Occurrences(ctx, now)
	return render.Markdown(occs, now, render.Options{TwelveHour: e.twelveHour})
}
