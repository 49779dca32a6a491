package internal

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// EpisodeChecker asks the series calendar whether the episodes that aired
// at a given moment have been downloaded.
type EpisodeChecker struct {
	proxy        *ProxyClient
	appName      string
	calendarPath string
}

func NewEpisodeChecker(proxy *ProxyClient, svc ServicesConfig) *EpisodeChecker {
	return &EpisodeChecker{proxy: proxy, appName: svc.SeriesApp, calendarPath: svc.CalendarPath}
}

// CheckEpisode returns false if any calendar episode for seriesID in
// [airDate, airDate] lacks a file, true otherwise.
func (e *EpisodeChecker) CheckEpisode(ctx context.Context, seriesID, airDate string) (bool, error) {
	query := fmt.Sprintf("start=%s&end=%s", airDate, airDate)
	raw, err := e.proxy.FetchEnvelope(ctx, e.appName, e.calendarPath, query)
	if err != nil {
		return false, err
	}
	res, err := DecodePayload[[]Record](raw)
	if err != nil {
		return false, err
	}
	missing := Any(res.Payload, func(ep Record) bool {
		sid, ok := ep["seriesId"]
		return ok && jsString(sid) == seriesID && !ep.Bool("hasFile")
	})
	return !missing, nil
}

// Enricher fans episode checks out over a bound show list.
type Enricher struct {
	checker *EpisodeChecker
	limit   int
}

func NewEnricher(checker *EpisodeChecker, cfg EnrichmentConfig) *Enricher {
	return &Enricher{checker: checker, limit: cfg.Concurrency}
}

// Dispatch tracks one fan-out; callers may ignore it.
type Dispatch struct {
	g       errgroup.Group
	done    sync.WaitGroup
	Started int
}

// Wait blocks until every lookup of this dispatch has applied its result.
func (d *Dispatch) Wait() {
	d.done.Wait()
}

// Dispatch starts one lookup per node awaiting enrichment and returns
// immediately. Lookups are detached from ctx cancellation, absorb their own
// errors and write results straight to their node.
func (en *Enricher) Dispatch(ctx context.Context, view *ListView) *Dispatch {
	d := &Dispatch{}
	if en.limit > 0 {
		d.g.SetLimit(en.limit)
	}
	detached := context.WithoutCancel(ctx)
	pending := Filter(view.Nodes, func(n *Node) bool { return n.previousAiringRaw != "" })
	d.Started = len(pending)
	d.done.Add(len(pending))
	// g.Go blocks once the limit is reached, so feeding happens off the caller.
	go func() {
		for _, n := range pending {
			d.g.Go(func() error {
				defer d.done.Done()
				en.enrichNode(detached, n)
				return nil
			})
		}
		_ = d.g.Wait()
	}()
	return d
}

func (en *Enricher) enrichNode(ctx context.Context, n *Node) {
	ok, err := en.checker.CheckEpisode(ctx, n.ID, n.previousAiringRaw)
	switch {
	case err != nil:
		EnrichmentLookups.WithLabelValues("error").Inc()
		DashLog(WARN, "Enricher", "episode check for series %s failed: %v", n.ID, err)
		n.SetStatus(EpisodeUnknown)
	case ok:
		EnrichmentLookups.WithLabelValues("acquired").Inc()
		n.SetStatus(EpisodeAcquired)
	default:
		EnrichmentLookups.WithLabelValues("missing").Inc()
		n.SetStatus(EpisodeMissing)
	}
}
