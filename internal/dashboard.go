package internal

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dashboard is the composition root: it owns the collection cache, the
// bound list views and the update hub for the life of the process.
type Dashboard struct {
	Proxy    *ProxyClient
	Cache    *CollectionCache
	Binder   *Binder
	Enricher *Enricher
	Gate     *SessionGate
	Hub      *Hub
	Shell    *ShellLoader

	services ServicesConfig

	mu    sync.RWMutex
	views map[EntityType]*ListView
}

// NewDashboard wires every component from cfg. hc may be nil.
func NewDashboard(cfg *Config, hc *http.Client) *Dashboard {
	proxy := NewProxyClient(cfg.Proxy, cfg.Breaker, hc)
	hub := NewHub()
	return &Dashboard{
		Proxy:    proxy,
		Cache:    NewCollectionCache(proxy, NewComparator(cfg.Display.Locale), CollectionTable(cfg.Services)),
		Binder:   NewBinder(cfg.Display, hub.Broadcast),
		Enricher: NewEnricher(NewEpisodeChecker(proxy, cfg.Services), cfg.Enrichment),
		Gate:     NewSessionGate(proxy, cfg.Services),
		Hub:      hub,
		Shell:    NewShellLoader(cfg.Server.TemplateDir),
		services: cfg.Services,
		views:    make(map[EntityType]*ListView),
	}
}

// Activation is the outcome of the startup barrier.
type Activation struct {
	Template *template.Template
	LoggedIn bool
}

// Activate loads the page shell and probes the session concurrently and
// returns once both have settled. Only a shell failure is an error.
func (d *Dashboard) Activate(ctx context.Context) (*Activation, error) {
	var (
		g   errgroup.Group
		act Activation
	)
	g.Go(func() error {
		tpl, err := d.Shell.Load(ctx)
		act.Template = tpl
		return err
	})
	g.Go(func() error {
		act.LoggedIn = d.Gate.HasAuth(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &act, nil
}

// LoadList fetches (or reuses) a collection and binds it. Failures are
// carried on the returned view. The Dispatch is nil unless enrichment ran.
func (d *Dashboard) LoadList(ctx context.Context, entity EntityType) (*ListView, *Dispatch) {
	res, err := d.Cache.GetCollection(ctx, entity)
	if err != nil {
		DashLog(ERROR, "Dashboard", "Unable to load %s: %v", entity, err)
		return &ListView{Entity: entity, Err: err}, nil
	}
	view := d.Binder.Bind(entity, res.Payload)
	d.mu.Lock()
	d.views[entity] = view
	d.mu.Unlock()
	if entity != EntityShows {
		return view, nil
	}
	return view, d.Enricher.Dispatch(ctx, view)
}

// View returns the most recently bound view for entity.
func (d *Dashboard) View(entity EntityType) (*ListView, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.views[entity]
	return v, ok
}

// BuildPage runs the startup barrier and, for a logged-in visitor, loads
// every dashboard list independently. The returned dispatches belong to
// enrichment still in flight.
func (d *Dashboard) BuildPage(ctx context.Context) (*Activation, PageData, []*Dispatch, error) {
	act, err := d.Activate(ctx)
	if err != nil {
		return nil, PageData{}, nil, err
	}
	data := PageData{LoggedIn: act.LoggedIn}
	if !act.LoggedIn {
		return act, data, nil, nil
	}
	sections := make([]ListSection, len(DashboardLists))
	dispatches := make([]*Dispatch, len(DashboardLists))
	var wg sync.WaitGroup
	for i, entity := range DashboardLists {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, disp := d.LoadList(ctx, entity)
			sec := ListSection{Entity: entity, Heading: listHeading(entity)}
			if view.Err != nil {
				sec.Error = fmt.Sprintf("Unable to load %s: %v", entity, view.Err)
			} else {
				sec.Nodes = view.Views()
			}
			sections[i] = sec
			dispatches[i] = disp
		}()
	}
	wg.Wait()
	data.Lists = sections
	return act, data, Filter(dispatches, func(d *Dispatch) bool { return d != nil }), nil
}

// Snapshot lists every node whose status carries information, for clients
// that connect after updates were broadcast.
func (d *Dashboard) Snapshot() []NodeUpdate {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []NodeUpdate
	for _, entity := range DashboardLists {
		view, ok := d.views[entity]
		if !ok {
			continue
		}
		for _, n := range view.Nodes {
			if s := n.Status(); s != EpisodeNone {
				out = append(out, NodeUpdate{Entity: n.Entity, ID: n.ID, Status: s, Label: s.Label()})
			}
		}
	}
	return out
}

// MovieCalendar returns movie service calendar entries between start and end.
func (d *Dashboard) MovieCalendar(ctx context.Context, start, end string) ([]Record, error) {
	if start == "" || end == "" {
		return nil, fmt.Errorf("%w: start and end are required", ErrInvalidArguments)
	}
	query := fmt.Sprintf("start=%s&end=%s", start, end)
	raw, err := d.Proxy.FetchEnvelope(ctx, d.services.MovieApp, d.services.CalendarPath, query)
	if err != nil {
		return nil, err
	}
	res, err := DecodePayload[[]Record](raw)
	if err != nil {
		return nil, err
	}
	return res.Payload, nil
}
