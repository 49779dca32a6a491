package internal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestGetCollectionFetchesOnce(t *testing.T) {
	fp := newFakeProxy(t)
	fp.Respond(DefaultSeriesPath, envelopeOK(`[{"id":1,"title":"A"}]`))
	d := newTestDashboard(t, fp)

	first, err := d.Cache.GetCollection(context.Background(), EntityShows)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}
	second, err := d.Cache.GetCollection(context.Background(), EntityShows)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected the cached result to be reused")
	}
	if n := fp.Calls(DefaultSeriesPath); n != 1 {
		t.Fatalf("expected 1 fetch, got %d", n)
	}
	if first.FetchedAtEpochMillis() == 0 {
		t.Fatalf("expected fetch time to be recorded")
	}
}

func TestGetCollectionSingleFlight(t *testing.T) {
	fp := newFakeProxy(t)
	release := make(chan struct{})
	fp.Handle(DefaultSeriesPath, func(*http.Request) fakeReply {
		<-release
		return fakeReply{Body: envelopeOK(`[{"id":1,"title":"A"}]`)}
	})
	d := newTestDashboard(t, fp)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Cache.GetCollection(context.Background(), EntityShows)
			errs <- err
		}()
	}
	// Let every caller reach the in-flight load before it resolves.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent load failed: %v", err)
		}
	}
	if n := fp.Calls(DefaultSeriesPath); n != 1 {
		t.Fatalf("expected a single shared fetch, got %d", n)
	}
}

func TestGetCollectionFailureIsNotCached(t *testing.T) {
	fp := newFakeProxy(t)
	fail := true
	var mu sync.Mutex
	fp.Handle(DefaultMoviePath, func(*http.Request) fakeReply {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return fakeReply{Body: `{"error":"database locked"}`}
		}
		return fakeReply{Body: envelopeOK(`[{"id":5,"title":"M"}]`)}
	})
	d := newTestDashboard(t, fp)

	_, err := d.Cache.GetCollection(context.Background(), EntityMovies)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if _, ok := d.Cache.Peek(EntityMovies); ok {
		t.Fatalf("failed load must not populate the cache")
	}

	mu.Lock()
	fail = false
	mu.Unlock()
	res, err := d.Cache.GetCollection(context.Background(), EntityMovies)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if len(res.Payload) != 1 || res.Payload[0].Title() != "M" {
		t.Fatalf("unexpected payload %v", res.Payload)
	}
	if n := fp.Calls(DefaultMoviePath); n != 2 {
		t.Fatalf("expected 2 fetches, got %d", n)
	}
}

func TestGetCollectionUnknownAndUnimplemented(t *testing.T) {
	fp := newFakeProxy(t)
	d := newTestDashboard(t, fp)

	if _, err := d.Cache.GetCollection(context.Background(), EntityDownloads); !errors.Is(err, ErrNotImplemented) {
		t.Fatalf("expected ErrNotImplemented, got %v", err)
	}
	_, err := d.Cache.GetCollection(context.Background(), EntityType("books"))
	if !errors.Is(err, ErrUnknownCollection) {
		t.Fatalf("expected ErrUnknownCollection, got %v", err)
	}
	if err.Error() != "unknown collection: no database 'books' to load" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestGetCollectionSortsBySortTitle(t *testing.T) {
	fp := newFakeProxy(t)
	fp.Respond(DefaultSeriesPath, envelopeOK(`[
		{"id":1,"title":"A Show","sortTitle":"zeta show"},
		{"id":2,"title":"Z Show","sortTitle":"alpha show"}
	]`))
	d := newTestDashboard(t, fp)

	res, err := d.Cache.GetCollection(context.Background(), EntityShows)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	titles := Map(res.Payload, func(r Record) string { return r.Title() })
	if titles[0] != "Z Show" || titles[1] != "A Show" {
		t.Fatalf("expected sortTitle order, got %v", titles)
	}
}
