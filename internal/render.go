package internal

import (
	"fmt"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// EpisodeStatus is the enrichment state shown on a show entry.
type EpisodeStatus string

const (
	EpisodeNone     EpisodeStatus = ""
	EpisodePending  EpisodeStatus = "pending"
	EpisodeAcquired EpisodeStatus = "acquired"
	EpisodeMissing  EpisodeStatus = "missing"
	EpisodeUnknown  EpisodeStatus = "unknown"
)

func (s EpisodeStatus) Label() string {
	switch s {
	case EpisodePending:
		return "checking latest episode"
	case EpisodeAcquired:
		return "latest episode downloaded"
	case EpisodeMissing:
		return "latest episode missing"
	case EpisodeUnknown:
		return "latest episode unavailable"
	}
	return ""
}

// YearRange is the span shown next to a title. Zero means unknown.
type YearRange struct {
	Start int
	End   int
}

func (y YearRange) String() string {
	switch {
	case y.Start == 0:
		return ""
	case y.End == 0 || y.End == y.Start:
		return fmt.Sprintf("(%d)", y.Start)
	}
	return fmt.Sprintf("(%d-%d)", y.Start, y.End)
}

// ComputeYearRange starts at firstAired, else year; it ends at lastAired,
// else previousAiring, and only when the record has ended.
func ComputeYearRange(r Record) YearRange {
	var yr YearRange
	if t, ok := r.Time("firstAired"); ok {
		yr.Start = t.Year()
	} else if n, ok := r.Number("year"); ok && n > 0 {
		yr.Start = int(n)
	}
	if r.Bool("ended") {
		if t, ok := r.Time("lastAired"); ok {
			yr.End = t.Year()
		} else if t, ok := r.Time("previousAiring"); ok {
			yr.End = t.Year()
		}
	}
	return yr
}

var trailingYear = regexp.MustCompile(` \(\d{4}\)$`)

// NormalizeTitle drops a trailing " (YYYY)" when the start year is known.
func NormalizeTitle(title string, yr YearRange) string {
	if yr.Start == 0 {
		return title
	}
	return trailingYear.ReplaceAllString(title, "")
}

// Node is the rendered handle for one record. Display fields are fixed at
// bind time; only the episode status changes afterwards.
type Node struct {
	Entity         EntityType
	ID             string
	Title          string
	Years          YearRange
	NextAiring     string
	PreviousAiring string
	// Raw airing value used as the calendar window for enrichment.
	previousAiringRaw string

	mu       sync.Mutex
	status   EpisodeStatus
	onChange func(NodeUpdate)
}

// NodeUpdate is pushed to connected pages when a node changes.
type NodeUpdate struct {
	Entity EntityType    `json:"entity"`
	ID     string        `json:"id"`
	Status EpisodeStatus `json:"status"`
	Label  string        `json:"label"`
}

// NodeView is an immutable copy of a node for templates and comparisons.
type NodeView struct {
	Entity         EntityType
	ID             string
	DomID          string
	Title          string
	Years          string
	NextAiring     string
	PreviousAiring string
	Status         EpisodeStatus
	StatusLabel    string
}

func (n *Node) Status() EpisodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// SetStatus records an enrichment outcome and notifies the owner.
func (n *Node) SetStatus(s EpisodeStatus) {
	n.mu.Lock()
	n.status = s
	notify := n.onChange
	n.mu.Unlock()
	if notify != nil {
		notify(NodeUpdate{Entity: n.Entity, ID: n.ID, Status: s, Label: s.Label()})
	}
}

func (n *Node) View() NodeView {
	s := n.Status()
	return NodeView{
		Entity:         n.Entity,
		ID:             n.ID,
		DomID:          DomID(n.Entity, n.ID),
		Title:          n.Title,
		Years:          n.Years.String(),
		NextAiring:     n.NextAiring,
		PreviousAiring: n.PreviousAiring,
		Status:         s,
		StatusLabel:    s.Label(),
	}
}

func DomID(entity EntityType, id string) string {
	return string(entity) + "-" + id
}

// ListView is one bound collection: nodes in collection order plus an
// identity index for late updates.
type ListView struct {
	Entity EntityType
	Nodes  []*Node
	byID   map[string]*Node
	Err    error
}

// Node returns the handle bound for id.
func (l *ListView) Node(id string) (*Node, bool) {
	n, ok := l.byID[id]
	return n, ok
}

func (l *ListView) Views() []NodeView {
	return Map(l.Nodes, func(n *Node) NodeView { return n.View() })
}

// Binder turns collections into ListViews.
type Binder struct {
	loc        *time.Location
	dateFormat string
	onChange   func(NodeUpdate)
}

func NewBinder(display DisplayConfig, onChange func(NodeUpdate)) *Binder {
	loc, err := time.LoadLocation(display.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Binder{loc: loc, dateFormat: display.DateFormat, onChange: onChange}
}

// Bind produces one node per record. Records without an identity get their
// position as id. Binding the same collection again yields equal views.
func (b *Binder) Bind(entity EntityType, records []Record) *ListView {
	view := &ListView{
		Entity: entity,
		Nodes:  make([]*Node, 0, len(records)),
		byID:   make(map[string]*Node, len(records)),
	}
	for i, r := range records {
		id := r.ID()
		if id == "" {
			id = "idx" + strconv.Itoa(i)
		}
		if _, dup := view.byID[id]; dup {
			DashLog(WARN, "Binder", "duplicate %s id %s; keeping first", entity, id)
			continue
		}
		n := b.bindNode(entity, id, r)
		view.Nodes = append(view.Nodes, n)
		view.byID[id] = n
	}
	return view
}

func (b *Binder) bindNode(entity EntityType, id string, r Record) *Node {
	yr := ComputeYearRange(r)
	n := &Node{
		Entity:   entity,
		ID:       id,
		Title:    NormalizeTitle(r.Title(), yr),
		Years:    yr,
		onChange: b.onChange,
	}
	if t, ok := r.Time("nextAiring"); ok {
		n.NextAiring = t.In(b.loc).Format(b.dateFormat)
	}
	if t, ok := r.Time("previousAiring"); ok {
		n.PreviousAiring = t.In(b.loc).Format(b.dateFormat)
		// The calendar matches episodes by seriesId, so only records with
		// a real id can be checked.
		if entity == EntityShows && r.HasID() {
			n.previousAiringRaw, _ = r.Str("previousAiring")
			n.status = EpisodePending
		}
	}
	return n
}
