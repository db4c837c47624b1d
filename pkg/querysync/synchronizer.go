// Package querysync keeps a view's filter state and the backend eventually
// consistent. Input is debounced, every issued request carries a generation
// token, and only the response of the most recently issued request may
// replace the page snapshot.
package querysync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bookings-admin/pkg/eventbus"
	"github.com/iota-uz/bookings-admin/pkg/inertia"
	"github.com/iota-uz/bookings-admin/pkg/metrics"
	"github.com/iota-uz/bookings-admin/pkg/pagination"
)

const DefaultDebounce = 300 * time.Millisecond

var (
	ErrStale  = errors.New("querysync: response superseded by a newer request")
	ErrClosed = errors.New("querysync: synchronizer closed")
)

// History tells the browser how to apply a snapshot: replace the current
// history entry instead of pushing one, and keep scroll position and local
// component state. The zero value is a plain push.
type History struct {
	Replace        bool `json:"replace"`
	PreserveScroll bool `json:"preserveScroll"`
	PreserveState  bool `json:"preserveState"`
}

// Snapshot is one immutable server answer. It is replaced wholesale.
type Snapshot[T any] struct {
	Rows        []T               `json:"rows"`
	CurrentPage int               `json:"currentPage"`
	LastPage    int               `json:"lastPage"`
	Total       int               `json:"total"`
	Links       []pagination.Link `json:"links"`
	Filters     Filters           `json:"filters"`
	URL         string            `json:"url"`
	Flash       string            `json:"flash,omitempty"`
	History     History           `json:"history"`
}

// Decoder turns a page object into a snapshot.
type Decoder[T any] func(page *inertia.Page) (Snapshot[T], error)

// SnapshotReplaced is published after a response has been applied.
type SnapshotReplaced struct {
	Resource   string
	Generation uint64
}

// ReconcileFailed is published when the latest request failed; the previous
// snapshot is still in place.
type ReconcileFailed struct {
	Resource   string
	Generation uint64
	Err        error
}

type Options[T any] struct {
	Resource string
	// Path is the index path the filters are applied to.
	Path     string
	Visitor  inertia.Visitor
	Decode   Decoder[T]
	Debounce time.Duration
	Clock    clockwork.Clock
	Logger   *logrus.Entry
	Bus      eventbus.EventBus
	Initial  Filters
}

// State is what the rendering layer reads.
type State[T any] struct {
	Filters    Filters
	Snapshot   *Snapshot[T]
	Err        error
	Pending    bool
	Generation uint64
}

type Synchronizer[T any] struct {
	resource string
	path     string
	visitor  inertia.Visitor
	decode   Decoder[T]
	debounce time.Duration
	clock    clockwork.Clock
	log      *logrus.Entry
	bus      eventbus.EventBus

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	filters    Filters
	dirty      bool
	snapshot   *Snapshot[T]
	err        error
	timer      clockwork.Timer
	timerSeq   uint64
	generation uint64
	inFlight   context.CancelFunc
	closed     bool
}

func New[T any](opts Options[T]) *Synchronizer[T] {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Synchronizer[T]{
		resource: opts.Resource,
		path:     opts.Path,
		visitor:  opts.Visitor,
		decode:   opts.Decode,
		debounce: debounce,
		clock:    clock,
		log:      log.WithField("resource", opts.Resource),
		bus:      opts.Bus,
		ctx:      ctx,
		cancel:   cancel,
		filters:  opts.Initial.Clone(),
	}
}

// OnFilterChange records the new state at once and (re)schedules a
// reconciliation after the debounce window. A change arriving inside the
// window cancels the pending one.
func (s *Synchronizer[T]) OnFilterChange(next Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.filters = next.Clone()
	s.dirty = true
	s.stopTimerLocked()
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.clock.AfterFunc(s.debounce, func() { s.onTimer(seq) })
}

func (s *Synchronizer[T]) onTimer(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.timerSeq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.mu.Unlock()
	if err := s.Reconcile(s.ctx); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrClosed) {
		s.log.WithError(err).Warn("debounced reconciliation failed")
	}
}

func (s *Synchronizer[T]) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Reconcile issues a request for the current filters now, cancelling any
// pending debounced one. The filters are not rewritten from the server echo
// afterwards; what the user typed stays as typed.
func (s *Synchronizer[T]) Reconcile(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.stopTimerLocked()
	s.timerSeq++
	query := s.filters.Query()
	s.dirty = false
	s.mu.Unlock()

	return s.issue(ctx, inertia.Visit{
		URL:            s.path,
		Query:          query,
		Replace:        true,
		PreserveScroll: true,
		PreserveState:  true,
	}, false)
}

// Visit navigates to a server-provided target (a page link) through the same
// ordering rules as Reconcile. The target carries its own query, so the
// server's filter echo is adopted unless the user typed in the meantime.
func (s *Synchronizer[T]) Visit(ctx context.Context, target string) error {
	return s.issue(ctx, inertia.Visit{
		URL:            target,
		Replace:        true,
		PreserveScroll: true,
		PreserveState:  true,
	}, true)
}

func (s *Synchronizer[T]) issue(ctx context.Context, visit inertia.Visit, adoptEcho bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.generation++
	gen := s.generation
	// The superseded request's answer would be discarded anyway.
	if s.inFlight != nil {
		s.inFlight()
	}
	reqCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	s.inFlight = cancel
	s.mu.Unlock()

	defer func() {
		stop()
		cancel()
	}()

	metrics.RecordReconcile(s.resource, metrics.ReconcileIssued)
	log := s.log.WithField("generation", gen)
	log.WithField("url", visit.URL).Debug("reconciliation issued")

	var snap Snapshot[T]
	page, err := s.visitor.Visit(reqCtx, visit)
	if err == nil {
		snap, err = s.decode(page)
	}

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		metrics.RecordReconcile(s.resource, metrics.ReconcileStale)
		log.Debug("stale response discarded")
		return ErrStale
	}
	s.inFlight = nil
	if err != nil {
		s.err = err
		s.mu.Unlock()
		metrics.RecordReconcile(s.resource, metrics.ReconcileFailed)
		log.WithError(err).Warn("reconciliation failed, keeping previous snapshot")
		s.publish(&ReconcileFailed{Resource: s.resource, Generation: gen, Err: err})
		return err
	}
	if lerr := pagination.Validate(snap.Links); lerr != nil {
		log.WithError(lerr).Warn("backend returned inconsistent page links")
	}
	snap.History = History{
		Replace:        visit.Replace,
		PreserveScroll: visit.PreserveScroll,
		PreserveState:  visit.PreserveState,
	}
	s.snapshot = &snap
	s.err = nil
	// Input typed while this request was in flight stays authoritative.
	if adoptEcho && !s.dirty && snap.Filters != nil {
		s.filters = snap.Filters.Clone()
	}
	s.mu.Unlock()

	metrics.RecordReconcile(s.resource, metrics.ReconcileApplied)
	log.Debug("snapshot replaced")
	s.publish(&SnapshotReplaced{Resource: s.resource, Generation: gen})
	return nil
}

func (s *Synchronizer[T]) publish(event interface{}) {
	if s.bus != nil {
		s.bus.Publish(event)
	}
}

// Install sets a snapshot obtained outside the synchronizer, such as the
// first page load. A request still in flight becomes stale. The snapshot's
// filter echo is adopted unless the user has typed since.
func (s *Synchronizer[T]) Install(snap Snapshot[T]) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.generation++
	gen := s.generation
	if s.inFlight != nil {
		s.inFlight()
		s.inFlight = nil
	}
	s.snapshot = &snap
	s.err = nil
	if !s.dirty && snap.Filters != nil {
		s.filters = snap.Filters.Clone()
	}
	s.mu.Unlock()
	s.publish(&SnapshotReplaced{Resource: s.resource, Generation: gen})
}

// DismissError clears the displayed error without touching filters or snapshot.
func (s *Synchronizer[T]) DismissError() {
	s.mu.Lock()
	s.err = nil
	s.mu.Unlock()
}

func (s *Synchronizer[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State[T]{
		Filters:    s.filters.Clone(),
		Snapshot:   s.snapshot,
		Err:        s.err,
		Pending:    s.timer != nil || s.inFlight != nil,
		Generation: s.generation,
	}
}

// Close stops the debounce timer and makes every outstanding response stale.
func (s *Synchronizer[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.stopTimerLocked()
	s.inFlight = nil
	s.mu.Unlock()
	s.cancel()
}
