package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/reconciler"
)

// DefaultSweepInterval is how often overdue records are completed
const DefaultSweepInterval = time.Second

type request struct {
	fn   func(r *reconciler.Reconciler)
	done chan struct{}
}

// Coordinator serializes every reconciler transition on one goroutine
type Coordinator struct {
	rec           *reconciler.Reconciler
	sweepInterval time.Duration

	requests chan request
	stopped  chan struct{}
}

// NewCoordinator wraps rec. Nothing is processed until Run is called.
func NewCoordinator(rec *reconciler.Reconciler, sweepInterval time.Duration) *Coordinator {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Coordinator{
		rec:           rec,
		sweepInterval: sweepInterval,
		requests:      make(chan request),
		stopped:       make(chan struct{}),
	}
}

// Run processes requests until ctx is done
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.stopped)

	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	logger.Debugf("coordinator started, sweeping every %s", c.sweepInterval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-c.requests:
			req.fn(c.rec)
			close(req.done)
		case now := <-ticker.C:
			if n := c.rec.Sweep(now); n > 0 {
				logger.Debugf("completed %d visit records after bounded wait", n)
			}
		}
	}
}

// do runs fn on the event loop and waits for it
func (c *Coordinator) do(ctx context.Context, fn func(r *reconciler.Reconciler)) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stopped:
		return ErrCoordinatorStopped
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Send delivers a content message. A message for a superseded visit is
// acknowledged with Stale set rather than failing.
func (c *Coordinator) Send(ctx context.Context, msg Message) (Ack, error) {
	if msg.Kind != KindDOMResult {
		return Ack{}, fmt.Errorf("unsupported message kind %q", msg.Kind)
	}

	var (
		ack      = Ack{Visit: msg.Visit}
		applyErr error
	)
	err := c.do(ctx, func(r *reconciler.Reconciler) {
		applyErr = r.ApplyDOMResult(msg.Visit, msg.Domain, msg.Technologies)
		if applyErr != nil {
			return
		}
		if rec, ok := r.Current(msg.Visit.Tab); ok {
			ack.Technologies = rec.Technologies
		}
	})
	if err != nil {
		return Ack{}, err
	}

	switch {
	case errors.Is(applyErr, reconciler.ErrStaleVisit):
		ack.Stale = true
	case applyErr != nil:
		return Ack{}, applyErr
	}
	return ack, nil
}

// Query returns the tab's current record or ErrNoEvidence
func (c *Coordinator) Query(ctx context.Context, tab models.TabID) (*models.VisitRecord, error) {
	var (
		rec *models.VisitRecord
		ok  bool
	)
	if err := c.do(ctx, func(r *reconciler.Reconciler) {
		rec, ok = r.Current(tab)
	}); err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoEvidence
	}
	return rec, nil
}

// CurrentVisit returns the visit identity of the tab's current navigation
func (c *Coordinator) CurrentVisit(ctx context.Context, tab models.TabID) (models.VisitID, error) {
	var visit models.VisitID
	err := c.do(ctx, func(r *reconciler.Reconciler) {
		visit = r.CurrentVisit(tab)
	})
	return visit, err
}

// OnNavigationCommitted invalidates the tab and returns the new visit
func (c *Coordinator) OnNavigationCommitted(ctx context.Context, tab models.TabID) (models.VisitID, error) {
	var visit models.VisitID
	err := c.do(ctx, func(r *reconciler.Reconciler) {
		visit = r.BeginNavigation(tab)
	})
	return visit, err
}

// OnNavigationCompleted hands over the top-level response headers of visit.
// Headers of a superseded navigation return reconciler.ErrStaleVisit.
func (c *Coordinator) OnNavigationCompleted(ctx context.Context, visit models.VisitID, url string, headers map[string][]string) error {
	var applyErr error
	if err := c.do(ctx, func(r *reconciler.Reconciler) {
		applyErr = r.ApplyHeaders(visit, url, headers)
	}); err != nil {
		return err
	}
	return applyErr
}

// OnTabClosed drops every piece of state held for tab
func (c *Coordinator) OnTabClosed(ctx context.Context, tab models.TabID) error {
	return c.do(ctx, func(r *reconciler.Reconciler) {
		r.CloseTab(tab)
	})
}
