// Package reconciler merges DOM and header detections into one record per
// page visit.
//
// A tab's record moves Collecting -> HeadersApplied -> Complete and is
// dropped on navigation start or tab close. Every inbound result carries the
// visit it was produced for; results for an older navigation epoch are
// discarded. The merged technology list is recomputed from the per-source
// lists on every change, so the order in which DOM and header evidence
// arrive does not matter.
//
// A Reconciler is not safe for concurrent use. It is owned by a single
// goroutine, see the messaging package.
package reconciler

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/extractor"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/store"
)

// ErrStaleVisit is returned for results produced for a superseded navigation
var ErrStaleVisit = errors.New("stale visit")

// BadgeSink displays the number of detections for a tab. Zero clears it.
type BadgeSink interface {
	SetBadge(tab models.TabID, count int)
}

// Reconciler owns visit records, navigation epochs and the header cache
type Reconciler struct {
	db            *models.SignatureDatabase
	headers       *extractor.HeaderExtractor
	store         store.Store
	badge         BadgeSink
	completeAfter time.Duration
	now           func() time.Time

	epochs  map[models.TabID]uint64
	records map[models.TabID]*models.VisitRecord
}

// New creates a reconciler for db
func New(db *models.SignatureDatabase, opts ...Option) *Reconciler {
	cfg := &Config{
		CompleteAfter: DefaultCompleteAfter,
		Now:           time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Store == nil {
		cfg.Store = store.NewMemoryStore()
	}
	if cfg.Matcher == nil {
		cfg.Matcher = detection.NewMatcher()
	}
	if cfg.CompleteAfter <= 0 {
		cfg.CompleteAfter = DefaultCompleteAfter
	}

	return &Reconciler{
		db:            db,
		headers:       extractor.NewHeaderExtractor(cfg.Matcher),
		store:         cfg.Store,
		badge:         cfg.Badge,
		completeAfter: cfg.CompleteAfter,
		now:           cfg.Now,
		epochs:        make(map[models.TabID]uint64),
		records:       make(map[models.TabID]*models.VisitRecord),
	}
}

// CurrentVisit returns the visit identity of the tab's current navigation
func (r *Reconciler) CurrentVisit(tab models.TabID) models.VisitID {
	return models.VisitID{Tab: tab, Epoch: r.epochs[tab]}
}

// BeginNavigation starts a new epoch for tab and drops its record, whatever
// state it was in
func (r *Reconciler) BeginNavigation(tab models.TabID) models.VisitID {
	r.epochs[tab]++
	visit := r.CurrentVisit(tab)

	delete(r.records, tab)
	r.persistDelete(tab)
	r.persistEpoch(visit)
	r.setBadge(tab, 0)

	logger.WithField("visit", visit.String()).Debug("navigation started")
	return visit
}

// ApplyDOMResult replaces the DOM detections of the visit's record, creating
// the record when needed. Results for a superseded visit return
// ErrStaleVisit and change nothing.
func (r *Reconciler) ApplyDOMResult(visit models.VisitID, domain string, techs []models.Detection) error {
	if current := r.CurrentVisit(visit.Tab); visit != current {
		logger.WithFields(logrus.Fields{
			"visit":   visit.String(),
			"current": current.String(),
		}).Debug("discarding DOM result for stale visit")
		return ErrStaleVisit
	}

	now := r.now()
	rec, ok := r.records[visit.Tab]
	if !ok {
		rec = r.create(visit, domain, now)
	}
	if domain != "" {
		rec.Domain = domain
	}
	rec.DOMTechnologies = carryVersions(rec.DOMTechnologies, models.CloneDetections(techs))
	rec.DOMReported = true

	r.commit(rec, now)
	return nil
}

// ApplyHeaders captures the top-level response headers of visit and merges
// them into its record if one exists. Without a record the headers stay
// buffered until the record is created or read. Headers for a superseded
// visit return ErrStaleVisit and change nothing.
func (r *Reconciler) ApplyHeaders(visit models.VisitID, url string, headers map[string][]string) error {
	if current := r.CurrentVisit(visit.Tab); visit != current {
		logger.WithFields(logrus.Fields{
			"visit":   visit.String(),
			"current": current.String(),
		}).Debug("discarding headers for stale visit")
		return ErrStaleVisit
	}

	r.headers.Capture(visit.Tab, visit.Epoch, url, headers)
	if rec, ok := r.records[visit.Tab]; ok {
		r.applyBuffered(rec)
		r.commit(rec, r.now())
	}
	return nil
}

// Current returns a copy of the tab's record. A tab without a record but with
// headers buffered for its current navigation gets a record built from them.
func (r *Reconciler) Current(tab models.TabID) (*models.VisitRecord, bool) {
	now := r.now()
	rec, ok := r.records[tab]
	if !ok {
		visit := r.CurrentVisit(tab)
		entry, buffered := r.headers.Entry(tab)
		if !buffered || entry.Epoch != visit.Epoch {
			return nil, false
		}
		rec = r.create(visit, extractor.HostFromURL(entry.URL), now)
		r.commit(rec, now)
	} else if r.completeIfDue(rec, now) {
		r.commit(rec, now)
	}
	return rec.Clone(), true
}

// Sweep completes every record whose bounded wait has elapsed by now and
// returns how many changed
func (r *Reconciler) Sweep(now time.Time) int {
	n := 0
	for _, rec := range r.records {
		if r.completeIfDue(rec, now) {
			r.commit(rec, now)
			n++
		}
	}
	return n
}

// CloseTab forgets everything known about tab
func (r *Reconciler) CloseTab(tab models.TabID) {
	delete(r.records, tab)
	delete(r.epochs, tab)
	r.headers.Forget(tab)
	if err := r.store.Forget(tab); err != nil {
		logger.Warnf("failed to forget tab %d: %v", tab, err)
	}
}

// Headers returns the headers buffered for tab, if any
func (r *Reconciler) Headers(tab models.TabID) (map[string]string, bool) {
	return r.headers.GetHeaders(tab)
}

// Restore reloads epochs and records from the store. Records whose epoch is
// behind the stored epoch of their tab are dropped.
func (r *Reconciler) Restore() error {
	epochs, err := r.store.Epochs()
	if err != nil {
		return err
	}
	records, err := r.store.All()
	if err != nil {
		return err
	}

	for tab, epoch := range epochs {
		if epoch > r.epochs[tab] {
			r.epochs[tab] = epoch
		}
	}
	for _, rec := range records {
		tab := rec.Visit.Tab
		if rec.Visit.Epoch > r.epochs[tab] {
			r.epochs[tab] = rec.Visit.Epoch
		}
	}
	for _, rec := range records {
		if rec.Visit == r.CurrentVisit(rec.Visit.Tab) {
			r.records[rec.Visit.Tab] = rec
		}
	}

	logger.Infof("restored %d visit records across %d tabs", len(r.records), len(r.epochs))
	return nil
}

func (r *Reconciler) create(visit models.VisitID, domain string, now time.Time) *models.VisitRecord {
	rec := &models.VisitRecord{
		Visit:     visit,
		Domain:    domain,
		Phase:     models.PhaseCollecting,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.records[visit.Tab] = rec
	r.applyBuffered(rec)
	return rec
}

// applyBuffered copies header evidence captured for the record's own epoch
func (r *Reconciler) applyBuffered(rec *models.VisitRecord) {
	entry, ok := r.headers.Entry(rec.Visit.Tab)
	if !ok || entry.Epoch != rec.Visit.Epoch {
		return
	}
	rec.Headers = entry.Headers
	rec.HeaderTechnologies = r.headers.Detect(r.db, entry.Headers)
	rec.HeadersReported = true
	if rec.Domain == "" {
		rec.Domain = extractor.HostFromURL(entry.URL)
	}
}

// commit recomputes the merged view and phase, then persists
func (r *Reconciler) commit(rec *models.VisitRecord, now time.Time) {
	rec.Technologies = detection.Merge(rec.DOMTechnologies, rec.HeaderTechnologies)

	switch {
	case rec.Phase == models.PhaseComplete:
	case rec.DOMReported && rec.HeadersReported:
		rec.Phase = models.PhaseComplete
	case rec.HeadersReported:
		rec.Phase = models.PhaseHeadersApplied
	}
	r.completeIfDue(rec, now)

	rec.UpdatedAt = now
	if err := r.store.Put(rec); err != nil {
		logger.Warnf("failed to persist visit %s: %v", rec.Visit, err)
	}
	r.setBadge(rec.Visit.Tab, len(rec.Technologies))
}

// carryVersions keeps versions already known for a technology when a
// replacement report names it without one
func carryVersions(prev, next []models.Detection) []models.Detection {
	if len(prev) == 0 {
		return next
	}
	known := make(map[string]string, len(prev))
	for _, d := range prev {
		if d.Version != "" {
			known[d.Name] = d.Version
		}
	}
	for i := range next {
		if next[i].Version == "" {
			next[i].Version = known[next[i].Name]
		}
	}
	return next
}

func (r *Reconciler) completeIfDue(rec *models.VisitRecord, now time.Time) bool {
	if rec.Phase == models.PhaseComplete || now.Sub(rec.CreatedAt) < r.completeAfter {
		return false
	}
	rec.Phase = models.PhaseComplete
	return true
}

func (r *Reconciler) persistDelete(tab models.TabID) {
	if err := r.store.Delete(tab); err != nil {
		logger.Warnf("failed to delete visit of tab %d: %v", tab, err)
	}
}

func (r *Reconciler) persistEpoch(visit models.VisitID) {
	if err := r.store.SetEpoch(visit.Tab, visit.Epoch); err != nil {
		logger.Warnf("failed to persist epoch %s: %v", visit, err)
	}
}

func (r *Reconciler) setBadge(tab models.TabID, count int) {
	if r.badge != nil {
		r.badge.SetBadge(tab, count)
	}
}
