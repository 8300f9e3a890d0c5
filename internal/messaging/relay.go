package messaging

import (
	"context"
	"sync"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// Sender delivers content messages to the coordinator
type Sender interface {
	Send(ctx context.Context, msg Message) (Ack, error)
}

// ContentRelay is the content context of one visit. It keeps the latest
// local result and forwards it to the coordinator.
type ContentRelay struct {
	visit  models.VisitID
	domain string
	sender Sender

	mu     sync.RWMutex
	latest []models.Detection
	ready  bool
}

// NewContentRelay creates a relay for visit
func NewContentRelay(visit models.VisitID, domain string, sender Sender) *ContentRelay {
	return &ContentRelay{visit: visit, domain: domain, sender: sender}
}

// Visit returns the visit the relay was created for
func (r *ContentRelay) Visit() models.VisitID {
	return r.visit
}

// Deliver records a page sandbox result and forwards it as DOM_RESULT. When
// the coordinator accepts it, the merged view from the ack becomes the local
// result.
func (r *ContentRelay) Deliver(ctx context.Context, techs []models.Detection) (Ack, error) {
	r.setLatest(techs)

	ack, err := r.sender.Send(ctx, Message{
		Kind:         KindDOMResult,
		Visit:        r.visit,
		Domain:       r.domain,
		Technologies: models.CloneDetections(techs),
	})
	if err != nil {
		return Ack{}, err
	}
	if !ack.Stale && ack.Technologies != nil {
		r.setLatest(ack.Technologies)
	}
	return ack, nil
}

func (r *ContentRelay) setLatest(techs []models.Detection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest = models.CloneDetections(techs)
	r.ready = true
}

// Latest answers a local query
func (r *ContentRelay) Latest() (ContentResult, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.ready {
		return ContentResult{}, false
	}
	return ContentResult{
		Visit:        r.visit,
		Domain:       r.domain,
		Technologies: models.CloneDetections(r.latest),
	}, true
}

// Relays tracks the content relay attached to each tab
type Relays struct {
	mu    sync.RWMutex
	byTab map[models.TabID]*ContentRelay
}

// NewRelays creates an empty registry
func NewRelays() *Relays {
	return &Relays{byTab: make(map[models.TabID]*ContentRelay)}
}

// Attach registers relay for its tab, replacing any previous one
func (rs *Relays) Attach(relay *ContentRelay) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.byTab[relay.Visit().Tab] = relay
}

// Detach removes the relay of tab
func (rs *Relays) Detach(tab models.TabID) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.byTab, tab)
}

// Get returns the relay attached to tab
func (rs *Relays) Get(tab models.TabID) (*ContentRelay, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	relay, ok := rs.byTab[tab]
	return relay, ok
}

// QueryContent asks the tab's content context for its latest result
func (rs *Relays) QueryContent(ctx context.Context, tab models.TabID) (ContentResult, error) {
	if err := ctx.Err(); err != nil {
		return ContentResult{}, err
	}
	relay, ok := rs.Get(tab)
	if !ok {
		return ContentResult{}, ErrHostUnavailable
	}
	res, ok := relay.Latest()
	if !ok {
		return ContentResult{}, ErrNoEvidence
	}
	return res, nil
}
