// Package messaging connects the page, content and coordinator contexts.
//
// The coordinator owns all visit state and runs a single event loop; the
// other contexts reach it only through request/response calls that honour
// context cancellation.
package messaging

import (
	"errors"

	"github.com/mamamialezatoz/go-techstack/internal/models"
)

var (
	// ErrNoEvidence means nothing has been reported for the tab yet
	ErrNoEvidence = errors.New("no evidence available")
	// ErrHostUnavailable means the queried context is not attached
	ErrHostUnavailable = errors.New("host unavailable")
	// ErrRefreshAndRetry is the terminal outcome when no context has data
	ErrRefreshAndRetry = errors.New("please refresh the page and try again")
	// ErrCoordinatorStopped is returned once the event loop has exited
	ErrCoordinatorStopped = errors.New("coordinator stopped")
)

// MessageKind names a content-to-coordinator message
type MessageKind string

// KindDOMResult carries the page sandbox detections of one visit
const KindDOMResult MessageKind = "DOM_RESULT"

// Message is sent from a content relay to the coordinator
type Message struct {
	Kind         MessageKind        `json:"kind"`
	Visit        models.VisitID     `json:"visit"`
	Domain       string             `json:"domain"`
	Technologies []models.Detection `json:"technologies"`
}

// Ack answers a Message
type Ack struct {
	Visit models.VisitID `json:"visit"`
	// Stale is set when the message belonged to a superseded navigation and
	// was dropped
	Stale bool `json:"stale"`
	// Technologies is the merged view after the message was applied
	Technologies []models.Detection `json:"technologies,omitempty"`
}

// ContentResult is what a content relay knows about its page
type ContentResult struct {
	Visit        models.VisitID
	Domain       string
	Technologies []models.Detection
}
