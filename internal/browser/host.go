package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/mamamialezatoz/go-techstack/internal/extractor"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/messaging"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// DefaultNavigationTimeout bounds one navigation including page load
const DefaultNavigationTimeout = 30 * time.Second

// Host owns browser tabs. Every navigation is reported to the coordinator,
// the document response headers are handed over when the load finishes and
// the page sandbox result is delivered through the tab's content relay.
type Host struct {
	browser *rod.Browser
	coord   *messaging.Coordinator
	relays  *messaging.Relays
	db      *models.SignatureDatabase
	sandbox *extractor.PageSandbox

	// NavigationTimeout bounds Navigate; zero uses DefaultNavigationTimeout
	NavigationTimeout time.Duration

	mu      sync.Mutex
	pages   map[models.TabID]*rod.Page
	nextTab models.TabID
}

// NewHost creates a host over a connected browser
func NewHost(b *rod.Browser, coord *messaging.Coordinator, relays *messaging.Relays, db *models.SignatureDatabase) *Host {
	return &Host{
		browser:           b,
		coord:             coord,
		relays:            relays,
		db:                db,
		sandbox:           extractor.NewPageSandbox(nil),
		NavigationTimeout: DefaultNavigationTimeout,
		pages:             make(map[models.TabID]*rod.Page),
	}
}

// Open creates a blank tab
func (h *Host) Open() (models.TabID, error) {
	page, err := h.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return 0, fmt.Errorf("failed to open tab: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextTab++
	h.pages[h.nextTab] = page
	return h.nextTab, nil
}

// Visit opens a new tab and navigates it to target
func (h *Host) Visit(ctx context.Context, target string) (models.TabID, error) {
	tab, err := h.Open()
	if err != nil {
		return 0, err
	}
	if err := h.Navigate(ctx, tab, target); err != nil {
		return tab, err
	}
	return tab, nil
}

// Navigate loads target in tab. It returns once the DOM result has been
// delivered to the coordinator.
func (h *Host) Navigate(ctx context.Context, tab models.TabID, target string) error {
	page, ok := h.page(tab)
	if !ok {
		return fmt.Errorf("unknown tab %d", tab)
	}

	timeout := h.NavigationTimeout
	if timeout <= 0 {
		timeout = DefaultNavigationTimeout
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	visit, err := h.coord.OnNavigationCommitted(navCtx, tab)
	if err != nil {
		return err
	}
	relay := messaging.NewContentRelay(visit, extractor.HostFromURL(target), h.coord)
	h.relays.Attach(relay)

	log := logger.WithFields(logrus.Fields{"visit": visit.String(), "url": target})
	log.Debug("navigating")

	p := page.Context(navCtx)
	var (
		headers  map[string][]string
		finalURL = target
	)
	waitResponse := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument || e.FrameID != p.FrameID || e.Response == nil {
			return false
		}
		headers = headerValues(e.Response.Headers)
		finalURL = e.Response.URL
		return true
	})

	if err := p.Navigate(target); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", target, err)
	}
	waitResponse()
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("failed waiting for %s to load: %w", target, err)
	}

	if err := h.coord.OnNavigationCompleted(navCtx, visit, finalURL, headers); err != nil {
		return err
	}

	doc := newPageDocument(p, extractor.HostFromURL(finalURL))
	techs := h.sandbox.Detect(doc, h.db)
	ack, err := relay.Deliver(navCtx, techs)
	if err != nil {
		return err
	}
	log.WithField("technologies", len(ack.Technologies)).Info("page analyzed")
	return nil
}

// Close closes tab and drops its state
func (h *Host) Close(ctx context.Context, tab models.TabID) error {
	h.mu.Lock()
	page, ok := h.pages[tab]
	delete(h.pages, tab)
	h.mu.Unlock()

	h.relays.Detach(tab)
	if err := h.coord.OnTabClosed(ctx, tab); err != nil {
		return err
	}
	if ok {
		return page.Close()
	}
	return nil
}

func (h *Host) page(tab models.TabID) (*rod.Page, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	p, ok := h.pages[tab]
	return p, ok
}

// headerValues splits the newline joined values the protocol reports for
// repeated headers
func headerValues(h proto.NetworkHeaders) map[string][]string {
	out := make(map[string][]string, len(h))
	for name, value := range h {
		out[name] = strings.Split(value.Str(), "\n")
	}
	return out
}
