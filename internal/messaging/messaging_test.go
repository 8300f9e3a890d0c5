package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/reconciler"
	"github.com/mamamialezatoz/go-techstack/internal/signatures"
)

var domTechs = []models.Detection{
	{Name: "WordPress", Category: "cms", Confidence: 65, Version: "6.4", EvidenceLabels: []string{"Meta tag", "Script tag"}},
}

func startCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	db, err := signatures.Default()
	require.NoError(t, err)

	coord := NewCoordinator(reconciler.New(db, reconciler.WithBadgeSink(LogBadge{})), 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan error, 1)
	go func() { exited <- coord.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		<-exited
	})
	return coord
}

func names(detections []models.Detection) []string {
	out := make([]string, 0, len(detections))
	for _, d := range detections {
		out = append(out, d.Name)
	}
	return out
}

func TestCoordinator_EndToEnd(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)

	visit, err := coord.OnNavigationCommitted(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.VisitID{Tab: 1, Epoch: 1}, visit)

	_, err = coord.Query(ctx, 1)
	assert.ErrorIs(t, err, ErrNoEvidence)

	require.NoError(t, coord.OnNavigationCompleted(ctx, visit, "https://blog.example.com/", map[string][]string{"Server": {"nginx/1.18.0"}}))

	relay := NewContentRelay(visit, "blog.example.com", coord)
	ack, err := relay.Deliver(ctx, domTechs)
	require.NoError(t, err)
	assert.False(t, ack.Stale)
	assert.ElementsMatch(t, []string{"WordPress", "Nginx"}, names(ack.Technologies))

	latest, ok := relay.Latest()
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"WordPress", "Nginx"}, names(latest.Technologies))

	rec, err := coord.Query(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseComplete, rec.Phase)
	assert.Equal(t, "blog.example.com", rec.Domain)

	require.NoError(t, coord.OnTabClosed(ctx, 1))
	_, err = coord.Query(ctx, 1)
	assert.ErrorIs(t, err, ErrNoEvidence)
}

func TestCoordinator_StaleResultAfterNavigation(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)

	old, err := coord.OnNavigationCommitted(ctx, 2)
	require.NoError(t, err)
	oldRelay := NewContentRelay(old, "old.example", coord)

	next, err := coord.OnNavigationCommitted(ctx, 2)
	require.NoError(t, err)

	ack, err := oldRelay.Deliver(ctx, domTechs)
	require.NoError(t, err)
	assert.True(t, ack.Stale)

	_, err = coord.Query(ctx, 2)
	assert.ErrorIs(t, err, ErrNoEvidence)

	current, err := coord.CurrentVisit(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, next, current)

	_, err = NewContentRelay(next, "new.example", coord).Deliver(ctx, nil)
	require.NoError(t, err)
	rec, err := coord.Query(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, rec.Technologies)
	assert.Equal(t, "new.example", rec.Domain)
}

func TestCoordinator_BoundedCompletionBySweep(t *testing.T) {
	db, err := signatures.Default()
	require.NoError(t, err)
	coord := NewCoordinator(reconciler.New(db, reconciler.WithCompleteAfter(20*time.Millisecond)), 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = coord.Run(ctx) }()

	visit, err := coord.CurrentVisit(ctx, 3)
	require.NoError(t, err)
	_, err = coord.Send(ctx, Message{Kind: KindDOMResult, Visit: visit, Technologies: domTechs})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		rec, err := coord.Query(ctx, 3)
		return err == nil && rec.Phase == models.PhaseComplete
	}, time.Second, 10*time.Millisecond)
}

func TestCoordinator_Errors(t *testing.T) {
	db, err := signatures.Default()
	require.NoError(t, err)
	coord := NewCoordinator(reconciler.New(db), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		_ = coord.Run(ctx)
		close(exited)
	}()

	_, err = coord.Send(ctx, Message{Kind: "PING"})
	assert.Error(t, err)

	cancel()
	<-exited
	_, err = coord.Query(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCoordinatorStopped)
}

func TestRelays_QueryContent(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)
	relays := NewRelays()

	_, err := relays.QueryContent(ctx, 9)
	assert.ErrorIs(t, err, ErrHostUnavailable)

	visit, err := coord.OnNavigationCommitted(ctx, 9)
	require.NoError(t, err)
	relay := NewContentRelay(visit, "example.com", coord)
	relays.Attach(relay)

	_, err = relays.QueryContent(ctx, 9)
	assert.ErrorIs(t, err, ErrNoEvidence)

	_, err = relay.Deliver(ctx, domTechs)
	require.NoError(t, err)
	res, err := relays.QueryContent(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, visit, res.Visit)

	relays.Detach(9)
	_, err = relays.QueryContent(ctx, 9)
	assert.ErrorIs(t, err, ErrHostUnavailable)
}

func TestReader_PrefersContent(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)
	relays := NewRelays()

	visit, err := coord.OnNavigationCommitted(ctx, 1)
	require.NoError(t, err)
	relay := NewContentRelay(visit, "example.com", coord)
	relays.Attach(relay)
	_, err = relay.Deliver(ctx, domTechs)
	require.NoError(t, err)

	res, err := NewReader(relays, coord).Detections(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, SourceContent, res.Source)
	assert.Equal(t, []string{"WordPress"}, names(res.Technologies))
}

func TestReader_FallsBackToCoordinator(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)

	visit, err := coord.OnNavigationCommitted(ctx, 1)
	require.NoError(t, err)
	_, err = coord.Send(ctx, Message{Kind: KindDOMResult, Visit: visit, Domain: "example.com", Technologies: domTechs})
	require.NoError(t, err)

	res, err := NewReader(NewRelays(), coord).Detections(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, SourceCoordinator, res.Source)
	assert.Equal(t, visit, res.Visit)
}

type flakyContent struct {
	calls  int
	result ContentResult
}

func (f *flakyContent) QueryContent(ctx context.Context, tab models.TabID) (ContentResult, error) {
	f.calls++
	if f.calls == 1 {
		return ContentResult{}, ErrHostUnavailable
	}
	return f.result, nil
}

func TestReader_RetriesContentOnce(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)

	visit, err := coord.CurrentVisit(ctx, 4)
	require.NoError(t, err)

	content := &flakyContent{result: ContentResult{Visit: visit, Domain: "late.example", Technologies: domTechs}}
	reader := NewReader(content, coord)
	reader.RetryDelay = 5 * time.Millisecond

	res, err := reader.Detections(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, content.calls)
	assert.Equal(t, SourceContent, res.Source)
	assert.Equal(t, "late.example", res.Domain)
}

func TestReader_RefreshAndRetry(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)

	reader := NewReader(NewRelays(), coord)
	reader.RetryDelay = time.Millisecond

	_, err := reader.Detections(ctx, 7)
	assert.ErrorIs(t, err, ErrRefreshAndRetry)
	assert.Equal(t, "please refresh the page and try again", err.Error())
}

func TestReader_IgnoresSupersededContent(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)
	relays := NewRelays()

	old, err := coord.OnNavigationCommitted(ctx, 6)
	require.NoError(t, err)
	relay := NewContentRelay(old, "old.example", coord)
	relays.Attach(relay)
	_, err = relay.Deliver(ctx, domTechs)
	require.NoError(t, err)

	_, err = coord.OnNavigationCommitted(ctx, 6)
	require.NoError(t, err)

	reader := NewReader(relays, coord)
	reader.RetryDelay = time.Millisecond
	_, err = reader.Detections(ctx, 6)
	assert.ErrorIs(t, err, ErrRefreshAndRetry)
}

func TestReader_ContextCancelled(t *testing.T) {
	coord := startCoordinator(t)
	reader := NewReader(NewRelays(), coord)
	reader.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := reader.Detections(ctx, 1)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestReader_SameResultWhicheverSourceReportsFirst(t *testing.T) {
	ctx := context.Background()
	nginx := map[string][]string{"Server": {"nginx/1.18.0"}}

	read := func(headersFirst bool) Result {
		coord := startCoordinator(t)
		relays := NewRelays()

		visit, err := coord.OnNavigationCommitted(ctx, 1)
		require.NoError(t, err)
		relay := NewContentRelay(visit, "blog.example.com", coord)
		relays.Attach(relay)

		if headersFirst {
			require.NoError(t, coord.OnNavigationCompleted(ctx, visit, "https://blog.example.com/", nginx))
		}
		_, err = relay.Deliver(ctx, domTechs)
		require.NoError(t, err)
		if !headersFirst {
			require.NoError(t, coord.OnNavigationCompleted(ctx, visit, "https://blog.example.com/", nginx))
		}

		res, err := NewReader(relays, coord).Detections(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, SourceContent, res.Source)
		return res
	}

	domThenHeaders := read(false)
	assert.ElementsMatch(t, []string{"WordPress", "Nginx"}, names(domThenHeaders.Technologies))

	headersThenDOM := read(true)
	assert.ElementsMatch(t, names(headersThenDOM.Technologies), names(domThenHeaders.Technologies))
}

func TestCoordinator_StaleHeadersAfterNavigation(t *testing.T) {
	ctx := context.Background()
	coord := startCoordinator(t)

	old, err := coord.OnNavigationCommitted(ctx, 8)
	require.NoError(t, err)
	next, err := coord.OnNavigationCommitted(ctx, 8)
	require.NoError(t, err)

	err = coord.OnNavigationCompleted(ctx, old, "https://old.example/", map[string][]string{"Server": {"nginx/1.18.0"}})
	assert.ErrorIs(t, err, reconciler.ErrStaleVisit)

	_, err = coord.Query(ctx, 8)
	assert.ErrorIs(t, err, ErrNoEvidence, "stale headers must not create a record for the new visit")

	relay := NewContentRelay(next, "new.example", coord)
	ack, err := relay.Deliver(ctx, domTechs)
	require.NoError(t, err)
	assert.Equal(t, []string{"WordPress"}, names(ack.Technologies))
}
