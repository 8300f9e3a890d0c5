package messaging

import (
	"context"
	"errors"
	"time"

	"github.com/mamamialezatoz/go-techstack/internal/detection"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
)

// DefaultRetryDelay is the wait before the single retry of the content query
const DefaultRetryDelay = time.Second

// ContentQuerier is the preferred source of a reader
type ContentQuerier interface {
	QueryContent(ctx context.Context, tab models.TabID) (ContentResult, error)
}

// CoordinatorQuerier is the fallback source of a reader
type CoordinatorQuerier interface {
	Query(ctx context.Context, tab models.TabID) (*models.VisitRecord, error)
	CurrentVisit(ctx context.Context, tab models.TabID) (models.VisitID, error)
}

// Source names where a reader result came from
type Source string

const (
	SourceContent     Source = "content"
	SourceCoordinator Source = "coordinator"
)

// Result is what a reader returns for a tab
type Result struct {
	Visit        models.VisitID
	Domain       string
	Technologies []models.Detection
	Source       Source
}

// Reader fetches the detections of a tab the way a popup would: ask the
// content context, fall back to the coordinator, retry the content context
// once after RetryDelay and give up with ErrRefreshAndRetry.
type Reader struct {
	content    ContentQuerier
	coord      CoordinatorQuerier
	RetryDelay time.Duration
}

// NewReader creates a reader with the default retry delay
func NewReader(content ContentQuerier, coord CoordinatorQuerier) *Reader {
	return &Reader{content: content, coord: coord, RetryDelay: DefaultRetryDelay}
}

// Detections returns the latest detections for tab. Results are only ever
// returned for the tab's current visit.
func (r *Reader) Detections(ctx context.Context, tab models.TabID) (Result, error) {
	res, err := r.fromContent(ctx, tab)
	if err == nil {
		return res, nil
	}
	if !recoverable(err) {
		return Result{}, err
	}
	logger.WithField("tab", tab).Debugf("content query failed, asking coordinator: %v", err)

	rec, err := r.coord.Query(ctx, tab)
	if err == nil {
		return Result{
			Visit:        rec.Visit,
			Domain:       rec.Domain,
			Technologies: rec.Technologies,
			Source:       SourceCoordinator,
		}, nil
	}
	if !recoverable(err) {
		return Result{}, err
	}

	timer := time.NewTimer(r.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-timer.C:
	}

	res, err = r.fromContent(ctx, tab)
	if err == nil {
		return res, nil
	}
	if !recoverable(err) {
		return Result{}, err
	}
	return Result{}, ErrRefreshAndRetry
}

// fromContent answers from the content context. Headers that reached the
// coordinator after the DOM result was acknowledged are merged in, so the
// answer does not depend on which source reported first.
func (r *Reader) fromContent(ctx context.Context, tab models.TabID) (Result, error) {
	res, err := r.content.QueryContent(ctx, tab)
	if err != nil {
		return Result{}, err
	}

	current, err := r.coord.CurrentVisit(ctx, tab)
	if err != nil {
		return Result{}, err
	}
	if res.Visit != current {
		return Result{}, ErrHostUnavailable
	}

	techs := res.Technologies
	rec, err := r.coord.Query(ctx, tab)
	switch {
	case err == nil && rec.Visit == res.Visit:
		techs = detection.Merge(res.Technologies, rec.Technologies)
	case err != nil && !errors.Is(err, ErrNoEvidence):
		return Result{}, err
	}

	return Result{
		Visit:        res.Visit,
		Domain:       res.Domain,
		Technologies: techs,
		Source:       SourceContent,
	}, nil
}

func recoverable(err error) bool {
	return errors.Is(err, ErrNoEvidence) || errors.Is(err, ErrHostUnavailable)
}
