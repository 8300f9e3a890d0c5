package messaging

import (
	"github.com/mamamialezatoz/go-techstack/internal/logger"
	"github.com/mamamialezatoz/go-techstack/internal/models"
	"github.com/mamamialezatoz/go-techstack/internal/reconciler"
)

var _ reconciler.BadgeSink = LogBadge{}

// LogBadge is a badge sink that logs the count instead of drawing it
type LogBadge struct{}

func (LogBadge) SetBadge(tab models.TabID, count int) {
	if count == 0 {
		logger.WithField("tab", tab).Debug("badge cleared")
		return
	}
	logger.WithField("tab", tab).Debugf("badge set to %d", count)
}
