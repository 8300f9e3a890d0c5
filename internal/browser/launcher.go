// Package browser drives a headless Chromium through go-rod and feeds page
// and navigation events into the coordinator.
package browser

import (
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/mamamialezatoz/go-techstack/internal/config"
	"github.com/mamamialezatoz/go-techstack/internal/logger"
)

// Launch starts a browser according to cfg and connects to it. Without an
// explicit binary the system browser is used, falling back to the one go-rod
// downloads.
func Launch(cfg config.BrowserConfig) (*rod.Browser, error) {
	bin := cfg.Bin
	if bin == "" {
		if path, ok := launcher.LookPath(); ok {
			bin = path
		} else {
			logger.Infof("no system browser found, downloading Chromium")
			path, err := launcher.NewBrowser().Get()
			if err != nil {
				return nil, fmt.Errorf("failed to download browser: %w", err)
			}
			bin = path
		}
	}
	logger.Debugf("launching browser %s (headless=%t)", bin, cfg.Headless)

	controlURL, err := launcher.New().
		Bin(bin).
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("disable-extensions").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	return b, nil
}
