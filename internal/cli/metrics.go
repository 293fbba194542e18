package cli

import (
	"log/slog"

	"github.com/tbroadley/sandpaper/internal/config"
	"github.com/tbroadley/sandpaper/internal/metrics"
	"github.com/tbroadley/sandpaper/internal/metrics/datadog"
	"github.com/tbroadley/sandpaper/internal/metrics/prompush"
)

// setupMetrics installs the configured metrics backend and returns the
// function that flushes it. A backend that fails to initialize leaves the
// no-op backend in place.
func setupMetrics(m config.Metrics, log *slog.Logger) (flush func()) {
	var (
		b   metrics.Backend
		err error
	)
	switch m.Backend {
	case "pushgateway":
		b, err = prompush.NewBackend(m.Job, m.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       m.DatadogAddr,
			Namespace:  "sandpaper.",
			GlobalTags: []string{"job:" + m.Job},
		})
	default:
		log.Debug("metrics: disabled", "backend", m.Backend)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics: backend init failed; using nop", "backend", m.Backend, "error", err)
		return func() {}
	}

	log.Debug("metrics: enabled", "backend", m.Backend, "job", m.Job)
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics: flush error", "error", err)
		}
	}
}
