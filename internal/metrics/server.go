// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package metrics

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gsmcore/gsmcore/internal/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readTimeout = 3 * time.Second

// CreateMetricsServer starts the optional Prometheus /metrics endpoint.
// It is an ambient observability concern, not a protocol component, so it
// never blocks the caller on success: it binds the listener synchronously
// (so callers learn about a bad bind address right away) and then serves
// in a background goroutine.
func CreateMetricsServer(cfg *config.Config) error {
	if !cfg.Metrics.Enabled {
		return nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.Metrics.Bind, cfg.Metrics.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind metrics server on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: readTimeout,
	}

	go func() {
		_ = server.Serve(listener)
	}()

	return nil
}
