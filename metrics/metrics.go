// metrics.go - Prometheus instrumentation for the simulator process.
// Copyright (C) 2017  Yawning Angel.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package metrics tracks the observable state of the simulator process
// itself -- records emitted, users completed, wall-clock spent -- not
// statistical inference on the simulation's output.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector bundles the counters and gauges exposed for one run.
type Collector struct {
	RecordsEmitted prometheus.Counter
	UsersCompleted *prometheus.CounterVec
	RunDuration    prometheus.Gauge

	registry *prometheus.Registry
	server   *http.Server
}

// New builds a fresh Collector registered against its own private
// registry, so a run never collides with default-registry metrics
// from an embedding process.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		RecordsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "routesim_records_emitted_total",
			Help: "Total number of output records emitted across both passes.",
		}),
		UsersCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "routesim_users_completed_total",
			Help: "Number of users that finished a pass, labeled by pass.",
		}, []string{"pass"}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "routesim_run_duration_seconds",
			Help: "Wall-clock duration of the most recently completed run.",
		}),
		registry: reg,
	}
}

// Serve exposes the collector's registry over HTTP at addr until ctx
// is canceled. It returns once the server has shut down.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{}))
	c.server = &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = c.server.Shutdown(shutdownCtx)
	return <-errCh
}
