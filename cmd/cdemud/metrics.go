package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/cdemu-project/cdemu-go/internal/orchestrator"
)

// driveCollector renders an Orchestrator's live drive state as Prometheus
// metrics on every scrape, the same ConstMetric-per-scrape shape the
// teacher's own metricCollector uses, just gathered from live state instead
// of a one-shot snapshot.
type driveCollector struct {
	o *orchestrator.Orchestrator

	drivesTotal *prometheus.Desc
	driveLoaded *prometheus.Desc
}

func newDriveCollector(o *orchestrator.Orchestrator) *driveCollector {
	return &driveCollector{
		o: o,
		drivesTotal: prometheus.NewDesc(
			"cdemu_drives_total",
			"Number of virtual drives this daemon manages",
			nil, nil,
		),
		driveLoaded: prometheus.NewDesc(
			"cdemu_drive_loaded",
			"Whether a drive currently has a medium loaded",
			[]string{"drive"}, nil,
		),
	}
}

func (c *driveCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.drivesTotal
	ch <- c.driveLoaded
}

func (c *driveCollector) Collect(ch chan<- prometheus.Metric) {
	statuses, err := c.o.EnumerateDrives()
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.drivesTotal, prometheus.GaugeValue, float64(len(statuses)))
	for _, s := range statuses {
		loaded := 0.0
		if s.Loaded {
			loaded = 1.0
		}
		ch <- prometheus.MustNewConstMetric(c.driveLoaded, prometheus.GaugeValue, loaded, fmt.Sprint(s.ID))
	}
}

// startMetricsServer registers a driveCollector against a pedantic registry
// and serves it at /metrics on addr, the same registry discipline the
// teacher's metric.go applies before writing to stdout.
func startMetricsServer(addr string, o *orchestrator.Orchestrator) *http.Server {
	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(newDriveCollector(o))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Error("metrics server stopped")
		}
	}()
	logrus.WithField("addr", addr).Info("serving /metrics")
	return srv
}
