package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/prospekt-crawler/internal/metrics"
	"github.com/JakeFAU/prospekt-crawler/internal/progress"
)

// PrometheusSink turns crawl progress into Prometheus collectors.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	shopsFound    prometheus.Counter

	fetchRequests *prometheus.CounterVec
	fetchBytes    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec

	recordsExtracted *prometheus.CounterVec
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flyers_crawl_runs_started_total",
			Help: "Crawl runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyers_crawl_runs_completed_total",
			Help: "Crawl runs completed partitioned by result.",
		}, []string{"result"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flyers_crawl_run_duration_seconds",
			Help:    "Wall time per crawl run.",
			Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"result"}),
		shopsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flyers_shops_discovered_total",
			Help: "Shop detail links discovered on category pages.",
		}),
		fetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyers_fetch_requests_total",
			Help: "Detail page fetches partitioned by site and status class.",
		}, []string{"site", "status_class"}),
		fetchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyers_fetch_bytes_total",
			Help: "Bytes downloaded per site.",
		}, []string{"site"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flyers_fetch_duration_seconds",
			Help:    "Detail page fetch duration partitioned by site and status class.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"site", "status_class"}),
		recordsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flyers_records_extracted_total",
			Help: "Flyer records extracted partitioned by shop.",
		}, []string{"shop"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runDuration,
		s.shopsFound,
		s.fetchRequests,
		s.fetchBytes,
		s.fetchDuration,
		s.recordsExtracted,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch. Collectors are safe for
// concurrent use, so this is too.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageCrawlStart:
			s.runsStarted.Inc()
		case progress.StageLinksDiscovered:
			s.shopsFound.Add(float64(evt.Count))
		case progress.StageFetchDone:
			s.observeFetch(evt)
		case progress.StageExtractDone:
			s.recordsExtracted.WithLabelValues(evt.Shop).Add(float64(evt.Count))
		case progress.StageCrawlDone:
			s.observeRun(evt, "success")
		case progress.StageCrawlError:
			s.observeRun(evt, "error")
		}
	}
	return nil
}

func (s *PrometheusSink) observeRun(evt progress.Event, result string) {
	s.runsCompleted.WithLabelValues(result).Inc()
	if evt.Dur > 0 {
		s.runDuration.WithLabelValues(result).Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) observeFetch(evt progress.Event) {
	site := metrics.SanitizeSite(evt.URL)
	statusClass := string(evt.StatusClass)
	if statusClass == "" {
		statusClass = string(progress.StatusOther)
	}
	s.fetchRequests.WithLabelValues(site, statusClass).Inc()
	if evt.Bytes > 0 {
		s.fetchBytes.WithLabelValues(site).Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.fetchDuration.WithLabelValues(site, statusClass).Observe(evt.Dur.Seconds())
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
