// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Thermoquad/linkscope/pkg/link"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// linkMetrics mirrors link.Statistics as Prometheus counters
type linkMetrics struct {
	Frames        *prometheus.CounterVec // labels: function
	Errors        *prometheus.CounterVec // labels: kind
	Anomalies     *prometheus.CounterVec // labels: type
	PayloadBytes  prometheus.Counter
	BytesReceived prometheus.Counter
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newLinkMetrics(reg prometheus.Registerer) *linkMetrics {
	m := &linkMetrics{
		Frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dnp3_link_frames_total",
			Help: "Link frames decoded, by function.",
		}, []string{"function"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dnp3_link_errors_total",
			Help: "Framing errors, by kind.",
		}, []string{"kind"}),
		Anomalies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dnp3_link_anomalies_total",
			Help: "Semantic anomalies in well-formed frames, by type.",
		}, []string{"type"}),
		PayloadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnp3_link_user_data_bytes_total",
			Help: "User data bytes carried by decoded frames.",
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dnp3_link_bytes_received_total",
			Help: "Raw bytes read from the connection.",
		}),
	}
	reg.MustRegister(m.Frames, m.Errors, m.Anomalies, m.PayloadBytes, m.BytesReceived)
	return m
}

func (m *linkMetrics) observeFrame(h link.Header, payloadLen int, anomalies []link.ValidationError) {
	if m == nil {
		return
	}
	m.Frames.WithLabelValues(h.Function().Code().String()).Inc()
	m.PayloadBytes.Add(float64(payloadLen))
	for _, a := range anomalies {
		m.Anomalies.WithLabelValues(a.Type.String()).Inc()
	}
}

func (m *linkMetrics) observeError(err link.ParseError) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(err.Kind.String()).Inc()
}

func (m *linkMetrics) observeBytes(n int) {
	if m == nil {
		return
	}
	m.BytesReceived.Add(float64(n))
}

// serveMetrics exposes reg on addr until ctx is cancelled
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}
