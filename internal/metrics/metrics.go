// Package metrics 服务端的 prometheus 指标
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "goredis"

type Metrics struct {
	registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsRejected prometheus.Counter
	ConnectionsClosed   *prometheus.CounterVec // reason
	CommandsProcessed   prometheus.Counter
	ProtocolErrors      prometheus.Counter
	NetInputBytes       prometheus.Counter
	NetOutputBytes      prometheus.Counter
	WriteCapHits        prometheus.Counter
}

// New 每次创建独立的 registry，测试之间互不影响
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "connections_accepted_total",
			Help:      "Connections accepted by the listener",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "connections_rejected_total",
			Help:      "Connections rejected because maxclients was reached",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "connections_closed_total",
			Help:      "Connections closed, by reason",
		}, []string{"reason"}),
		CommandsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cmd",
			Name:      "processed_total",
			Help:      "Commands dispatched",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cmd",
			Name:      "protocol_errors_total",
			Help:      "Requests rejected by the protocol decoder",
		}),
		NetInputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "input_bytes_total",
			Help:      "Bytes read from clients",
		}),
		NetOutputBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "output_bytes_total",
			Help:      "Bytes written to clients",
		}),
		WriteCapHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "net",
			Name:      "write_cap_hits_total",
			Help:      "Write events stopped early by the per-event write cap",
		}),
	}
	m.registry.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsRejected,
		m.ConnectionsClosed,
		m.CommandsProcessed,
		m.ProtocolErrors,
		m.NetInputBytes,
		m.NetOutputBytes,
		m.WriteCapHits,
	)
	return m
}

// RegisterGauge 注册一个在抓取时计算的 gauge
func (m *Metrics) RegisterGauge(subsystem, name, help string, fn func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, fn))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 在 addr 上暴露 /metrics，ctx 结束时关闭
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
