package core

// metrics.go — Prometheus instrumentation shared by every component.
// Grounded on system_health_logging.go's HealthLogger (a registry plus a
// fixed set of named gauges/counters, MustRegister'd once at construction);
// scraped over HTTP by cmd/duxnetd's ops server (SPEC_FULL.md's dependency
// table row for prometheus/client_golang).

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the exported counters and gauges. The counters are driven by
// event-bus topics (see Subscribe). SchedulerQueueDepth, FundBalance,
// AuthFailures and ActiveNodes are registered and exported, but nothing in
// this module sets them, so they report zero.
type Metrics struct {
	registry *prometheus.Registry

	EscrowsCreated   prometheus.Counter
	EscrowsReleased  prometheus.Counter
	EscrowsRefunded  prometheus.Counter
	DisputesOpened   prometheus.Counter
	DisputesResolved prometheus.Counter

	SchedulerQueueDepth prometheus.Gauge
	TasksCompleted      prometheus.Counter
	TasksFailed         prometheus.Counter

	FundBalance    prometheus.Gauge
	AirdropsFired  prometheus.Counter
	AuthFailures   prometheus.Counter
	ActiveNodes    prometheus.Gauge
}

// NewMetrics builds and registers the full metric set against a fresh
// registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		EscrowsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_escrows_created_total",
			Help: "Total escrows created.",
		}),
		EscrowsReleased: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_escrows_released_total",
			Help: "Total escrows released to their provider.",
		}),
		EscrowsRefunded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_escrows_refunded_total",
			Help: "Total escrows refunded to their payer.",
		}),
		DisputesOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_disputes_opened_total",
			Help: "Total disputes opened.",
		}),
		DisputesResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_disputes_resolved_total",
			Help: "Total disputes resolved or rejected.",
		}),
		SchedulerQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duxnet_scheduler_queue_depth",
			Help: "Pending tasks across all priority queues.",
		}),
		TasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_tasks_completed_total",
			Help: "Total tasks that completed successfully.",
		}),
		TasksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_tasks_failed_total",
			Help: "Total tasks that failed, timed out or were cancelled.",
		}),
		FundBalance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duxnet_community_fund_balance",
			Help: "Current community fund balance, in minor currency units.",
		}),
		AirdropsFired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_airdrops_total",
			Help: "Total airdrop rounds triggered.",
		}),
		AuthFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duxnet_auth_failures_total",
			Help: "Total signature verification failures.",
		}),
		ActiveNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "duxnet_active_nodes",
			Help: "Number of nodes currently online or busy.",
		}),
	}

	reg.MustRegister(
		m.EscrowsCreated, m.EscrowsReleased, m.EscrowsRefunded,
		m.DisputesOpened, m.DisputesResolved,
		m.SchedulerQueueDepth, m.TasksCompleted, m.TasksFailed,
		m.FundBalance, m.AirdropsFired, m.AuthFailures, m.ActiveNodes,
	)
	return m
}

// Handler returns an http.Handler serving this registry's metrics in the
// Prometheus exposition format, mounted at /metrics by the ops server.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Subscribe wires m's counters to the event bus topics Broadcast already
// fires from the escrow, dispute, fund, and orchestrator components, so the
// orchestrator does not need to touch Metrics directly on every call.
func (m *Metrics) Subscribe() {
	Subscribe(TopicEscrowCreated, func(string, []byte) { m.EscrowsCreated.Inc() })
	Subscribe(TopicEscrowReleased, func(string, []byte) { m.EscrowsReleased.Inc() })
	Subscribe(TopicEscrowRefunded, func(string, []byte) { m.EscrowsRefunded.Inc() })
	Subscribe(TopicDisputeOpened, func(string, []byte) { m.DisputesOpened.Inc() })
	Subscribe(TopicDisputeResolved, func(string, []byte) { m.DisputesResolved.Inc() })
	Subscribe(TopicFundAirdrop, func(string, []byte) { m.AirdropsFired.Inc() })
	Subscribe(TopicTaskCompleted, func(string, []byte) { m.TasksCompleted.Inc() })
	Subscribe(TopicTaskFailed, func(string, []byte) { m.TasksFailed.Inc() })
}
