package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sync service
type Metrics struct {
	// Task metrics
	TasksTotal   *prometheus.CounterVec
	TaskDuration *prometheus.HistogramVec

	// Login metrics
	LoginsTotal     prometheus.Counter
	LoginFailures   *prometheus.CounterVec
	CodeWaitTimeout prometheus.Counter

	// Dialog info sync metrics
	DialogsUpserted prometheus.Counter
	DialogsCreated  prometheus.Counter

	// Replication metrics
	MessagesReplicated     prometheus.Counter
	MessagesSkippedService prometheus.Counter
	MessagesSkippedEmpty   prometheus.Counter
	ReplicationErrors      prometheus.Counter
	RulesProcessed         *prometheus.CounterVec
}

var (
	// DefaultMetrics is the default metrics instance
	DefaultMetrics *Metrics
	once           sync.Once
)

// GetDefaultMetrics returns the singleton metrics instance
func GetDefaultMetrics() *Metrics {
	once.Do(func() {
		DefaultMetrics = NewMetrics()
	})
	return DefaultMetrics
}

func init() {
	GetDefaultMetrics()
}

// NewMetrics creates a new Metrics instance with all counters and histograms
func NewMetrics() *Metrics {
	return &Metrics{
		TasksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgsync_tasks_total",
				Help: "Total number of task executions by task name and outcome",
			},
			[]string{"task", "outcome"},
		),
		TaskDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tgsync_task_duration_seconds",
				Help:    "Task execution duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"task"},
		),
		LoginsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_logins_total",
			Help: "Total number of successful account logins",
		}),
		LoginFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgsync_login_failures_total",
				Help: "Total number of failed account logins",
			},
			[]string{"reason"},
		),
		CodeWaitTimeout: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_code_wait_timeouts_total",
			Help: "Total number of one-time-code waits that timed out",
		}),
		DialogsUpserted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_dialogs_upserted_total",
			Help: "Total number of dialog rows written by info sync",
		}),
		DialogsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_dialogs_created_total",
			Help: "Total number of new dialog rows created by info sync",
		}),
		MessagesReplicated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_messages_replicated_total",
			Help: "Total number of messages copied to target dialogs",
		}),
		MessagesSkippedService: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_messages_skipped_service_total",
			Help: "Total number of service messages skipped during replication",
		}),
		MessagesSkippedEmpty: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_messages_skipped_empty_total",
			Help: "Total number of messages without text content skipped during replication",
		}),
		ReplicationErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tgsync_replication_errors_total",
			Help: "Total number of per-message replication failures",
		}),
		RulesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tgsync_rules_processed_total",
				Help: "Total number of replication rule runs by outcome",
			},
			[]string{"outcome"},
		),
	}
}
