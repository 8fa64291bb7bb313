package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
)

var (
	FlowsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventflow",
		Name:      "flows_started_total",
		Help:      "Flow instances created",
	}, []string{"flow"})

	FlowsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventflow",
		Name:      "flows_finished_total",
		Help:      "Flow instances ended, by outcome",
	}, []string{"flow", "outcome"})

	TasksDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventflow",
		Name:      "tasks_dispatched_total",
		Help:      "Task executions dispatched",
	}, []string{"flow"})

	FlowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "eventflow",
		Name:      "flow_duration_seconds",
		Help:      "Time from flow start to flow end",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	}, []string{"flow"})
)

var ActiveInstances = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "eventflow",
	Name:      "instances_active",
	Help:      "Flow instances currently held in memory",
})
