package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botsmith_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccountsProvisioned counts account provisioning outcomes (success|rollback).
	AccountsProvisioned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botsmith_accounts_provisioned_total",
			Help: "Total number of account provisioning attempts",
		},
		[]string{"result"},
	)

	// InvitesIssued counts collaborator invites by role.
	InvitesIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botsmith_invites_issued_total",
			Help: "Total number of collaborator invites issued",
		},
		[]string{"role"},
	)

	// ActionExecutions counts webhook action executions and their outcome.
	ActionExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botsmith_action_executions_total",
			Help: "Total number of webhook action executions",
		},
		[]string{"type", "result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botsmith_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
