// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ShopNest Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for auth operation metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeValidationError    = "validation_error"
	OutcomeDuplicateEmail     = "duplicate_email"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInvalidSession     = "invalid_session"
	OutcomeStoreError         = "store_error"
)

// Metrics contains Prometheus metrics for auth operations. All record
// methods are nil-safe so an uninstrumented Service can pass nil.
type Metrics struct {
	Registrations *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	Validations   *prometheus.CounterVec
	HashDuration  prometheus.Histogram
}

// NewMetrics creates and registers auth metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userd_registrations_total",
				Help: "Total number of registration attempts by outcome",
			},
			[]string{"outcome"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userd_logins_total",
				Help: "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		Validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "userd_session_validations_total",
				Help: "Total number of session validations by outcome",
			},
			[]string{"outcome"},
		),
		HashDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "userd_password_hash_duration_seconds",
				Help:    "Histogram of argon2id password hashing latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(m.Registrations)
	reg.MustRegister(m.Logins)
	reg.MustRegister(m.Validations)
	reg.MustRegister(m.HashDuration)

	return m
}

// RecordRegistration increments the registration counter for an outcome.
func (m *Metrics) RecordRegistration(outcome string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(outcome).Inc()
}

// RecordLogin increments the login counter for an outcome.
func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}

// RecordValidation increments the session validation counter for an outcome.
func (m *Metrics) RecordValidation(outcome string) {
	if m == nil {
		return
	}
	m.Validations.WithLabelValues(outcome).Inc()
}

// ObserveHashDuration records the latency of one password hash computation.
func (m *Metrics) ObserveHashDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.HashDuration.Observe(d.Seconds())
}
