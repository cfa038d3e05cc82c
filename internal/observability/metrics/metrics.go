// Package metrics exposes prometheus instruments for the lifecycle core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics captures lifecycle and integrity health signals.
type Metrics struct {
	transitions        *prometheus.CounterVec
	auditAppendFailed  prometheus.Counter
	orphanCreditNotes  prometheus.Counter
	verificationChecks *prometheus.CounterVec
}

// New registers the application instruments on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicemonk_invoice_transitions_total",
			Help: "Invoice lifecycle transitions by action and outcome.",
		}, []string{"action", "outcome"}),
		auditAppendFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicemonk_audit_append_failures_total",
			Help: "Audit log append failures. Non-zero erodes the compliance trail.",
		}),
		orphanCreditNotes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoicemonk_orphan_credit_notes_total",
			Help: "Credit notes found referencing a non-voided invoice.",
		}),
		verificationChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invoicemonk_verification_checks_total",
			Help: "Public hash verifications by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.transitions, m.auditAppendFailed, m.orphanCreditNotes, m.verificationChecks)
	}
	return m
}

func (m *Metrics) ObserveTransition(action string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.transitions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveAuditAppendFailure() {
	m.auditAppendFailed.Inc()
}

func (m *Metrics) ObserveOrphanCreditNote() {
	m.orphanCreditNotes.Inc()
}

func (m *Metrics) ObserveVerification(valid bool) {
	result := "valid"
	if !valid {
		result = "mismatch"
	}
	m.verificationChecks.WithLabelValues(result).Inc()
}
