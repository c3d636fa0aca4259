// SPDX-License-Identifier: AGPL-3.0-or-later
// gsmcore - a GSM/GPRS Um-side protocol core

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector exported by the protocol core.
// One instance is owned by the stack and threaded into every subsystem that
// needs to record a counter.
type Metrics struct {
	// NS sublayer
	NSAliveRetriesTotal *prometheus.CounterVec
	NSVCBlockedTotal    *prometheus.CounterVec
	NSPDUsTotal         *prometheus.CounterVec

	// BSSGP
	BSSGPStatusSentTotal *prometheus.CounterVec
	BSSGPPDUsTotal       *prometheus.CounterVec

	// SMC/SMR
	SMRetransmitsTotal *prometheus.CounterVec
	SMErrorsTotal      *prometheus.CounterVec

	// Scheduler
	SchedQueueDepth         *prometheus.GaugeVec
	SchedBurstOverflowTotal *prometheus.CounterVec
	SchedFillerUsedTotal    *prometheus.CounterVec
	SchedMeasAvgToA256      *prometheus.GaugeVec

	// Resource exhaustion.
	ResourceExhaustionTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers every collector.
func NewMetrics() *Metrics {
	m := &Metrics{
		NSAliveRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_ns_alive_retries_total",
			Help: "Number of NS-ALIVE retries sent per NSVC.",
		}, []string{"nsei"}),
		NSVCBlockedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_nsvc_blocked_total",
			Help: "Number of times an NSVC transitioned to BLOCKED.",
		}, []string{"nsei", "reason"}),
		NSPDUsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_ns_pdus_total",
			Help: "NS PDUs processed, by PDU type.",
		}, []string{"pdu_type"}),
		BSSGPStatusSentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_bssgp_status_sent_total",
			Help: "Outgoing BSSGP STATUS PDUs, by cause.",
		}, []string{"cause"}),
		BSSGPPDUsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_bssgp_pdus_total",
			Help: "BSSGP PDUs dispatched, by PDU type.",
		}, []string{"pdu_type"}),
		SMRetransmitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_sm_retransmits_total",
			Help: "CP-DATA/RP-DATA retransmissions, by state machine.",
		}, []string{"machine"}),
		SMErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_sm_errors_total",
			Help: "State-machine errors, by component and cause.",
		}, []string{"component", "cause"}),
		SchedQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gsmcore_sched_queue_depth",
			Help: "Pending burst count per timeslot.",
		}, []string{"tn"}),
		SchedBurstOverflowTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_sched_burst_overflow_total",
			Help: "Bursts dropped because the scheduler arena was full.",
		}, []string{"tn"}),
		SchedFillerUsedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_sched_filler_used_total",
			Help: "Pulls that fell back to the filler table.",
		}, []string{"tn"}),
		SchedMeasAvgToA256: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gsmcore_sched_meas_avg_toa256",
			Help: "Most recent downlink timing-of-arrival average, in 256ths of a symbol.",
		}, []string{"lchan"}),
		ResourceExhaustionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gsmcore_resource_exhaustion_total",
			Help: "Resource exhaustion events, by resource.",
		}, []string{"resource"}),
	}
	m.register()
	return m
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.NSAliveRetriesTotal,
		m.NSVCBlockedTotal,
		m.NSPDUsTotal,
		m.BSSGPStatusSentTotal,
		m.BSSGPPDUsTotal,
		m.SMRetransmitsTotal,
		m.SMErrorsTotal,
		m.SchedQueueDepth,
		m.SchedBurstOverflowTotal,
		m.SchedFillerUsedTotal,
		m.SchedMeasAvgToA256,
		m.ResourceExhaustionTotal,
	)
}
