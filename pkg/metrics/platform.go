package metrics

import "github.com/prometheus/client_golang/prometheus"

// PlatformMetrics covers the video generation and billing counters.
type PlatformMetrics struct {
	generationsSubmitted  *prometheus.CounterVec
	generationsCompleted  prometheus.Counter
	generationsFailed     prometheus.Counter
	creditsDebited        prometheus.Counter
	creditsRefunded       prometheus.Counter
	creditsGranted        prometheus.Counter
	webhookEventsHandled  *prometheus.CounterVec
	webhookEventsSkipped  *prometheus.CounterVec
	webhookEventsRejected *prometheus.CounterVec
}

// NewPlatformMetrics registers all platform counters on the registerer.
func NewPlatformMetrics(reg prometheus.Registerer) *PlatformMetrics {
	if reg == nil {
		return &PlatformMetrics{}
	}

	generationsSubmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "generations_submitted_total",
		Help: "Video generation submissions accepted by the provider.",
	}, []string{"model"})
	generationsCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generations_completed_total",
		Help: "Video generations that reached completed.",
	})
	generationsFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "generations_failed_total",
		Help: "Video generations that reached failed.",
	})
	creditsDebited := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credits_debited_total",
		Help: "Credits debited for generation submissions.",
	})
	creditsRefunded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credits_refunded_total",
		Help: "Credits refunded after failed generations.",
	})
	creditsGranted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credits_granted_total",
		Help: "Credits granted from completed purchases.",
	})
	webhookEventsHandled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_handled_total",
		Help: "Webhook events fully processed.",
	}, []string{"source"})
	webhookEventsSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_skipped_total",
		Help: "Webhook events acknowledged without side effects.",
	}, []string{"source", "reason"})
	webhookEventsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_rejected_total",
		Help: "Webhook events rejected before processing.",
	}, []string{"source", "reason"})

	reg.MustRegister(
		generationsSubmitted, generationsCompleted, generationsFailed,
		creditsDebited, creditsRefunded, creditsGranted,
		webhookEventsHandled, webhookEventsSkipped, webhookEventsRejected,
	)

	return &PlatformMetrics{
		generationsSubmitted:  generationsSubmitted,
		generationsCompleted:  generationsCompleted,
		generationsFailed:     generationsFailed,
		creditsDebited:        creditsDebited,
		creditsRefunded:       creditsRefunded,
		creditsGranted:        creditsGranted,
		webhookEventsHandled:  webhookEventsHandled,
		webhookEventsSkipped:  webhookEventsSkipped,
		webhookEventsRejected: webhookEventsRejected,
	}
}

// IncGenerationSubmitted counts a provider-accepted submission per model.
func (m *PlatformMetrics) IncGenerationSubmitted(model string) {
	if m == nil || m.generationsSubmitted == nil {
		return
	}
	m.generationsSubmitted.WithLabelValues(normalizeLabel(model)).Inc()
}

// IncGenerationCompleted counts a job reaching completed.
func (m *PlatformMetrics) IncGenerationCompleted() {
	if m == nil || m.generationsCompleted == nil {
		return
	}
	m.generationsCompleted.Inc()
}

// IncGenerationFailed counts a job reaching failed.
func (m *PlatformMetrics) IncGenerationFailed() {
	if m == nil || m.generationsFailed == nil {
		return
	}
	m.generationsFailed.Inc()
}

// AddCreditsDebited accumulates debited credits.
func (m *PlatformMetrics) AddCreditsDebited(amount int) {
	if m == nil || m.creditsDebited == nil || amount <= 0 {
		return
	}
	m.creditsDebited.Add(float64(amount))
}

// AddCreditsRefunded accumulates refunded credits.
func (m *PlatformMetrics) AddCreditsRefunded(amount int) {
	if m == nil || m.creditsRefunded == nil || amount <= 0 {
		return
	}
	m.creditsRefunded.Add(float64(amount))
}

// AddCreditsGranted accumulates purchased credits granted via webhook.
func (m *PlatformMetrics) AddCreditsGranted(amount int) {
	if m == nil || m.creditsGranted == nil || amount <= 0 {
		return
	}
	m.creditsGranted.Add(float64(amount))
}

// IncWebhookHandled counts a webhook event that produced side effects.
func (m *PlatformMetrics) IncWebhookHandled(source string) {
	if m == nil || m.webhookEventsHandled == nil {
		return
	}
	m.webhookEventsHandled.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncWebhookSkipped counts an acknowledged-but-ignored webhook event.
func (m *PlatformMetrics) IncWebhookSkipped(source, reason string) {
	if m == nil || m.webhookEventsSkipped == nil {
		return
	}
	m.webhookEventsSkipped.WithLabelValues(normalizeLabel(source), normalizeLabel(reason)).Inc()
}

// IncWebhookRejected counts a webhook event rejected before processing.
func (m *PlatformMetrics) IncWebhookRejected(source, reason string) {
	if m == nil || m.webhookEventsRejected == nil {
		return
	}
	m.webhookEventsRejected.WithLabelValues(normalizeLabel(source), normalizeLabel(reason)).Inc()
}
