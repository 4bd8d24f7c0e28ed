// Package metrics defines the Prometheus metrics of the account service.
//
// Build one Avatar per registry with NewAvatar. A nil *Avatar is valid and
// records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "authserver"

// Resolution sources.
const (
	SourceGravatar  = "gravatar"
	SourceUIAvatars = "uiavatars"
	SourceUpload    = "upload"
)

// Outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Avatar groups the avatar pipeline counters.
type Avatar struct {
	// resolutions counts avatar sourcing attempts.
	// Labels:
	//   - source: gravatar, uiavatars or upload
	//   - outcome: success, not_found or error
	resolutions *prometheus.CounterVec
	// removals counts stored avatar deletions, labelled success or error.
	removals *prometheus.CounterVec
}

// NewAvatar registers the avatar counters with reg.
func NewAvatar(reg prometheus.Registerer) *Avatar {
	factory := promauto.With(reg)
	return &Avatar{
		resolutions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "avatar_resolutions_total",
				Help:      "Total number of avatar sourcing attempts, by source and outcome.",
			},
			[]string{"source", "outcome"},
		),
		removals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "avatar_removals_total",
				Help:      "Total number of stored avatar deletions, by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

// Resolution records one sourcing attempt.
func (a *Avatar) Resolution(source, outcome string) {
	if a == nil {
		return
	}
	a.resolutions.WithLabelValues(source, outcome).Inc()
}

// Removal records one deletion attempt.
func (a *Avatar) Removal(outcome string) {
	if a == nil {
		return
	}
	a.removals.WithLabelValues(outcome).Inc()
}
