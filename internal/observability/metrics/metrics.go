package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	VaultRegistrationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_registrations_total",
			Help: "Total number of vault registration attempts.",
		},
		[]string{"result"},
	)

	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logins_total",
			Help: "Total number of login attempts.",
		},
		[]string{"result"},
	)

	PowChallengesIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pow_challenges_issued_total",
			Help: "Total number of proof-of-work challenges issued.",
		},
	)

	PowVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pow_verifications_total",
			Help: "Total number of proof-of-work verification attempts by outcome.",
		},
		[]string{"reason"},
	)

	FederationVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "federation_verifications_total",
			Help: "Total number of cross-domain ownership verifications.",
		},
		[]string{"result"},
	)

	EngagementKeysDerivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engagement_keys_derived_total",
			Help: "Total number of engagement keys derived, by purpose.",
		},
		[]string{"purpose"},
	)

	MessagesEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_enqueued_total",
			Help: "Total number of inbound messages by outcome.",
		},
		[]string{"result"},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		VaultRegistrationsTotal,
		LoginsTotal,
		PowChallengesIssuedTotal,
		PowVerificationsTotal,
		FederationVerificationsTotal,
		EngagementKeysDerivedTotal,
		MessagesEnqueuedTotal,
	)
}
