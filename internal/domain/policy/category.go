package policy

// Category classifies data under a retention regime. Every data source and
// every retention policy is keyed by exactly one category.
type Category string

const (
	CategoryLearnerIdentity    Category = "learner_identity"
	CategorySessionLogs        Category = "session_logs"
	CategoryAssessmentRecords  Category = "assessment_records"
	CategoryBehavioralAnalytics Category = "behavioral_analytics"
	CategoryBiometricAudio     Category = "biometric_audio"
	CategoryAIInteractionLogs  Category = "ai_interaction_logs"
	CategoryPaymentRecords     Category = "payment_records"
	CategoryAuthLogs           Category = "auth_logs"
	CategorySecurityAuditLogs  Category = "security_audit_logs"
	CategoryUserContent        Category = "user_content"
	CategoryNotificationLogs   Category = "notification_logs"
	CategorySyncLogs           Category = "sync_logs"
	CategoryMetrics            Category = "metrics"
	CategorySupportTickets     Category = "support_tickets"
)

var allCategories = []Category{
	CategoryLearnerIdentity,
	CategorySessionLogs,
	CategoryAssessmentRecords,
	CategoryBehavioralAnalytics,
	CategoryBiometricAudio,
	CategoryAIInteractionLogs,
	CategoryPaymentRecords,
	CategoryAuthLogs,
	CategorySecurityAuditLogs,
	CategoryUserContent,
	CategoryNotificationLogs,
	CategorySyncLogs,
	CategoryMetrics,
	CategorySupportTickets,
}

func Categories() []Category {
	out := make([]Category, len(allCategories))
	copy(out, allCategories)
	return out
}

func (c Category) Valid() bool {
	for _, known := range allCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Strategy is the disposal mechanism applied to expired records.
type Strategy string

const (
	StrategySoftDelete        Strategy = "soft_delete"
	StrategyHardDelete        Strategy = "hard_delete"
	StrategyAnonymize         Strategy = "anonymize"
	StrategyAggregateAndDelete Strategy = "aggregate_and_delete"
	StrategyArchiveAndDelete  Strategy = "archive_and_delete"
)

func (s Strategy) Valid() bool {
	switch s {
	case StrategySoftDelete, StrategyHardDelete, StrategyAnonymize,
		StrategyAggregateAndDelete, StrategyArchiveAndDelete:
		return true
	}
	return false
}

// Framework is a regulatory regime a policy is designed to satisfy.
type Framework string

const (
	FrameworkGDPR   Framework = "gdpr"
	FrameworkCOPPA  Framework = "coppa"
	FrameworkFERPA  Framework = "ferpa"
	FrameworkCCPA   Framework = "ccpa"
	FrameworkPCIDSS Framework = "pci_dss"
	FrameworkSOC2   Framework = "soc2"
)
