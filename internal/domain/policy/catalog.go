package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the static configuration the registries are built from. The
// compiled-in defaults cover every category; an optional YAML file can
// replace individual policies (matched by id) and add or replace data
// sources (matched by collection name).
type Catalog struct {
	Policies []RetentionPolicy `yaml:"policies"`
	Sources  []DataSource      `yaml:"dataSources"`
}

// LoadCatalog returns the default catalogue, layered with the YAML file at
// path when one is given.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var file Catalog
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	return cat.merge(file), nil
}

func (c Catalog) merge(over Catalog) Catalog {
	merged := Catalog{}
	replacedPolicy := make(map[string]bool)
	for _, p := range over.Policies {
		replacedPolicy[p.ID] = true
	}
	for _, p := range c.Policies {
		if !replacedPolicy[p.ID] {
			merged.Policies = append(merged.Policies, p)
		}
	}
	merged.Policies = append(merged.Policies, over.Policies...)

	replacedSource := make(map[string]bool)
	for _, s := range over.Sources {
		replacedSource[s.Collection] = true
	}
	for _, s := range c.Sources {
		if !replacedSource[s.Collection] {
			merged.Sources = append(merged.Sources, s)
		}
	}
	merged.Sources = append(merged.Sources, over.Sources...)
	return merged
}

// DefaultCatalog is the baseline regulatory catalogue. Retention windows are
// expressed in days; bounds reflect the strictest framework applied to each
// category.
func DefaultCatalog() Catalog {
	return Catalog{
		Policies: []RetentionPolicy{
			{
				ID:                     "pol-learner-identity",
				Category:               CategoryLearnerIdentity,
				Description:            "Learner profiles and guardian records",
				Frameworks:             []Framework{FrameworkGDPR, FrameworkCOPPA, FrameworkFERPA},
				RetentionDays:          1095,
				GracePeriodDays:        30,
				Strategy:               StrategyAnonymize,
				BatchSize:              500,
				RequiresGuardianNotice: true,
				TenantOverridable:      true,
				MinRetentionDays:       365,
				MaxRetentionDays:       2555,
			},
			{
				ID:                "pol-session-logs",
				Category:          CategorySessionLogs,
				Description:       "Login sessions and per-session event logs",
				Frameworks:        []Framework{FrameworkGDPR, FrameworkCCPA},
				RetentionDays:     90,
				GracePeriodDays:   0,
				Strategy:          StrategyHardDelete,
				BatchSize:         1000,
				TenantOverridable: true,
				MinRetentionDays:  30,
				MaxRetentionDays:  365,
			},
			{
				ID:                     "pol-assessment-records",
				Category:               CategoryAssessmentRecords,
				Description:            "Assessments and learner responses",
				Frameworks:             []Framework{FrameworkFERPA},
				RetentionDays:          1825,
				GracePeriodDays:        30,
				Strategy:               StrategyArchiveAndDelete,
				BatchSize:              500,
				RequiresGuardianNotice: true,
				TenantOverridable:      true,
				MinRetentionDays:       1095,
				MaxRetentionDays:       3650,
			},
			{
				ID:                "pol-behavioral-analytics",
				Category:          CategoryBehavioralAnalytics,
				Description:       "Clickstream and engagement events",
				Frameworks:        []Framework{FrameworkGDPR, FrameworkCOPPA},
				RetentionDays:     180,
				Strategy:          StrategyAggregateAndDelete,
				BatchSize:         2000,
				TenantOverridable: true,
				MinRetentionDays:  30,
				MaxRetentionDays:  365,
			},
			{
				ID:                     "pol-biometric-audio",
				Category:               CategoryBiometricAudio,
				Description:            "Voice recordings from reading exercises",
				Frameworks:             []Framework{FrameworkGDPR, FrameworkCOPPA},
				RetentionDays:          30,
				Strategy:               StrategyHardDelete,
				BatchSize:              200,
				RequiresGuardianNotice: true,
				TenantOverridable:      false,
				MinRetentionDays:       7,
				MaxRetentionDays:       90,
			},
			{
				ID:                "pol-ai-interaction-logs",
				Category:          CategoryAIInteractionLogs,
				Description:       "Tutor conversation transcripts",
				Frameworks:        []Framework{FrameworkGDPR, FrameworkCOPPA},
				RetentionDays:     90,
				Strategy:          StrategyAnonymize,
				BatchSize:         500,
				TenantOverridable: true,
				MinRetentionDays:  30,
				MaxRetentionDays:  180,
			},
			{
				ID:                "pol-payment-records",
				Category:          CategoryPaymentRecords,
				Description:       "Billing transactions, retained for financial audit",
				Frameworks:        []Framework{FrameworkPCIDSS, FrameworkSOC2},
				RetentionDays:     2555,
				Strategy:          StrategyArchiveAndDelete,
				BatchSize:         500,
				TenantOverridable: false,
				MinRetentionDays:  2555,
				MaxRetentionDays:  3650,
			},
			{
				ID:                "pol-auth-logs",
				Category:          CategoryAuthLogs,
				Description:       "Authentication attempts and token grants",
				Frameworks:        []Framework{FrameworkSOC2, FrameworkGDPR},
				RetentionDays:     365,
				Strategy:          StrategyHardDelete,
				BatchSize:         1000,
				TenantOverridable: true,
				MinRetentionDays:  90,
				MaxRetentionDays:  730,
			},
			{
				ID:                "pol-security-audit-logs",
				Category:          CategorySecurityAuditLogs,
				Description:       "Security and access audit trail",
				Frameworks:        []Framework{FrameworkSOC2},
				RetentionDays:     730,
				Strategy:          StrategyArchiveAndDelete,
				BatchSize:         1000,
				TenantOverridable: false,
				MinRetentionDays:  365,
				MaxRetentionDays:  2555,
			},
			{
				ID:                     "pol-user-content",
				Category:               CategoryUserContent,
				Description:            "Learner-created documents and media",
				Frameworks:             []Framework{FrameworkGDPR, FrameworkCOPPA},
				RetentionDays:          730,
				GracePeriodDays:        30,
				Strategy:               StrategySoftDelete,
				BatchSize:              500,
				RequiresGuardianNotice: true,
				TenantOverridable:      true,
				MinRetentionDays:       90,
				MaxRetentionDays:       1825,
			},
			{
				ID:                "pol-notification-logs",
				Category:          CategoryNotificationLogs,
				Description:       "Delivered notification history",
				Frameworks:        []Framework{FrameworkGDPR},
				RetentionDays:     90,
				Strategy:          StrategyHardDelete,
				BatchSize:         2000,
				TenantOverridable: true,
				MinRetentionDays:  30,
				MaxRetentionDays:  365,
			},
			{
				ID:                "pol-sync-logs",
				Category:          CategorySyncLogs,
				Description:       "Device sync bookkeeping",
				Frameworks:        []Framework{FrameworkGDPR},
				RetentionDays:     30,
				Strategy:          StrategyHardDelete,
				BatchSize:         2000,
				TenantOverridable: true,
				MinRetentionDays:  7,
				MaxRetentionDays:  90,
			},
			{
				ID:                "pol-metrics",
				Category:          CategoryMetrics,
				Description:       "Raw product usage metrics",
				Frameworks:        []Framework{FrameworkGDPR},
				RetentionDays:     395,
				Strategy:          StrategyAggregateAndDelete,
				BatchSize:         5000,
				TenantOverridable: true,
				MinRetentionDays:  90,
				MaxRetentionDays:  730,
			},
			{
				ID:                "pol-support-tickets",
				Category:          CategorySupportTickets,
				Description:       "Support conversations",
				Frameworks:        []Framework{FrameworkGDPR, FrameworkCCPA},
				RetentionDays:     1095,
				Strategy:          StrategyAnonymize,
				BatchSize:         500,
				TenantOverridable: true,
				MinRetentionDays:  365,
				MaxRetentionDays:  1825,
			},
		},
		Sources: []DataSource{
			{
				Collection:           "learners",
				Category:             CategoryLearnerIdentity,
				AgeColumn:            "last_active_at",
				TenantColumn:         "tenant_id",
				SubjectColumn:        "user_id",
				SoftDeleteColumn:     "deleted_at",
				PIIColumns:           []string{"first_name", "last_name", "email", "date_of_birth"},
				DependentCollections: []string{"learner_guardians"},
			},
			{
				Collection:    "learner_guardians",
				Category:      CategoryLearnerIdentity,
				AgeColumn:     "created_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "learner_user_id",
				PIIColumns:    []string{"guardian_name", "guardian_email", "guardian_phone"},
			},
			{
				Collection:           "sessions",
				Category:             CategorySessionLogs,
				AgeColumn:            "started_at",
				TenantColumn:         "tenant_id",
				SubjectColumn:        "user_id",
				PIIColumns:           []string{"ip_address", "user_agent"},
				DependentCollections: []string{"session_events"},
			},
			{
				Collection:    "session_events",
				Category:      CategorySessionLogs,
				AgeColumn:     "occurred_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
			},
			{
				Collection:           "assessments",
				Category:             CategoryAssessmentRecords,
				AgeColumn:            "completed_at",
				TenantColumn:         "tenant_id",
				SubjectColumn:        "user_id",
				ArchiveTarget:        "assessments_archive",
				DependentCollections: []string{"assessment_responses"},
			},
			{
				Collection:    "assessment_responses",
				Category:      CategoryAssessmentRecords,
				AgeColumn:     "submitted_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
				ArchiveTarget: "assessment_responses_archive",
			},
			{
				Collection:        "behavior_events",
				Category:          CategoryBehavioralAnalytics,
				AgeColumn:         "occurred_at",
				TenantColumn:      "tenant_id",
				SubjectColumn:     "user_id",
				AggregationTarget: "behavior_daily_counts",
			},
			{
				Collection:    "audio_recordings",
				Category:      CategoryBiometricAudio,
				AgeColumn:     "recorded_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
			},
			{
				Collection:    "ai_interactions",
				Category:      CategoryAIInteractionLogs,
				AgeColumn:     "created_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
				PIIColumns:    []string{"prompt_text", "response_text"},
			},
			{
				Collection:    "payments",
				Category:      CategoryPaymentRecords,
				AgeColumn:     "settled_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
				PIIColumns:    []string{"cardholder_name", "billing_email", "billing_address"},
				ArchiveTarget: "payments_archive",
			},
			{
				Collection:    "auth_events",
				Category:      CategoryAuthLogs,
				AgeColumn:     "created_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
			},
			{
				Collection:    "security_audit_log",
				Category:      CategorySecurityAuditLogs,
				AgeColumn:     "created_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "actor_user_id",
				ArchiveTarget: "security_audit_archive",
			},
			{
				Collection:       "user_documents",
				Category:         CategoryUserContent,
				AgeColumn:        "updated_at",
				TenantColumn:     "tenant_id",
				SubjectColumn:    "user_id",
				SoftDeleteColumn: "deleted_at",
			},
			{
				Collection:    "notification_log",
				Category:      CategoryNotificationLogs,
				AgeColumn:     "sent_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
			},
			{
				Collection:   "sync_log",
				Category:     CategorySyncLogs,
				AgeColumn:    "synced_at",
				TenantColumn: "tenant_id",
			},
			{
				Collection:        "usage_metrics",
				Category:          CategoryMetrics,
				AgeColumn:         "recorded_at",
				TenantColumn:      "tenant_id",
				AggregationTarget: "usage_metrics_daily",
			},
			{
				Collection:           "support_tickets",
				Category:             CategorySupportTickets,
				AgeColumn:            "closed_at",
				TenantColumn:         "tenant_id",
				SubjectColumn:        "user_id",
				PIIColumns:           []string{"requester_email", "subject_line"},
				DependentCollections: []string{"support_messages"},
			},
			{
				Collection:    "support_messages",
				Category:      CategorySupportTickets,
				AgeColumn:     "created_at",
				TenantColumn:  "tenant_id",
				SubjectColumn: "user_id",
				PIIColumns:    []string{"body"},
			},
		},
	}
}
