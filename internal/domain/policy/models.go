package policy

import (
	"fmt"
	"time"
)

// RetentionPolicy is an immutable retention rule for one data category.
// MinRetentionDays and MaxRetentionDays are the regulatory floor and ceiling;
// RetentionDays must stay inside them for the base policy and for any
// tenant-overridden effective policy.
type RetentionPolicy struct {
	ID                     string      `json:"id" yaml:"id"`
	Category               Category    `json:"category" yaml:"category"`
	Description            string      `json:"description" yaml:"description"`
	Frameworks             []Framework `json:"frameworks" yaml:"frameworks"`
	RetentionDays          int         `json:"retentionDays" yaml:"retentionDays"`
	GracePeriodDays        int         `json:"gracePeriodDays" yaml:"gracePeriodDays"`
	Strategy               Strategy    `json:"strategy" yaml:"strategy"`
	BatchSize              int         `json:"batchSize" yaml:"batchSize"`
	RequiresGuardianNotice bool        `json:"requiresGuardianNotice" yaml:"requiresGuardianNotice"`
	TenantOverridable      bool        `json:"tenantOverridable" yaml:"tenantOverridable"`
	MinRetentionDays       int         `json:"minRetentionDays" yaml:"minRetentionDays"`
	MaxRetentionDays       int         `json:"maxRetentionDays" yaml:"maxRetentionDays"`
}

func (p RetentionPolicy) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("policy has no id")
	}
	if !p.Category.Valid() {
		return fmt.Errorf("policy %s: unknown category %q", p.ID, p.Category)
	}
	if !p.Strategy.Valid() {
		return fmt.Errorf("policy %s: unknown strategy %q", p.ID, p.Strategy)
	}
	if p.BatchSize <= 0 {
		return fmt.Errorf("policy %s: batch size must be positive", p.ID)
	}
	if p.MinRetentionDays < 0 || p.MaxRetentionDays < p.MinRetentionDays {
		return fmt.Errorf("policy %s: invalid retention bounds [%d, %d]", p.ID, p.MinRetentionDays, p.MaxRetentionDays)
	}
	if p.RetentionDays < p.MinRetentionDays || p.RetentionDays > p.MaxRetentionDays {
		return fmt.Errorf("policy %s: retention %d outside bounds [%d, %d]",
			p.ID, p.RetentionDays, p.MinRetentionDays, p.MaxRetentionDays)
	}
	return nil
}

// Cutoff returns the eligibility cutoff for this policy at the given instant.
func (p RetentionPolicy) Cutoff(now time.Time) time.Time {
	return now.AddDate(0, 0, -p.RetentionDays)
}

// TenantOverride is a per-tenant delta on top of a base policy. A nil field
// leaves the base value untouched.
type TenantOverride struct {
	TenantID        string    `json:"tenantId"`
	PolicyID        string    `json:"policyId"`
	RetentionDays   *int      `json:"retentionDays,omitempty"`
	GracePeriodDays *int      `json:"gracePeriodDays,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Apply merges the override onto the base policy. It does not validate; the
// override store rejects out-of-bounds values before they are ever persisted.
func (o TenantOverride) Apply(base RetentionPolicy) RetentionPolicy {
	effective := base
	if o.RetentionDays != nil {
		effective.RetentionDays = *o.RetentionDays
	}
	if o.GracePeriodDays != nil {
		effective.GracePeriodDays = *o.GracePeriodDays
	}
	return effective
}

// DataSource maps a category to one physical collection. Multiple sources may
// share a category. DependentCollections name child collections that must be
// purged before this one.
type DataSource struct {
	Collection           string   `json:"collection" yaml:"collection"`
	Category             Category `json:"category" yaml:"category"`
	AgeColumn            string   `json:"ageColumn" yaml:"ageColumn"`
	TenantColumn         string   `json:"tenantColumn" yaml:"tenantColumn"`
	SubjectColumn        string   `json:"subjectColumn,omitempty" yaml:"subjectColumn"`
	SoftDeleteColumn     string   `json:"softDeleteColumn,omitempty" yaml:"softDeleteColumn"`
	PIIColumns           []string `json:"piiColumns,omitempty" yaml:"piiColumns"`
	AggregationTarget    string   `json:"aggregationTarget,omitempty" yaml:"aggregationTarget"`
	ArchiveTarget        string   `json:"archiveTarget,omitempty" yaml:"archiveTarget"`
	DependentCollections []string `json:"dependentCollections,omitempty" yaml:"dependentCollections"`
}

func (d DataSource) Validate() error {
	if d.Collection == "" {
		return fmt.Errorf("data source has no collection name")
	}
	if !d.Category.Valid() {
		return fmt.Errorf("data source %s: unknown category %q", d.Collection, d.Category)
	}
	if d.AgeColumn == "" {
		return fmt.Errorf("data source %s: age column is required", d.Collection)
	}
	return nil
}
