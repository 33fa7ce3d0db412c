package policy

import (
	"errors"
	"fmt"
)

var (
	ErrPolicyNotFound     = errors.New("retention policy not found")
	ErrOverrideNotAllowed = errors.New("policy does not permit tenant overrides")
)

// BoundsError reports an override that would push the effective retention
// window outside the policy's regulatory floor or ceiling.
type BoundsError struct {
	PolicyID      string
	RetentionDays int
	Min           int
	Max           int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("retention %d days for policy %s outside regulatory bounds [%d, %d]",
		e.RetentionDays, e.PolicyID, e.Min, e.Max)
}
