// Package notice delivers guardian/parental notifications ahead of purges of
// categories that legally require them.
package notice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"retentiond/internal/domain/policy"
)

var ErrNoContact = errors.New("no guardian contact on file")

// TemplateRetentionNotice is the templateKind passed to the notifier for the
// pre-purge notice.
const TemplateRetentionNotice = "guardian_retention_notice"

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ContactResolver finds the responsible contact for a subject.
type ContactResolver interface {
	GuardianContact(ctx context.Context, tenantID, subjectID string) (Contact, error)
}

// Notifier is the external notification collaborator. Dispatch is
// fire-and-forget from the engine's perspective; a failure is reported to the
// caller of NotifyGuardian but never aborts a purge run.
type Notifier interface {
	SendGuardianNotice(ctx context.Context, contact Contact, templateKind string, vars map[string]string) error
}

type Service struct {
	Resolver ContactResolver
	Notifier Notifier
}

func NewService(resolver ContactResolver, notifier Notifier) *Service {
	return &Service{Resolver: resolver, Notifier: notifier}
}

// NotifyGuardian emits one notice describing which categories will be
// removed and that no action is required. It is a no-op when none of the
// supplied policies require notice. A missing contact is a reported failure,
// not a silent skip.
func (s *Service) NotifyGuardian(ctx context.Context, tenantID, subjectID string, policies []policy.RetentionPolicy) error {
	var categories []string
	for _, p := range policies {
		if p.RequiresGuardianNotice {
			categories = append(categories, string(p.Category))
		}
	}
	if len(categories) == 0 {
		return nil
	}

	contact, err := s.Resolver.GuardianContact(ctx, tenantID, subjectID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoContact, err)
	}
	if contact.Email == "" {
		return ErrNoContact
	}

	return s.Notifier.SendGuardianNotice(ctx, contact, TemplateRetentionNotice, map[string]string{
		"categories":     strings.Join(categories, ", "),
		"actionRequired": "none",
	})
}
