// Package syncer applies tag-driven field updates from one oracle reply to
// the customer's row. Writes are pure overwrites, so reprocessing the same
// reply leaves the store unchanged. Concurrent sessions for the same
// company id are last-write-wins; the service assumes one session per
// customer and takes no locks.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dsakai3418/paybot/internal/customer"
	"github.com/dsakai3418/paybot/internal/events"
	"github.com/dsakai3418/paybot/internal/store"
	"github.com/dsakai3418/paybot/internal/tags"
)

type Synchronizer struct {
	store  store.RowStore
	events *events.Publisher // nil when NATS is not configured
	logger *slog.Logger
}

func New(st store.RowStore, ev *events.Publisher, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{store: st, events: ev, logger: logger}
}

// Apply scans one raw reply, issues the corresponding cell writes for the
// customer's row, and returns the display text with every bracketed span
// removed. Stripping runs whether or not any recognized tag was found; a
// write error aborts remaining writes and is returned to the caller so the
// user can retry the turn.
func (s *Synchronizer) Apply(ctx context.Context, raw string, rec customer.Record, rowIndex int) (string, error) {
	display := tags.Strip(raw)

	var promised bool
	var promisedDate string

	for _, tag := range tags.Parse(raw) {
		switch tag.Name {
		case tags.EmailReceived:
			// The conditional new-email write and the status write are
			// coupled: both or neither.
			if !sameEmail(tag.Payload, rec.ExistingEmail) {
				if err := s.store.UpdateCell(ctx, rowIndex, customer.ColNewEmail, tag.Payload); err != nil {
					return display, fmt.Errorf("write new email: %w", err)
				}
			}
			if err := s.store.UpdateCell(ctx, rowIndex, customer.ColStatus, customer.StatusEmailPending); err != nil {
				return display, fmt.Errorf("write status: %w", err)
			}
			s.publish(events.SubjectEmailConfirmed, events.Outcome{
				CompanyID:   rec.CompanyID,
				CompanyName: rec.CompanyName,
				Email:       tag.Payload,
			})
			s.logger.Info("email confirmed", "company_id", rec.CompanyID, "row", rowIndex)

		case tags.PromiseFixed:
			if err := s.store.UpdateCell(ctx, rowIndex, customer.ColStatus, customer.StatusPaymentPromised); err != nil {
				return display, fmt.Errorf("write status: %w", err)
			}
			promised = true

		case tags.PaymentDate:
			if err := s.store.UpdateCell(ctx, rowIndex, customer.ColPromisedDate, tag.Payload); err != nil {
				return display, fmt.Errorf("write promised date: %w", err)
			}
			promised = true
			promisedDate = tag.Payload

		case tags.InquiryContent:
			if err := s.store.UpdateCell(ctx, rowIndex, customer.ColInquiry, tag.Payload); err != nil {
				return display, fmt.Errorf("write inquiry: %w", err)
			}
			s.publish(events.SubjectInquiryReceived, events.Outcome{
				CompanyID:   rec.CompanyID,
				CompanyName: rec.CompanyName,
				Inquiry:     tag.Payload,
			})
			s.logger.Info("inquiry recorded", "company_id", rec.CompanyID, "row", rowIndex)
		}
	}

	if promised {
		s.publish(events.SubjectPaymentPromised, events.Outcome{
			CompanyID:    rec.CompanyID,
			CompanyName:  rec.CompanyName,
			PromisedDate: promisedDate,
		})
		s.logger.Info("payment promised", "company_id", rec.CompanyID, "row", rowIndex, "date", promisedDate)
	}

	return display, nil
}

// sameEmail compares addresses case-insensitively after trimming.
func sameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// publish is fire-and-forget: an unreachable event bus must not fail the
// customer's turn.
func (s *Synchronizer) publish(subject string, outcome events.Outcome) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, outcome); err != nil {
		s.logger.Warn("failed to publish outcome", "subject", subject, "error", err)
	}
}
