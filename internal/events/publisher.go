// Package events fans conversation outcomes out to NATS for back-office
// consumers (dunning follow-up, CRM sync). Paybot runs fine without it;
// the publisher is an optional collaborator.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectEmailConfirmed  = "paybot.outcome.email_confirmed"
	SubjectPaymentPromised = "paybot.outcome.payment_promised"
	SubjectInquiryReceived = "paybot.outcome.inquiry_received"
)

// Outcome is the payload for every paybot.outcome.* subject. Fields that
// do not apply to a given subject are omitted.
type Outcome struct {
	CompanyID    string `json:"company_id"`
	CompanyName  string `json:"company_name"`
	Email        string `json:"email,omitempty"`
	PromisedDate string `json:"promised_date,omitempty"`
	Inquiry      string `json:"inquiry,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Stamp sets the event timestamp to now in RFC 3339 UTC.
func (o *Outcome) Stamp() {
	o.Timestamp = time.Now().UTC().Format(time.RFC3339)
}

type Publisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewPublisher(url, token string, logger *slog.Logger) (*Publisher, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(subject string, outcome Outcome) error {
	outcome.Stamp()
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.conn.Close()
}
