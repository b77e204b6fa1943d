// Package natspub publishes plan records as JSON messages on NATS so
// downstream responders can act on them.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/warden/internal/triage"
)

const (
	// DefaultSubject is the subject prefix; the plan strategy is appended.
	DefaultSubject = "warden.plans"
	ConnectTimeout = 5 * time.Second
	FlushTimeout   = 5 * time.Second
)

// Publisher sends plan records to NATS.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  log.Logger
}

// New connects to natsURL. Connection failure is returned immediately;
// later disconnects are retried by the client.
func New(natsURL, subject string, logger log.Logger) (*Publisher, error) {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = log.Nop()
	}

	p := &Publisher{subject: subject, logger: logger}
	conn, err := nats.Connect(natsURL,
		nats.Name("warden"),
		nats.Timeout(ConnectTimeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn(context.Background(), "nats disconnected", "err", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info(context.Background(), "nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", natsURL, err)
	}
	p.conn = conn
	return p, nil
}

// Name implements triage.Notifier.
func (p *Publisher) Name() string { return "nats" }

// Send implements triage.Notifier.
func (p *Publisher) Send(ctx context.Context, rec *triage.PlanRecord) error {
	msg, err := p.message(rec)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats: publish %s: %w", msg.Subject, err)
	}

	fctx, cancel := context.WithTimeout(ctx, FlushTimeout)
	defer cancel()
	if err := p.conn.FlushWithContext(fctx); err != nil {
		return fmt.Errorf("nats: flush: %w", err)
	}
	return nil
}

// message builds the NATS message for rec.
func (p *Publisher) message(rec *triage.PlanRecord) (*nats.Msg, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("nats: marshal plan record: %w", err)
	}
	msg := nats.NewMsg(Subject(p.subject, rec))
	msg.Data = data
	msg.Header.Set("x-plan-id", rec.ID)
	msg.Header.Set("x-fingerprint", rec.Fingerprint)
	msg.Header.Set("x-strategy", string(rec.Plan.Strategy))
	msg.Header.Set("x-priority", strconv.Itoa(rec.Plan.Priority))
	// lets JetStream streams drop duplicate deliveries
	msg.Header.Set(nats.MsgIdHdr, rec.ID)
	return msg, nil
}

// Subject returns the subject rec is published on.
func Subject(prefix string, rec *triage.PlanRecord) string {
	if rec.Plan.Strategy == "" {
		return prefix + ".unknown"
	}
	return prefix + "." + string(rec.Plan.Strategy)
}

// Close drains pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
