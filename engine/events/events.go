// Package events announces catalog writes on NATS so other processes can
// follow changes without polling the remote store.
package events

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/pkg/natsutil"
)

// Kind says what happened to the product.
type Kind string

const (
	Created Kind = "created"
	Updated Kind = "updated"
)

// Event is the JSON payload published for every successful write.
type Event struct {
	ID      string         `json:"id"`
	Kind    Kind           `json:"kind"`
	Product domain.Product `json:"product"`
	At      time.Time      `json:"at"`
}

// New stamps an event with a fresh id and the current time.
func New(kind Kind, p domain.Product) Event {
	return Event{ID: uuid.NewString(), Kind: kind, Product: p.Clone(), At: time.Now().UTC()}
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// NATS publishes events to "<subject>.<kind>".
type NATS struct {
	nc      *nats.Conn
	subject string
	log     *slog.Logger
}

// NewNATS creates a publisher on nc rooted at subject, e.g. "catalog.products".
func NewNATS(nc *nats.Conn, subject string, log *slog.Logger) *NATS {
	if log == nil {
		log = slog.Default()
	}
	return &NATS{nc: nc, subject: strings.TrimSuffix(subject, "."), log: log}
}

func (p *NATS) Publish(ctx context.Context, e Event) error {
	subject := p.subject + "." + string(e.Kind)
	if err := natsutil.Publish(ctx, p.nc, subject, e); err != nil {
		return err
	}
	p.log.Debug("event published", "subject", subject, "event_id", e.ID, "product_id", e.Product.ID)
	return nil
}

// Subscribe delivers every event under subject to handler.
func Subscribe(nc *nats.Conn, subject string, handler func(context.Context, Event)) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, strings.TrimSuffix(subject, ".")+".>", handler)
}
