package events

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/storefront/catalog/engine/domain"
	"github.com/storefront/catalog/pkg/natsutil"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestNewEvent(t *testing.T) {
	p := domain.Product{ID: 3, Title: "Lamp", Price: domain.Ptr(4.0)}
	e := New(Created, p)
	if e.ID == "" || e.Kind != Created || e.At.IsZero() {
		t.Fatalf("unexpected event %+v", e)
	}
	*p.Price = 8
	if e.Product.PriceOrZero() != 4 {
		t.Fatal("event must not share memory with the product")
	}
	if New(Created, p).ID == e.ID {
		t.Fatal("event ids must be unique")
	}
}

func TestNopPublish(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), New(Updated, domain.Product{ID: 1})); err != nil {
		t.Fatal(err)
	}
}

func TestPublishSubscribe(t *testing.T) {
	nc := startTestNATS(t)

	type delivery struct {
		e       Event
		subject string
	}
	ch := make(chan delivery, 2)
	sub, err := Subscribe(nc, "catalog.products", func(ctx context.Context, e Event) {
		ch <- delivery{e: e, subject: natsutil.SubjectFrom(ctx)}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	pub := NewNATS(nc, "catalog.products.", nil)
	sent := New(Updated, domain.Product{ID: 2, Title: "Chair", Price: domain.Ptr(99.0)})
	if err := pub.Publish(context.Background(), sent); err != nil {
		t.Fatal(err)
	}
	nc.Flush()

	select {
	case d := <-ch:
		if d.subject != "catalog.products.updated" {
			t.Fatalf("unexpected subject %q", d.subject)
		}
		if d.e.ID != sent.ID || d.e.Product.PriceOrZero() != 99 || d.e.Kind != Updated {
			t.Fatalf("unexpected event %+v", d.e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
}
