package natsutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
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

type payload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestCarrierAllocatesHeader(t *testing.T) {
	msg := nats.NewMsg("x")
	msg.Header = nil
	c := carrier(msg)
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	if msg.Header == nil || c.Get("traceparent") != "b" || len(c.Keys()) != 1 {
		t.Fatalf("unexpected carrier state: %v", msg.Header)
	}
}

func TestPublish(t *testing.T) {
	nc := startTestNATS(t)

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe("test.pub", ch)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := Publish(context.Background(), nc, "test.pub", payload{Name: "hello", Value: 1}); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-ch:
		var p payload
		if err := json.Unmarshal(msg.Data, &p); err != nil {
			t.Fatal(err)
		}
		if p.Name != "hello" || p.Value != 1 {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishUnencodable(t *testing.T) {
	nc := startTestNATS(t)
	if err := Publish(context.Background(), nc, "test.bad", make(chan int)); err == nil {
		t.Fatal("expected encode error")
	}
}

func TestSubscribe(t *testing.T) {
	nc := startTestNATS(t)

	type got struct {
		p       payload
		subject string
	}
	ch := make(chan got, 1)
	sub, err := Subscribe(nc, "test.sub.>", func(ctx context.Context, p payload) {
		ch <- got{p: p, subject: SubjectFrom(ctx)}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	if err := nc.Publish("test.sub.bad", []byte("not json")); err != nil {
		t.Fatal(err)
	}
	if err := Publish(context.Background(), nc, "test.sub.good", payload{Name: "world", Value: 2}); err != nil {
		t.Fatal(err)
	}
	nc.Flush()

	select {
	case g := <-ch:
		if g.p.Name != "world" || g.subject != "test.sub.good" {
			t.Fatalf("unexpected delivery: %+v", g)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
