// Package natsutil sends and receives JSON values over NATS, carrying the
// OpenTelemetry trace context in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// carrier views the message headers through the OTel propagation API.
// nats.Header and http.Header share a layout.
func carrier(msg *nats.Msg) propagation.HeaderCarrier {
	if msg.Header == nil {
		msg.Header = nats.Header{}
	}
	return propagation.HeaderCarrier(http.Header(msg.Header))
}

// Publish sends v as JSON on subject.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("natsutil: encode %s: %w", subject, err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	otel.GetTextMapPropagator().Inject(ctx, carrier(msg))
	if err := nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("natsutil: publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe decodes each message on subject into a T and passes it to
// handler together with a context holding the sender's trace and the
// concrete subject. Messages that are not valid JSON for T are skipped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if json.Unmarshal(msg.Data, &v) != nil {
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), carrier(msg))
		handler(context.WithValue(ctx, subjectKey{}, msg.Subject), v)
	})
	if err != nil {
		return nil, fmt.Errorf("natsutil: subscribe %s: %w", subject, err)
	}
	return sub, nil
}

type subjectKey struct{}

// SubjectFrom returns the subject of the message being handled, or "".
func SubjectFrom(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
