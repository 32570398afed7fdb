package events

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"trafficportal/internal/ids"
)

// NatsRelay mirrors local bus events onto a NATS subject and re-publishes
// events from other instances locally. Unlike RedisRelay it does not feed
// the worker's task stream.
type NatsRelay struct {
	conn     *nats.Conn
	bus      *Bus
	subject  string
	instance string
	log      zerolog.Logger
}

func NewNatsRelay(conn *nats.Conn, bus *Bus, subject string, log zerolog.Logger) *NatsRelay {
	return &NatsRelay{
		conn:     conn,
		bus:      bus,
		subject:  subject,
		instance: ids.New(),
		log:      log,
	}
}

// Start relays until ctx is cancelled.
func (r *NatsRelay) Start(ctx context.Context) error {
	unsubscribe := r.bus.OnRegistryChanged(r.forward)
	defer unsubscribe()

	sub, err := r.conn.Subscribe(r.subject, func(msg *nats.Msg) {
		if event, ok := inbound(msg.Data, r.instance, r.log); ok {
			r.bus.Publish(ctx, event)
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = sub.Unsubscribe() }()

	r.log.Info().Str("subject", r.subject).Str("instance", r.instance).Msg("event relay started")

	<-ctx.Done()
	return ctx.Err()
}

func (r *NatsRelay) forward(event Event) {
	payload, ok := outbound(event, r.instance, r.log)
	if !ok {
		return
	}
	if err := r.conn.Publish(r.subject, payload); err != nil {
		r.log.Warn().Err(err).Str("event", string(event.Type)).Msg("publish event failed")
	}
}
