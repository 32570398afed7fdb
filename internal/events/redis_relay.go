package events

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"trafficportal/internal/ids"
)

// RedisRelay mirrors local bus events onto a redis pub/sub channel for other
// API instances and onto a redis stream for the worker. Events published by
// other instances are re-published on the local bus.
type RedisRelay struct {
	client   *redis.Client
	bus      *Bus
	channel  string
	stream   string
	instance string
	log      zerolog.Logger
}

func NewRedisRelay(client *redis.Client, bus *Bus, channel string, stream string, log zerolog.Logger) *RedisRelay {
	return &RedisRelay{
		client:   client,
		bus:      bus,
		channel:  channel,
		stream:   stream,
		instance: ids.New(),
		log:      log,
	}
}

// Start relays until ctx is cancelled.
func (r *RedisRelay) Start(ctx context.Context) error {
	unsubscribe := r.bus.OnRegistryChanged(r.forward)
	defer unsubscribe()

	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	r.log.Info().Str("channel", r.channel).Str("instance", r.instance).Msg("event relay started")

	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			r.receive(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) forward(event Event) {
	payload, ok := outbound(event, r.instance, r.log)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		r.log.Warn().Err(err).Str("event", string(event.Type)).Msg("publish event failed")
	}

	if r.stream == "" {
		return
	}
	if err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		Values: StreamValues(event),
	}).Err(); err != nil {
		r.log.Warn().Err(err).Str("event", string(event.Type)).Msg("enqueue event failed")
	}
}

func (r *RedisRelay) receive(ctx context.Context, payload string) {
	if event, ok := inbound([]byte(payload), r.instance, r.log); ok {
		r.bus.Publish(ctx, event)
	}
}

// StreamValues flattens an event into redis stream fields.
func StreamValues(event Event) map[string]any {
	return map[string]any{
		"type":     string(event.Type),
		"cityCode": event.CityCode,
		"cityName": event.CityName,
		"at":       event.At.UTC().Format(time.RFC3339),
	}
}
