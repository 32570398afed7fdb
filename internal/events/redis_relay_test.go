package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commandLog answers every redis command in-process and keeps its args.
type commandLog struct {
	mu   sync.Mutex
	args [][]any
}

func (l *commandLog) DialHook(next redis.DialHook) redis.DialHook { return next }

func (l *commandLog) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.args = append(l.args, cmd.Args())
		return nil
	}
}

func (l *commandLog) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(context.Context, []redis.Cmder) error { return nil }
}

func (l *commandLog) names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.args))
	for _, args := range l.args {
		out = append(out, args[0].(string))
	}
	return out
}

func newLoggedRelay(t *testing.T) (*RedisRelay, *Bus, *commandLog) {
	t.Helper()

	log := &commandLog{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(log)
	t.Cleanup(func() { _ = client.Close() })

	bus := NewBus(zerolog.Nop())
	return NewRedisRelay(client, bus, "portal:events", "portal:tasks", zerolog.Nop()), bus, log
}

func TestRedisRelay_ForwardsLocalEvents(t *testing.T) {
	relay, _, log := newLoggedRelay(t)

	relay.forward(Event{Type: CityCreated, CityCode: "PSH", At: time.Now().UTC()})
	assert.Equal(t, []string{"publish", "xadd"}, log.names())
	assert.Equal(t, "portal:events", log.args[0][1])
	assert.Equal(t, "portal:tasks", log.args[1][1])

	relay.forward(Event{Type: CityDeleted, CityCode: "PSH", Origin: "other"})
	assert.Len(t, log.names(), 2, "relayed events are not sent again")
}

func TestRedisRelay_WithoutStreamOnlyPublishes(t *testing.T) {
	relay, _, log := newLoggedRelay(t)
	relay.stream = ""

	relay.forward(Event{Type: PermissionsUpdated, CityCode: "ISB"})
	assert.Equal(t, []string{"publish"}, log.names())
}

func TestRedisRelay_ReceiveRepublishesRemoteEvents(t *testing.T) {
	relay, bus, _ := newLoggedRelay(t)

	var got []Event
	unsubscribe := bus.OnRegistryChanged(func(e Event) { got = append(got, e) })
	defer unsubscribe()

	relay.receive(context.Background(), `{"type":"city.created","cityCode":"PSH","origin":"api-2"}`)
	relay.receive(context.Background(), `{"type":"city.created","cityCode":"PSH","origin":"`+relay.instance+`"}`)
	relay.receive(context.Background(), `garbage`)

	require.Len(t, got, 1)
	assert.Equal(t, "api-2", got[0].Origin)
	assert.Equal(t, "PSH", got[0].CityCode)
}
