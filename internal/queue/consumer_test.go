package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRedis answers commands in-process through a go-redis hook and
// records every command it sees.
type scriptedRedis struct {
	mu      sync.Mutex
	seen    [][]any
	respond func(cmd redis.Cmder)
}

func (s *scriptedRedis) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (s *scriptedRedis) ProcessHook(redis.ProcessHook) redis.ProcessHook {
	return func(_ context.Context, cmd redis.Cmder) error {
		s.mu.Lock()
		s.seen = append(s.seen, cmd.Args())
		s.mu.Unlock()
		if s.respond != nil {
			s.respond(cmd)
		}
		return cmd.Err()
	}
}

func (s *scriptedRedis) ProcessPipelineHook(redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(context.Context, []redis.Cmder) error { return nil }
}

func (s *scriptedRedis) commands(name string) [][]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out [][]any
	for _, args := range s.seen {
		if len(args) > 0 && args[0] == name {
			out = append(out, args)
		}
	}
	return out
}

type handlerFunc func(ctx context.Context, msg redis.XMessage) error

func (f handlerFunc) Handle(ctx context.Context, msg redis.XMessage) error {
	return f(ctx, msg)
}

func newScriptedConsumer(t *testing.T, handler MessageHandler) (*Consumer, *scriptedRedis) {
	t.Helper()

	script := &scriptedRedis{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	client.AddHook(script)
	t.Cleanup(func() { _ = client.Close() })

	return NewConsumer(client, "portal:tasks", "workers", "worker-1", time.Minute, zerolog.Nop(), handler), script
}

func TestConsumer_AcksHandledMessage(t *testing.T) {
	var handled []string
	c, script := newScriptedConsumer(t, handlerFunc(func(_ context.Context, msg redis.XMessage) error {
		handled = append(handled, msg.ID)
		return nil
	}))

	c.process(context.Background(), redis.XMessage{ID: "1-0", Values: map[string]any{"type": "registry.snapshot"}})

	assert.Equal(t, []string{"1-0"}, handled)
	acks := script.commands("xack")
	require.Len(t, acks, 1)
	assert.Equal(t, []any{"xack", "portal:tasks", "workers", "1-0"}, acks[0])
}

func TestConsumer_FailedMessageStaysPending(t *testing.T) {
	c, script := newScriptedConsumer(t, handlerFunc(func(context.Context, redis.XMessage) error {
		return errors.New("object store offline")
	}))

	c.process(context.Background(), redis.XMessage{ID: "1-0"})

	assert.Empty(t, script.commands("xack"))
}

func TestConsumer_ClaimsOnlyIdleMessages(t *testing.T) {
	var handled []string
	c, script := newScriptedConsumer(t, handlerFunc(func(_ context.Context, msg redis.XMessage) error {
		handled = append(handled, msg.ID)
		return nil
	}))
	script.respond = func(cmd redis.Cmder) {
		switch cmd := cmd.(type) {
		case *redis.XPendingExtCmd:
			cmd.SetVal([]redis.XPendingExt{
				{ID: "1-0", Consumer: "worker-0", Idle: 2 * time.Minute},
				{ID: "2-0", Consumer: "worker-0", Idle: time.Second},
			})
		case *redis.XMessageSliceCmd:
			cmd.SetVal([]redis.XMessage{{ID: "1-0"}})
		}
	}

	require.NoError(t, c.claimStalled(context.Background()))

	assert.Len(t, script.commands("xclaim"), 1)
	assert.Equal(t, []string{"1-0"}, handled)
	assert.Len(t, script.commands("xack"), 1)
}

func TestConsumer_EnsureGroup(t *testing.T) {
	c, script := newScriptedConsumer(t, handlerFunc(func(context.Context, redis.XMessage) error { return nil }))

	script.respond = func(cmd redis.Cmder) {
		cmd.SetErr(errors.New("BUSYGROUP Consumer Group name already exists"))
	}
	assert.NoError(t, c.EnsureGroup(context.Background()), "existing group is fine")

	script.respond = func(cmd redis.Cmder) {
		cmd.SetErr(errors.New("WRONGTYPE Operation against a key holding the wrong kind of value"))
	}
	assert.Error(t, c.EnsureGroup(context.Background()))
}
