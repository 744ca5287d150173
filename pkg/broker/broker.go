// Package broker relays domain events between API instances over Redis
// pub/sub. Each instance publishes submission and leaderboard events here and
// forwards received events to its local websocket hub, so clients connected
// to any instance see the same updates.
package broker

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"codearena/pkg/envelope"

	"github.com/redis/go-redis/v9"
)

const eventsChannel = "codearena:events"

type HandlerFunc func(envelope.Envelope)

type Broker struct {
	rdb      *redis.Client
	ctx      context.Context
	cancel   context.CancelFunc
	handlers sync.Map
}

func New(rdb *redis.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{rdb: rdb, ctx: ctx, cancel: cancel}
}

func (b *Broker) Publish(env envelope.Envelope) error {
	data, err := env.Marshal()
	if err != nil {
		return err
	}
	return b.rdb.Publish(b.ctx, eventsChannel, data).Err()
}

// Broadcast publishes a fire-and-forget domain event.
func (b *Broker) Broadcast(action, service string, data interface{}) {
	env, err := envelope.NewEvent(action, service, data)
	if err != nil {
		return
	}
	if err := b.Publish(env); err != nil {
		log.Printf("[BROKER] publish %s failed: %v", action, err)
	}
}

// On registers a handler for an action; handlers run on their own goroutine.
func (b *Broker) On(action string, fn HandlerFunc) {
	b.handlers.Store(action, fn)
}

// OnAny registers a catch-all handler for actions without a specific one.
func (b *Broker) OnAny(fn HandlerFunc) {
	b.handlers.Store("*", fn)
}

func (b *Broker) Subscribe() {
	sub := b.rdb.Subscribe(b.ctx, eventsChannel)
	ch := sub.Channel()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-b.ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope.Envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					continue
				}
				b.dispatch(env)
			}
		}
	}()
}

// dispatch runs the action-specific handler when one exists, otherwise the
// catch-all.
func (b *Broker) dispatch(env envelope.Envelope) {
	if fn, ok := b.handlers.Load(env.Action); ok {
		go fn.(HandlerFunc)(env)
		return
	}
	if fn, ok := b.handlers.Load("*"); ok {
		go fn.(HandlerFunc)(env)
	}
}

func (b *Broker) Close() {
	b.cancel()
}
