package cache

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"livequiz/services"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "game:"

type envelope struct {
	Type    services.EventType `json:"type"`
	To      uint               `json:"to,omitempty"`
	Payload json.RawMessage    `json:"payload"`
}

type outgoing struct {
	channel string
	data    []byte
}

// RedisBus fans game events out through Redis pub/sub so every process
// holding sockets for a game delivers them. Events are published in order
// by a single worker and relayed to the local hub by the subscriber.
type RedisBus struct {
	client *redis.Client
	local  services.Publisher
	queue  chan outgoing
}

func NewRedisBus(client *redis.Client, local services.Publisher) *RedisBus {
	return &RedisBus{
		client: client,
		local:  local,
		queue:  make(chan outgoing, 1024),
	}
}

func channelFor(code string) string {
	return channelPrefix + code
}

func (b *RedisBus) Publish(code string, ev services.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("bus: failed to marshal %s for %s: %v", ev.Type, code, err)
		return
	}
	// Callers hold the game lock; never block on a stalled Redis.
	select {
	case b.queue <- outgoing{channel: channelFor(code), data: data}:
	default:
		log.Printf("bus: queue full, dropping %s for %s", ev.Type, code)
	}
}

// Run publishes queued events and relays subscribed ones until ctx is done.
func (b *RedisBus) Run(ctx context.Context) {
	pubsub := b.client.PSubscribe(ctx, channelPrefix+"*")
	defer pubsub.Close()

	go b.publishLoop(ctx)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.relay(msg.Channel, []byte(msg.Payload))
		}
	}
}

func (b *RedisBus) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-b.queue:
			if err := b.client.Publish(ctx, out.channel, out.data).Err(); err != nil {
				log.Printf("bus: publish to %s failed: %v", out.channel, err)
			}
		}
	}
}

func (b *RedisBus) relay(channel string, data []byte) {
	code := strings.TrimPrefix(channel, channelPrefix)
	if code == channel || code == "" {
		return
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Printf("bus: dropping malformed event on %s: %v", channel, err)
		return
	}
	b.local.Publish(code, services.Event{Type: env.Type, To: env.To, Payload: env.Payload})
}
