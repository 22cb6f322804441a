package content

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRelayChannel is the Redis channel used when none is configured.
const DefaultRelayChannel = "metalworks:events"

// RedisRelay forwards local bus events to a Redis channel and republishes
// events from other instances on the local bus, so every instance drops its
// caches after a write anywhere.
type RedisRelay struct {
	client  *redis.Client
	channel string
	origin  string
	bus     *Bus
	log     Logger

	// send is replaced in tests.
	send func(ctx context.Context, payload string) error

	unsubscribe func()
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewRedisRelay connects to the Redis server at url
// (redis://host:port/db) and checks the connection.
func NewRedisRelay(url, channel string, bus *Bus, log Logger) (*RedisRelay, error) {
	if url == "" {
		return nil, errors.New("redis URL is required")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	r := newRelay(channel, bus, log)
	r.client = client
	r.send = func(ctx context.Context, payload string) error {
		return client.Publish(ctx, r.channel, payload).Err()
	}
	return r, nil
}

func newRelay(channel string, bus *Bus, log Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if log == nil {
		log = nopLogger{}
	}
	return &RedisRelay{channel: channel, origin: uuid.NewString(), bus: bus, log: log}
}

// Origin is the instance id stamped on forwarded events.
func (r *RedisRelay) Origin() string { return r.origin }

// Start subscribes to the local bus and, when connected, to the Redis
// channel. It returns once both subscriptions are in place.
func (r *RedisRelay) Start(ctx context.Context) error {
	r.unsubscribe = r.bus.Subscribe(r.forward)
	if r.client == nil {
		return nil
	}
	ctx, r.cancel = context.WithCancel(ctx)
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		r.unsubscribe()
		r.cancel()
		r.cancel = nil
		return err
	}
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				r.handleMessage(msg.Payload)
			}
		}
	}()
	return nil
}

// forward publishes local events to Redis. Remote events are not echoed.
func (r *RedisRelay) forward(e Event) {
	if !e.Local() || r.send == nil {
		return
	}
	e.Origin = r.origin
	payload, err := json.Marshal(e)
	if err != nil {
		r.log.Errorf("relay: encode event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.send(ctx, string(payload)); err != nil {
		r.log.Errorf("relay: publish %s %s: %v", e.Op, e.Kind, err)
	}
}

// handleMessage republishes an event received from another instance.
func (r *RedisRelay) handleMessage(payload string) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		r.log.Errorf("relay: decode event: %v", err)
		return
	}
	if e.Origin == "" || e.Origin == r.origin {
		return
	}
	r.bus.Publish(e)
}

// Close stops the relay and closes the Redis connection.
func (r *RedisRelay) Close() error {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
