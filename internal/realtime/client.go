// Package realtime implements the client side of the realtime gateway: a
// single WebSocket connection multiplexing broadcast channels and row-level
// change feeds into per-channel subscriptions.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"chat-client/internal/observability"
)

// Handler consumes a raw event payload. Handlers for the same channel are
// invoked in arrival order; no ordering holds across channels.
type Handler func(payload json.RawMessage)

// Envelope is the wire format for every gateway event in both directions.
type Envelope struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Subscriber registers handlers for inbound events.
type Subscriber interface {
	Subscribe(channel, event string, h Handler) *Subscription
}

// Publisher sends broadcast events to a channel.
type Publisher interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// Client is a realtime gateway connection. It reconnects with capped
// exponential backoff when the connection drops; subscriptions survive
// reconnects.
type Client struct {
	url    string
	dialer *websocket.Dialer

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	subMu  sync.RWMutex
	subs   map[string]map[int]Handler
	nextID int

	closed chan struct{}
	once   sync.Once
}

var _ Subscriber = (*Client)(nil)
var _ Publisher = (*Client)(nil)

// Dial connects to the gateway and starts the read loop.
func Dial(ctx context.Context, url string) (*Client, error) {
	c := &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		subs:   make(map[string]map[int]Handler),
		closed: make(chan struct{}),
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) connect(ctx context.Context) error {
	ctx, span := otel.Tracer("chat-client/realtime").Start(ctx, "realtime.handshake")
	defer span.End()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	return nil
}

// Subscribe registers a handler for events on a channel. Use EventAny to
// receive every event of the channel. The returned subscription must be
// cancelled by the caller; there is no automatic teardown.
func (c *Client) Subscribe(channel, event string, h Handler) *Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	key := channel + "/" + event
	if c.subs[key] == nil {
		c.subs[key] = make(map[int]Handler)
	}
	c.nextID++
	id := c.nextID
	c.subs[key][id] = h
	observability.IncActiveSubscriptions()

	return &Subscription{client: c, key: key, id: id}
}

// Publish sends a broadcast event. The payload is marshalled to JSON.
func (c *Client) Publish(ctx context.Context, channel, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	env := Envelope{Channel: channel, Event: event, Payload: body}

	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(env)
}

// Close tears the connection down. Pending subscriptions are dropped.
func (c *Client) Close() error {
	c.once.Do(func() { close(c.closed) })
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	r := newReconnector()
	for {
		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		var env Envelope
		err := conn.ReadJSON(&env)
		if err == nil {
			r.markConnected()
			c.dispatch(env)
			continue
		}

		select {
		case <-c.closed:
			return
		default:
		}

		if !r.shouldReconnect() {
			log.Printf("realtime: giving up after %d reconnect attempts: %v", r.attempt, err)
			return
		}

		delay := r.nextDelay()
		log.Printf("realtime: connection lost (%v), reconnecting in %s", err, delay)
		observability.IncRealtimeReconnect()
		select {
		case <-time.After(delay):
		case <-c.closed:
			return
		}

		if err := c.connect(context.Background()); err != nil {
			log.Printf("realtime: reconnect failed: %v", err)
		}
	}
}

// dispatch runs handlers synchronously so that per-channel FIFO order is
// preserved.
func (c *Client) dispatch(env Envelope) {
	observability.IncRealtimeEvent(env.Channel, env.Event)

	c.subMu.RLock()
	handlers := make([]Handler, 0, 4)
	for _, h := range c.subs[env.Channel+"/"+env.Event] {
		handlers = append(handlers, h)
	}
	for _, h := range c.subs[env.Channel+"/"+EventAny] {
		handlers = append(handlers, h)
	}
	c.subMu.RUnlock()

	for _, h := range handlers {
		h(env.Payload)
	}
}

// Subscription is the cancellation handle for a registered handler.
// Unsubscribe is idempotent.
type Subscription struct {
	client *Client
	key    string
	id     int
	once   sync.Once
}

// Unsubscribe removes the handler. Events already in flight may still be
// delivered.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.client.subMu.Lock()
		defer s.client.subMu.Unlock()
		if handlers, ok := s.client.subs[s.key]; ok {
			delete(handlers, s.id)
			if len(handlers) == 0 {
				delete(s.client.subs, s.key)
			}
			observability.DecActiveSubscriptions()
		}
	})
}
