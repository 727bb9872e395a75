package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// envelope is the JSON frame WSBus exchanges with the broker bridge. Data
// frames carry topic+payload; subscribe frames carry only the filter.
type envelope struct {
	Topic     string          `json:"topic,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Subscribe string          `json:"subscribe,omitempty"`
}

// WSBus implements Bus over a single websocket connection. Frames are JSON
// envelopes; topic filtering happens client-side against the registered
// subscriptions, so a bridge that fans out more than asked for is fine.
type WSBus struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	handler Handler
	filters []string

	closeOnce sync.Once
	closed    chan struct{}
}

// DialBus connects to a broker bridge at host:port. Every connection gets a
// fresh transport-level client id.
func DialBus(host string, port int) (*WSBus, error) {
	url := fmt.Sprintf("ws://%s:%d/?client=%s", host, port, uuid.NewString())
	slog.Info("connecting to broker", "url", url)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}
	return &WSBus{conn: conn, closed: make(chan struct{})}, nil
}

// Publish JSON-encodes payload and sends it on topic.
func (b *WSBus) Publish(topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload for %s: %w", topic, err)
	}
	slog.Debug("publishing", "topic", topic, "payload", string(raw))
	return b.write(envelope{Topic: topic, Payload: raw})
}

// Subscribe registers a topic filter both locally and with the bridge.
func (b *WSBus) Subscribe(filter string) error {
	b.mu.Lock()
	b.filters = append(b.filters, filter)
	b.mu.Unlock()

	slog.Debug("subscribing", "filter", filter)
	return b.write(envelope{Subscribe: filter})
}

// SetHandler installs the inbound frame handler.
func (b *WSBus) SetHandler(h Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Loop reads frames until the connection closes. Frames that are not valid
// envelopes or match no subscription are dropped.
func (b *WSBus) Loop() error {
	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			select {
			case <-b.closed:
				return nil
			default:
				return fmt.Errorf("bus read: %w", err)
			}
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Topic == "" {
			continue
		}

		b.mu.Lock()
		handler := b.handler
		matched := false
		for _, f := range b.filters {
			if MatchTopic(f, env.Topic) {
				matched = true
				break
			}
		}
		b.mu.Unlock()

		if matched && handler != nil {
			handler(Message{Topic: env.Topic, Payload: env.Payload})
		}
	}
}

// Disconnect closes the connection and releases Loop. Idempotent.
func (b *WSBus) Disconnect() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.closed)
		b.writeMu.Lock()
		b.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		b.writeMu.Unlock()
		err = b.conn.Close()
	})
	return err
}

func (b *WSBus) write(env envelope) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	return b.conn.WriteJSON(env)
}
