package client

import (
	"errors"
	"log/slog"
	"time"

	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/loop"
)

var _ loop.Client = (*BotClient)(nil)

// BotClient is the per-round handle bots publish through. It implements
// loop.Client.
type BotClient struct {
	platform *Platform
	codec    *hex.Codec
	id       int
}

// ID returns the participant id the server assigned at join time.
func (c *BotClient) ID() int { return c.id }

// Codec returns the round's position codec.
func (c *BotClient) Codec() *hex.Codec { return c.codec }

// SendPosition encodes and publishes a position. A point whose encoding
// basis is singular is logged and dropped; the round keeps running.
func (c *BotClient) SendPosition(p hex.Vec) {
	encoded, err := c.codec.Encode(p)
	if err != nil {
		if errors.Is(err, hex.ErrSingularEncoding) {
			slog.Warn("cannot encode position, dropping send", "x", p.X, "y", p.Y)
			return
		}
		slog.Warn("encoding position failed, dropping send", "err", err)
		return
	}
	c.SendEncoded(encoded)
}

// SendEncoded publishes an already-encoded position unchanged.
func (c *BotClient) SendEncoded(encoded []float64) {
	err := c.platform.publishUpdate(updateMessage{
		Data:      updateData{Position: encoded},
		TimeStamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		slog.Warn("publishing position failed", "err", err)
	}
}

type updateData struct {
	Position []float64 `json:"position"`
}

type updateMessage struct {
	Data      updateData `json:"data"`
	TimeStamp string     `json:"timeStamp,omitempty"`
}
