// Package client connects the simulation core to the outside world: the
// HTTP bootstrap API, the session message bus and the control protocol that
// starts and stops rounds.
package client

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/loop"
	"github.com/pthm-cable/swarm/session"
)

// DefaultRadius is the arena circumradius the platform uses unless
// configured otherwise.
const DefaultRadius = 340.0

const (
	topicBase    = "swarm/session/%d"
	controlTopic = "%s/control/%s"
	updatesTopic = "%s/updates/%s"
	wildcardSlot = "#"
)

// Options tunes a Platform.
type Options struct {
	// Radius is the arena circumradius; zero means DefaultRadius.
	Radius float64
}

// Platform bridges the bus and the lifecycle manager. Control messages
// become session transitions, update messages become shared-state writes,
// and the bot's outbound positions go out on the client's update topic.
// It never touches the game loop or the scheduler directly.
type Platform struct {
	name    string
	manager *loop.Manager
	radius  float64

	api       *API
	bus       Bus
	sessionID int
	clientID  int

	mu       sync.Mutex
	question *session.Question

	disconnectOnce sync.Once
}

// NewPlatform builds a platform for one named bot.
func NewPlatform(name string, manager *loop.Manager, opts Options) *Platform {
	radius := opts.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Platform{
		name:    name,
		manager: manager,
		radius:  radius,
	}
}

// Connect joins the session over the API, wires the bus subscriptions and
// announces the client. Join failures (duplicate name, unknown session) are
// returned before anything starts.
func (p *Platform) Connect(api *API, bus Bus, sessionID int) error {
	clientID, err := api.Join(sessionID, p.name)
	if err != nil {
		return err
	}

	p.api = api
	p.bus = bus
	p.sessionID = sessionID
	p.clientID = clientID

	bus.SetHandler(p.onMessage)

	base := fmt.Sprintf(topicBase, sessionID)
	for _, filter := range []string{
		fmt.Sprintf(controlTopic, base, wildcardSlot),
		fmt.Sprintf(updatesTopic, base, wildcardSlot),
	} {
		if err := bus.Subscribe(filter); err != nil {
			return fmt.Errorf("subscribing to %s: %w", filter, err)
		}
	}

	// Wire the abort path before any control message can arrive: a round
	// that dies disconnects the bus, which in turn releases Listen.
	p.manager.SetErrHandler(func() { p.Disconnect() })
	p.manager.Start()

	slog.Info("joined session", "session", sessionID, "participant", clientID)
	return p.publishControl(map[string]any{
		"type":        "join",
		"participant": clientID,
		"session":     sessionID,
	})
}

// Listen blocks on the bus until disconnection. An error raised inside a
// round disconnects the bus and is returned here, to the outer caller.
func (p *Platform) Listen() error {
	slog.Info("listening for incoming bus messages")

	busErr := p.bus.Loop()

	p.Disconnect()
	p.manager.Quit()
	p.manager.Wait(0)

	if err := p.manager.Err(); err != nil {
		return err
	}
	return busErr
}

// Disconnect leaves the session and closes the bus, releasing Listen.
// Idempotent and safe to call from any goroutine.
func (p *Platform) Disconnect() {
	p.disconnectOnce.Do(func() {
		slog.Info("disconnecting from platform")

		if err := p.api.SetOffline(p.sessionID, p.clientID); err != nil {
			slog.Warn("could not set participant offline", "err", err)
		}
		if err := p.publishControl(map[string]any{
			"type":        "leave",
			"participant": p.clientID,
			"session":     p.sessionID,
		}); err != nil {
			slog.Warn("could not publish leave", "err", err)
		}
		if err := p.bus.Disconnect(); err != nil {
			slog.Warn("closing bus failed", "err", err)
		}
	})
}

// onMessage dispatches one inbound frame. Control frames carry a type
// field; everything else is a participant position update.
func (p *Platform) onMessage(msg Message) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg.Payload, &probe); err != nil {
		return
	}

	if probe.Type != "" {
		slog.Debug("received control message", "topic", msg.Topic, "type", probe.Type)
		if err := p.handleControl(msg.Payload); err != nil {
			p.manager.Fail(err)
		}
		return
	}

	p.handleUpdate(msg)
}

func (p *Platform) handleControl(payload []byte) error {
	var msg struct {
		Type         string          `json:"type"`
		CollectionID json.RawMessage `json:"collection_id"`
		QuestionID   int             `json:"question_id"`
		Duration     float64         `json:"duration"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil
	}

	switch msg.Type {
	case "setup":
		return p.setupQuestion(rawString(msg.CollectionID), msg.QuestionID)
	case "start":
		return p.startRound(msg.Duration)
	case "stop":
		p.manager.FinishSession()
		slog.Info("round stopped")
	}
	return nil
}

func (p *Platform) setupQuestion(collectionID string, questionID int) error {
	question, err := p.api.Question(collectionID, questionID)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.question = question
	p.mu.Unlock()

	slog.Info("question changed", "collection", collectionID, "question", questionID)
	return p.publishControl(map[string]any{
		"type":        "ready",
		"participant": p.clientID,
		"session":     p.sessionID,
	})
}

func (p *Platform) startRound(duration float64) error {
	p.mu.Lock()
	question := p.question
	p.mu.Unlock()

	if question == nil {
		return ErrCannotStartRound
	}

	participants, err := p.api.AllParticipants(p.sessionID)
	if err != nil {
		return err
	}

	answerPositions := hex.Layout(len(question.Answers), p.radius)
	round := &session.Round{
		Question:        question,
		Duration:        duration,
		Participants:    participants,
		AnswerPositions: answerPositions,
		Radius:          p.radius,
	}

	botClient := &BotClient{
		platform: p,
		codec:    hex.NewCodec(answerPositions),
		id:       p.clientID,
	}

	if err := p.manager.StartSession(round, botClient); err != nil {
		return err
	}
	slog.Info("round started", "duration", duration, "participants", len(participants))
	return nil
}

func (p *Platform) handleUpdate(msg Message) {
	idx := strings.LastIndex(msg.Topic, "/")
	if idx < 0 {
		return
	}
	participantID, err := strconv.Atoi(msg.Topic[idx+1:])
	if err != nil {
		return
	}
	if participantID == session.ServerParticipantID {
		return
	}

	var update updateMessage
	if err := json.Unmarshal(msg.Payload, &update); err != nil {
		return
	}
	p.manager.UpdatePosition(participantID, update.Data.Position)
}

func (p *Platform) publishControl(payload any) error {
	base := fmt.Sprintf(topicBase, p.sessionID)
	topic := fmt.Sprintf(controlTopic, base, strconv.Itoa(p.clientID))
	return p.bus.Publish(topic, payload)
}

func (p *Platform) publishUpdate(payload any) error {
	base := fmt.Sprintf(topicBase, p.sessionID)
	topic := fmt.Sprintf(updatesTopic, base, strconv.Itoa(p.clientID))
	return p.bus.Publish(topic, payload)
}

// rawString decodes a JSON value that may arrive as a string or a number.
func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}
