package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/loop"
)

// fakeBus implements Bus in memory so tests can inject frames.
type fakeBus struct {
	mu        sync.Mutex
	handler   Handler
	filters   []string
	published []Message

	loopDone  chan struct{}
	closeOnce sync.Once
}

func newFakeBus() *fakeBus {
	return &fakeBus{loopDone: make(chan struct{})}
}

func (b *fakeBus) Publish(topic string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.published = append(b.published, Message{Topic: topic, Payload: raw})
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) Subscribe(filter string) error {
	b.mu.Lock()
	b.filters = append(b.filters, filter)
	b.mu.Unlock()
	return nil
}

func (b *fakeBus) SetHandler(h Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

func (b *fakeBus) Loop() error {
	<-b.loopDone
	return nil
}

func (b *fakeBus) Disconnect() error {
	b.closeOnce.Do(func() { close(b.loopDone) })
	return nil
}

// inject delivers a frame as if the broker had published it.
func (b *fakeBus) inject(topic, payload string) {
	b.mu.Lock()
	handler := b.handler
	matched := false
	for _, f := range b.filters {
		if MatchTopic(f, topic) {
			matched = true
			break
		}
	}
	b.mu.Unlock()

	if matched && handler != nil {
		handler(Message{Topic: topic, Payload: []byte(payload)})
	}
}

func (b *fakeBus) publishedOfType(msgType string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []Message
	for _, msg := range b.published {
		var probe struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(msg.Payload, &probe) == nil && probe.Type == msgType {
			out = append(out, msg)
		}
	}
	return out
}

// testBot reports its lifecycle over channels.
type testBot struct {
	loop.BaseBot

	setups  chan struct{}
	closes  chan struct{}
	othersC chan map[int]hex.Vec
}

func (b *testBot) Setup(loop.Args) error {
	b.setups <- struct{}{}
	return nil
}

func (b *testBot) Update(float64) error {
	select {
	case b.othersC <- b.Snapshot.Others():
	default:
	}
	b.Client.SendPosition(hex.Vec{X: 10, Y: -20})
	return nil
}

func (b *testBot) Close() error {
	b.closes <- struct{}{}
	return nil
}

func newTestServer(t *testing.T) *API {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session/1/participants", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"id": 5})
	})
	mux.HandleFunc("POST /api/session/1/participants/5", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("GET /api/question/col/7", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"question": "pick a corner",
			"answers":  []string{"a", "b", "c", "d", "e", "f"},
		})
	})
	mux.HandleFunc("GET /api/question/col/7/image", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte{0x89, 0x50, 0x4e, 0x47})
	})
	mux.HandleFunc("POST /api/session/1/allParticipants", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"username": "bot", "id": 5},
			{"username": "human", "id": 2},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatal(err)
	}
	return NewAPI(u.Hostname(), port)
}

func newConnectedPlatform(t *testing.T) (*Platform, *fakeBus, *testBot, chan error) {
	t.Helper()

	bot := &testBot{
		setups:  make(chan struct{}, 4),
		closes:  make(chan struct{}, 4),
		othersC: make(chan map[int]hex.Vec, 64),
	}
	manager := loop.NewManager(func() loop.Bot { return bot }, nil, loop.Params{})
	platform := NewPlatform("bot", manager, Options{Radius: 430})
	bus := newFakeBus()

	if err := platform.Connect(newTestServer(t), bus, 1); err != nil {
		t.Fatal(err)
	}

	listenErr := make(chan error, 1)
	go func() { listenErr <- platform.Listen() }()
	return platform, bus, bot, listenErr
}

func TestConnectSubscribesAndJoins(t *testing.T) {
	platform, bus, _, listenErr := newConnectedPlatform(t)
	defer func() {
		platform.Disconnect()
		<-listenErr
	}()

	bus.mu.Lock()
	filters := append([]string(nil), bus.filters...)
	bus.mu.Unlock()

	wantFilters := map[string]bool{
		"swarm/session/1/control/#": false,
		"swarm/session/1/updates/#": false,
	}
	for _, f := range filters {
		if _, ok := wantFilters[f]; ok {
			wantFilters[f] = true
		}
	}
	for f, seen := range wantFilters {
		if !seen {
			t.Errorf("missing subscription %q", f)
		}
	}

	if got := bus.publishedOfType("join"); len(got) != 1 {
		t.Fatalf("got %d join messages, want 1", len(got))
	}
}

func TestRoundFlow(t *testing.T) {
	platform, bus, bot, listenErr := newConnectedPlatform(t)

	bus.inject("swarm/session/1/control/0", `{"type":"setup","collection_id":"col","question_id":7}`)
	if got := bus.publishedOfType("ready"); len(got) != 1 {
		t.Fatalf("got %d ready messages after setup, want 1", len(got))
	}

	bus.inject("swarm/session/1/control/0", `{"type":"start","duration":30}`)
	select {
	case <-bot.setups:
	case <-time.After(5 * time.Second):
		t.Fatal("bot never set up after start")
	}

	// A position update for participant 2 becomes visible in snapshots.
	bus.inject("swarm/session/1/updates/2", `{"data":{"position":[1,0,0,0,0,0]}}`)
	deadline := time.After(5 * time.Second)
	for {
		var others map[int]hex.Vec
		select {
		case others = <-bot.othersC:
		case <-deadline:
			t.Fatal("update never reached a snapshot")
		}
		if others[2] == (hex.Vec{X: 0, Y: -430}) {
			break
		}
	}

	// The bot's own sends go out on its update topic.
	waitUntil(t, func() bool {
		bus.mu.Lock()
		defer bus.mu.Unlock()
		for _, msg := range bus.published {
			if msg.Topic == "swarm/session/1/updates/5" {
				return true
			}
		}
		return false
	})

	// Stop closes the bot exactly once and the round goes quiet.
	bus.inject("swarm/session/1/control/0", `{"type":"stop"}`)
	select {
	case <-bot.closes:
	case <-time.After(5 * time.Second):
		t.Fatal("bot never closed after stop")
	}
	select {
	case <-bot.closes:
		t.Fatal("bot closed twice")
	case <-time.After(100 * time.Millisecond):
	}

	platform.Disconnect()
	if err := <-listenErr; err != nil {
		t.Fatalf("Listen returned %v", err)
	}

	if got := bus.publishedOfType("leave"); len(got) != 1 {
		t.Fatalf("got %d leave messages, want 1", len(got))
	}
}

func TestStartBeforeSetupAborts(t *testing.T) {
	_, bus, _, listenErr := newConnectedPlatform(t)

	bus.inject("swarm/session/1/control/0", `{"type":"start","duration":30}`)

	select {
	case err := <-listenErr:
		if !errors.Is(err, ErrCannotStartRound) {
			t.Fatalf("Listen returned %v, want ErrCannotStartRound", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after the failed start")
	}
}

func TestMalformedMessagesDropped(t *testing.T) {
	platform, bus, bot, listenErr := newConnectedPlatform(t)
	defer func() {
		platform.Disconnect()
		<-listenErr
	}()

	// None of these may start a round or kill the session.
	bus.inject("swarm/session/1/control/0", `not json at all`)
	bus.inject("swarm/session/1/control/0", `{"no_type":"here"}`)
	bus.inject("swarm/session/1/updates/notanumber", `{"data":{"position":[1,0]}}`)
	bus.inject("swarm/session/1/updates/0", `{"data":{"position":[1,0,0,0,0,0]}}`)

	select {
	case <-bot.setups:
		t.Fatal("malformed message started a round")
	case <-time.After(100 * time.Millisecond):
	}
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}
