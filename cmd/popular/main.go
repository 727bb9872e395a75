// Package main runs a bot that drifts toward the answer most of the other
// participants are gathering around.
package main

import (
	"flag"
	"log"

	"github.com/pthm-cable/swarm/client"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/loop"
)

type popularBot struct {
	loop.BaseBot

	speed    float64
	minCount int
	stopDist float64
	maxDist  float64

	pos hex.Vec
}

func (b *popularBot) Update(delta float64) error {
	target, ok := b.popularAnswer()
	if ok && b.pos.Dist(target) > b.stopDist {
		dir := target.Sub(b.pos)
		b.pos = b.pos.Add(dir.Scale(b.speed * delta / dir.Norm()))
	}
	b.Client.SendPosition(b.pos)
	return nil
}

// popularAnswer returns the vertex of the answer closest to more other
// participants than any other, provided enough of them are near it.
func (b *popularBot) popularAnswer() (hex.Vec, bool) {
	answers := b.Round.AnswerPositions
	counts := make([]int, len(answers))

	for _, pos := range b.Snapshot.Others() {
		closest, _ := hex.Sector(pos, answers)
		if pos.Dist(answers[closest]) <= b.maxDist {
			counts[closest]++
		}
	}

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	if counts[best] <= b.minCount {
		return hex.Vec{}, false
	}
	return answers[best], true
}

func main() {
	name := flag.String("name", "MoveToPopular", "Participant name")
	configPath := flag.String("config", "", "Config YAML file (empty = defaults)")
	flag.Parse()

	config.MustInit(*configPath)
	cfg := config.Cfg()

	manager := loop.NewManager(func() loop.Bot {
		return &popularBot{
			speed:    150,
			minCount: 1,
			stopDist: 10,
			maxDist:  230,
		}
	}, nil, loop.Params{
		FPS:          cfg.Loop.FPS,
		TPS:          cfg.Loop.TPS,
		MaxDeltaTime: cfg.Loop.MaxDeltaTime,
	})

	bus, err := client.DialBus(cfg.Broker.Host, cfg.Broker.Port)
	if err != nil {
		log.Fatal(err)
	}

	platform := client.NewPlatform(*name, manager, client.Options{Radius: cfg.Arena.Radius})
	if err := platform.Connect(client.NewAPI(cfg.API.Host, cfg.API.Port), bus, cfg.Session.ID); err != nil {
		log.Fatal(err)
	}
	if err := platform.Listen(); err != nil {
		log.Fatal(err)
	}
}
