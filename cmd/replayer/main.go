// Package main runs a bot that moves by replaying recorded trajectories,
// warping each one between its current position and a random point near an
// answer vertex.
package main

import (
	"flag"
	"log"
	"math/rand"
	"strings"

	"github.com/pthm-cable/swarm/client"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/loop"
	"github.com/pthm-cable/swarm/trajectory"
)

type replayerBot struct {
	loop.BaseBot

	trajectories []*trajectory.Trajectory
	replaySecs   float64

	gen *trajectory.Generator
	pos hex.Vec
}

func (b *replayerBot) Setup(loop.Args) error {
	b.gen = trajectory.NewGenerator(b.Round.Radius, b.Round.AnswerPositions)
	b.armNext()
	return nil
}

func (b *replayerBot) Update(delta float64) error {
	if b.gen.HasFinished() {
		b.armNext()
	}

	pos, err := b.gen.Step(delta)
	if err != nil {
		return err
	}
	b.pos = pos
	b.Client.SendPosition(pos)
	return nil
}

// armNext starts a replay from the current position to a point pulled
// slightly inward from a random answer vertex.
func (b *replayerBot) armNext() {
	traj := b.trajectories[rand.Intn(len(b.trajectories))]
	vertex := b.Round.AnswerPositions[rand.Intn(len(b.Round.AnswerPositions))]
	end := vertex.Scale(0.8 + 0.15*rand.Float64())

	b.gen.SetTrajectory(b.pos, end, traj, trajectory.Options{Duration: b.replaySecs})
}

func main() {
	name := flag.String("name", "Replayer", "Participant name")
	configPath := flag.String("config", "", "Config YAML file (empty = defaults)")
	paths := flag.String("trajectories", "", "Comma-separated trajectory CSV files")
	replaySecs := flag.Float64("replay-secs", 3, "Seconds per replay")
	flag.Parse()

	if *paths == "" {
		log.Fatal("--trajectories is required")
	}

	var trajectories []*trajectory.Trajectory
	for _, path := range strings.Split(*paths, ",") {
		traj, err := trajectory.LoadFile(strings.TrimSpace(path))
		if err != nil {
			log.Fatal(err)
		}
		trajectories = append(trajectories, traj)
	}

	config.MustInit(*configPath)
	cfg := config.Cfg()

	manager := loop.NewManager(func() loop.Bot {
		return &replayerBot{trajectories: trajectories, replaySecs: *replaySecs}
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
