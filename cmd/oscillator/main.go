// Package main runs a bot that spirals around the arena center, mostly
// useful to check a session end to end.
package main

import (
	"flag"
	"log"
	"math"

	"github.com/pthm-cable/swarm/client"
	"github.com/pthm-cable/swarm/config"
	"github.com/pthm-cable/swarm/hex"
	"github.com/pthm-cable/swarm/loop"
	"github.com/pthm-cable/swarm/telemetry"
)

type oscillator struct {
	loop.BaseBot

	maxRadius   float64
	radiusSpeed float64
	angularVel  float64

	radius float64
	angle  float64
}

func (o *oscillator) Update(delta float64) error {
	if o.radius <= 0 || o.radius >= o.maxRadius {
		o.radius = math.Max(0, math.Min(o.radius, o.maxRadius))
		o.radiusSpeed = -o.radiusSpeed
	}

	o.radius += o.radiusSpeed * delta
	o.angle += o.angularVel * delta

	o.Client.SendPosition(hex.Vec{
		X: o.radius * math.Cos(o.angle),
		Y: o.radius * math.Sin(o.angle),
	})
	return nil
}

func main() {
	name := flag.String("name", "Oscillator", "Participant name")
	configPath := flag.String("config", "", "Config YAML file (empty = defaults)")
	period := flag.Float64("period", 4, "Seconds per revolution")
	flag.Parse()

	config.MustInit(*configPath)
	cfg := config.Cfg()

	manager := loop.NewManager(func() loop.Bot {
		return &oscillator{
			maxRadius:   cfg.Arena.Radius * 0.85,
			radiusSpeed: 100,
			angularVel:  2 * math.Pi / *period,
		}
	}, nil, loop.Params{
		FPS:          cfg.Loop.FPS,
		TPS:          cfg.Loop.TPS,
		MaxDeltaTime: cfg.Loop.MaxDeltaTime,
	})

	out, err := telemetry.NewOutput(cfg.Telemetry.Dir)
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()
	manager.SetTelemetry(out)

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
