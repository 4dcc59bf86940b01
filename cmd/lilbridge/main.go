package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"log"

	"github.com/golang/glog"

	"github.com/robotalks/lillib.go/pkg/aes"
	"github.com/robotalks/lillib.go/pkg/bridge"
	"github.com/robotalks/lillib.go/pkg/env"
	"github.com/robotalks/lillib.go/pkg/framework"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/twi/sim"
)

var sboxName = "table"

func init() {
	env.SetupFlags()
	twi.SetupFlags()
	sim.SetupFlags()
	flag.StringVar(&sboxName, "sbox", sboxName, "S-box strategy: table or computed.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	sb, ok := aes.SBoxByName(sboxName)
	if !ok {
		log.Fatalf("unknown sbox %q", sboxName)
	}
	bus, mems := sim.Default().MustNewBus()
	engine := twi.Default().MustNewEngine(bus)
	bus.Handler = engine.HandleInterrupt
	for addr, mem := range mems {
		glog.Infof("simulated target 0x%02x: %d bytes", addr, len(mem.Bytes()))
	}

	conf := env.Default()
	server := bridge.NewServer(engine, aes.New(sb))
	err := framework.NewRunner().HandleSignals().Go(
		framework.NamedRun("sim-bus", framework.RunFunc(bus.Run)),
		framework.NamedRun("bridge", framework.RunFunc(func(ctx context.Context) error {
			return conf.Serve(ctx, server)
		})),
	).Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
