package main

import (
	"github.com/robotalks/lillib.go/pkg/cli/sh"
	"github.com/robotalks/lillib.go/pkg/env"
	"github.com/robotalks/lillib.go/pkg/twi"
	"github.com/robotalks/lillib.go/pkg/twi/sim"

	_ "github.com/robotalks/lillib.go/pkg/cli/cmds/all"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
	twi.SetupFlags()
	sim.SetupFlags()
}

func main() {
	sh.Main()
}
