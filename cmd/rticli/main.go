package main

import (
	"github.com/robotalks/rtio/pkg/cli/sh"
	"github.com/robotalks/rtio/pkg/config"
)

//go-build: CGO_ENABLED=0

func init() {
	config.SetupFlags()
}

func main() {
	sh.Main()
}
