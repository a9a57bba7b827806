package main

import (
	"os"

	_ "go.uber.org/automaxprocs"

	app "github.com/kart-io/adas-copilot/internal/copilot"
)

func main() {
	if err := app.NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
