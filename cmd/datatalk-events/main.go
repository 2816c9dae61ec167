package main

import (
	"os"

	"github.com/datatalk-cz/events-bot/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
