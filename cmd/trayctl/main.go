package main

import (
	"context"
	"os"

	"github.com/yndnr/trayctl/internal/cli/command"
)

func main() {
	os.Exit(command.Run(context.Background(), os.Args))
}
