// Audio simulator - stands in for the G1 voice service and ASR publisher
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-g1audio/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := cli.RunSim(ctx, os.Args[1:], cli.DefaultEnv())
	cancel()
	os.Exit(code)
}
