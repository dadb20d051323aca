// Voice command - answers drink requests heard by the G1 robot with preset replies
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
	code := cli.RunVoiceCommand(ctx, os.Args[1:], cli.DefaultEnv())
	cancel()
	os.Exit(code)
}
