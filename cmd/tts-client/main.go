// TTS client - adjusts volume and speaks a preset reply or text on the G1 robot
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
	code := cli.RunTTS(ctx, os.Args[1:], cli.DefaultEnv())
	cancel()
	os.Exit(code)
}
