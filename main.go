// gotube - a tube toolkit: one uniform byte-stream interface over
// TCP, TLS, proxied, websocket, and child-process peers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gotube/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "gotube: %v\n", err)
		os.Exit(1)
	}
}
