// wirelink - a client for length-framed document exchange over TCP
// with opportunistic in-band TLS.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wirelink/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wirelink: %v\n", err)
		os.Exit(1)
	}
}
