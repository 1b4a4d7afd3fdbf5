package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"spot-the-difference/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		log.Printf("❌ %v", err)
		stop()
		os.Exit(1)
	}
}
