package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/MirageTurtle/dify-marketplace-collections/internal/core/ports"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/interfaces/cli"
	"github.com/MirageTurtle/dify-marketplace-collections/internal/interfaces/di"
)

func main() {
	container, err := di.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

		<-sigChan
		container.Logger.Log(ports.LogLevelInfo, "received shutdown signal, finishing in-flight work", nil)
		cancel()

		// A second signal skips the graceful wind-down.
		<-sigChan
		os.Exit(1)
	}()

	cli.Execute(ctx, container.GetCLIContainer())
}
