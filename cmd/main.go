package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"leverguard/internal/bootstrap"
)

func main() {
	c := bootstrap.NewContainer()

	if err := c.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		if c.Log != nil {
			c.Shutdown()
		}
		os.Exit(1)
	}

	if err := c.Start(); err != nil {
		c.Log.Errorf("Failed to start: %v", err)
		c.Shutdown()
		os.Exit(1)
	}

	waitForShutdown(c)
	c.Shutdown()
}

// waitForShutdown blocks until SIGINT/SIGTERM or a fatal component error
func waitForShutdown(c *bootstrap.Container) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		c.Log.Infow("Shutdown signal received", "signal", sig.String())
	case <-c.Context.Done():
		c.Log.Warn("Application context cancelled")
	}
}
