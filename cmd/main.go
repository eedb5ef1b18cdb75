package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/glwatch/internal/cli"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		// Logging may not be initialized when flags or config are invalid.
		os.Stderr.WriteString("glwatch: " + err.Error() + "\n")
		os.Exit(1)
	}
}
