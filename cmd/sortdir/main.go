package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process status: 0 on success, 2 when
// the run finished with per-file failures, 1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var partial *partialError
	if errors.As(err, &partial) {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	return 1
}

// partialError reports a run that completed but could not organize everything.
type partialError struct {
	failures int
}

func (e *partialError) Error() string {
	if e.failures == 1 {
		return "1 item could not be organized"
	}
	return fmt.Sprintf("%d items could not be organized", e.failures)
}
