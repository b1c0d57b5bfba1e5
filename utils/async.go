package utils

import "context"

// CallWithContext runs fn on its own goroutine and returns when fn finishes
// or ctx is done, whichever comes first. For clients without context
// support; fn keeps running after ctx is done and its result is dropped.
func CallWithContext(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
