// Package inject hands transcribed text to the rest of the desktop.
package inject

import (
	"context"
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when the platform has no usable clipboard
// (for example Linux without xclip, xsel or wl-copy).
var ErrUnsupported = errors.New("clipboard unavailable")

// Injector defines the interface for text injection
type Injector interface {
	Copy(ctx context.Context, text string) error
}

type clipboardInjector struct {
	write       func(string) error
	unsupported bool
}

// New returns an Injector that writes to the system clipboard.
func New() Injector {
	return &clipboardInjector{
		write:       clipboard.WriteAll,
		unsupported: clipboard.Unsupported,
	}
}

func (c *clipboardInjector) Copy(ctx context.Context, text string) error {
	if c.unsupported {
		return ErrUnsupported
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- c.write(text) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		return nil
	}
}
