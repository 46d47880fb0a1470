package global

import (
	"log/slog"
)

//go:generate moq -pkg mocks -out ./mocks/stoppable_mock.go . Stoppable
//go:generate moq -pkg mocks -out ./mocks/closer_mock.go . Closer

// Stoppable is a component with background work to stop on shutdown.
type Stoppable interface {
	Shutdown()
}

// Closer is a component holding a resource, like a database connection.
type Closer interface {
	Close() error
}

type Stoppables []Stoppable

// Shutdown stops the components in reverse order of registration.
func (s Stoppables) Shutdown() {
	for i := len(s) - 1; i >= 0; i-- {
		s[i].Shutdown()
	}
}

type Closers []Closer

// Close closes all resources in reverse order. Failures are logged, the remaining resources are still closed.
func (c Closers) Close(logger *slog.Logger) {
	for i := len(c) - 1; i >= 0; i-- {
		err := c[i].Close()
		if err != nil {
			logger.Error("Failed to close resource", slog.String("err", err.Error()))
		}
	}
}
