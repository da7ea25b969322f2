package crawler

import "context"

// Worker is a long-running background task started by the bot process.
type Worker interface {
	Run(ctx context.Context) error
	Name() string
}
