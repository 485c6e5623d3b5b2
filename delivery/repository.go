package delivery

import "context"

/* Writer persists delivery results for audit and inspection
 * Write-only from the dispatch pipeline's perspective; reading history
 * back is an adapter concern
 */
type Writer interface {
	StoreResult(ctx context.Context, notificationID string, result Result) error
}

// WriterFunc adapts a function to the Writer interface
type WriterFunc func(ctx context.Context, notificationID string, result Result) error

func (f WriterFunc) StoreResult(ctx context.Context, notificationID string, result Result) error {
	return f(ctx, notificationID, result)
}
