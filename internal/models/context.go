package models

import "context"

type transferReferenceKey struct{}

// WithTransferReference attaches a reference to a context so ledger backends
// can record it with the next transfer without widening the ledger interface.
// Durable backends treat the reference as an idempotency key.
func WithTransferReference(ctx context.Context, reference string) context.Context {
	return context.WithValue(ctx, transferReferenceKey{}, reference)
}

// GetTransferReference retrieves the transfer reference from context, or "" if absent.
func GetTransferReference(ctx context.Context) string {
	ref, _ := ctx.Value(transferReferenceKey{}).(string)
	return ref
}
