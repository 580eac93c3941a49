package auth

import (
	"context"

	"github.com/fsuperadmin/backend/internal/domain/collection"
)

type operatorKey struct{}

// WithOperator stores the authenticated operator in ctx
func WithOperator(ctx context.Context, op *collection.Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the operator stored by WithOperator, if any
func OperatorFromContext(ctx context.Context) (*collection.Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(*collection.Operator)
	return op, ok && op != nil
}

// ContextIdentity resolves the operator placed in the request context by the
// JWT middleware.
type ContextIdentity struct{}

// Operator returns the operator or collection.ErrSessionExpired
func (ContextIdentity) Operator(ctx context.Context) (*collection.Operator, error) {
	op, ok := OperatorFromContext(ctx)
	if !ok || op.ID == "" {
		return nil, collection.ErrSessionExpired
	}
	return op, nil
}

var _ collection.IdentityProvider = ContextIdentity{}
