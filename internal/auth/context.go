package auth

import "context"

type operatorContextKey struct{}

// WithOperator attaches an authenticated Operator to the context.
func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// OperatorFromContext retrieves the Operator attached by WithOperator.
func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorContextKey{}).(Operator)
	return op, ok
}
