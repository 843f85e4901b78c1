package errors

import "context"

type ctxKey string

const positionIDKey ctxKey = "position_id"

// WithPositionID tags ctx with the position being evaluated
func WithPositionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, positionIDKey, id)
}

// PositionIDFromContext returns the position tagged by WithPositionID
func PositionIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(positionIDKey).(string)
	return id, ok && id != ""
}
