package contextx

import (
	"context"
	"fmt"
)

// UserID identifies the marketplace user acting in a request, when known.
type UserID int64

type contextKeyUserID struct{}

func (u UserID) Int64() int64 {
	return int64(u)
}

func WithUserID(ctx context.Context, userID UserID) context.Context {
	return context.WithValue(ctx, contextKeyUserID{}, userID)
}

func UserIDFromContext(ctx context.Context) (UserID, error) {
	userID, ok := ctx.Value(contextKeyUserID{}).(UserID)
	if !ok {
		return 0, fmt.Errorf("user id: %w", ErrNoValue)
	}

	return userID, nil
}
