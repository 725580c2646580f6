package testutil

import (
	"context"
	"net/http"
	"time"

	id "convocatorias/pkg/domain"
	"convocatorias/pkg/requestcontext"
)

// Ctx builds a context carrying an acting user and a pinned clock, the two
// request-scoped values services read.
func Ctx(userID id.UserID, now time.Time) context.Context {
	ctx := requestcontext.WithUserID(context.Background(), userID)
	return requestcontext.WithTime(ctx, now)
}

// AsUser attaches the identity header the gateway would set.
func AsUser(req *http.Request, userID id.UserID) *http.Request {
	req.Header.Set("X-User-Id", userID.String())
	return req
}
