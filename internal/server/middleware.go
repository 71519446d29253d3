package server

import (
	"context"
	"net/http"
	"time"

	"github.com/stanadevale/trailrace/internal/trailrace"
)

type ctxKey int

const ctxKeyAdmin ctxKey = iota

func adminAuthMiddleware(st SessionStore, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := adminFromRequest(r, st, now())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminFrom(r *http.Request) trailrace.User {
	u, _ := r.Context().Value(ctxKeyAdmin).(trailrace.User)
	return u
}
