package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/shotbox/shotbox/internal/database"
	"github.com/shotbox/shotbox/internal/model"
)

type contextKey string

const userKey contextKey = "user"

// IdentityMiddleware resolves the authenticated user for a request. The
// fronting layer owns sessions and OAuth; it passes the established identity
// as an X-User-ID header, which is looked up in the store. Requests without
// the header pass through anonymously.
func IdentityMiddleware(db database.Database) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("X-User-ID")
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			id, err := strconv.ParseInt(header, 10, 64)
			if err != nil {
				Unauthorized(w)
				return
			}
			user, err := db.GetUser(id)
			if err != nil {
				Unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests before they reach the handler.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUser(r.Context()) == nil {
			Unauthorized(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUser retrieves the user stored in the context by IdentityMiddleware,
// or nil for anonymous requests.
func GetUser(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}
