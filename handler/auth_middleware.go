package handler

import (
	"context"
	"net/http"

	"buddy-api/common"
	"buddy-api/model"
	"buddy-api/service"
)

type contextKey string

const UserKey contextKey = "user"

// AuthMiddleware resolves the bearer token to a user and stores it in the
// request context. Requests without a valid, unexpired token get a 401.
func AuthMiddleware(auth service.IAuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				common.FromError(err).Send(w)
				return
			}

			ctx := context.WithValue(r.Context(), UserKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the user stored by AuthMiddleware.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok && user != nil
}
