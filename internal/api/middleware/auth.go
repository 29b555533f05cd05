package middleware

import (
	"context"
	"errors"
	"net/http"

	"examtracker/internal/common"
	"examtracker/internal/common/security"
	"examtracker/internal/domain/model"
	"examtracker/internal/domain/repository"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const currentUserCtxKey contextKey = "currentUser"

// Authenticator resolves the current user from the bearer token verified by
// jwtauth.Verifier. Any failure — missing token, bad signature, expired,
// missing subject, or a subject that no longer exists — produces the same
// 401 challenge, so a caller cannot tell a forged token from a deleted user.
func Authenticator(userRepo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			if err != nil || token == nil {
				common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
				return
			}

			subject, err := security.GetSubjectFromClaims(claims)
			if err != nil {
				common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
				return
			}

			user, err := userRepo.FindByUsername(r.Context(), subject)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					common.RespondWithAuthError(w, common.ErrInvalidToken.Error())
					return
				}
				common.RespondWithError(w, http.StatusInternalServerError, common.ErrInternalServer.Error())
				return
			}

			ctx := context.WithValue(r.Context(), currentUserCtxKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CurrentUser returns the user resolved for this request. The value lives
// only in the request context and is never shared across requests.
func CurrentUser(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(currentUserCtxKey).(*model.User)
	return user, ok
}
