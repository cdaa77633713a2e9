package auth

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/giankylabs/relayer/pkg/app/errors"
	apphttp "github.com/giankylabs/relayer/pkg/app/http"
)

// RequireSession returns a chi middleware that resolves the bearer credential
// to a wallet address and injects it into the request context. Requests
// without a valid token are rejected with 401.
func RequireSession(issuer *TokenIssuer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token := strings.TrimPrefix(header, "Bearer ")
			if token == "" || token == header {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(nil, "missing authorization token"))
				return
			}

			wallet, err := issuer.Verify(token)
			if err != nil {
				logger.Warn("Rejected bearer credential",
					zap.String("remote_addr", r.RemoteAddr),
					zap.Error(err))
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithWalletAddress(r.Context(), wallet)))
		})
	}
}
