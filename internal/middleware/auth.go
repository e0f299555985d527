package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/ledger/internal/auth"
	"github.com/crucial707/ledger/internal/metrics"
)

type ctxKey string

const identityKey ctxKey = "identity"

// TokenValidator resolves an Authorization header to an identity.
type TokenValidator interface {
	Validate(header string) (auth.Identity, error)
}

// Authenticate rejects requests without a valid bearer token and stores the caller's
// identity in the request context. Missing and expired tokens are 401; malformed tokens
// and bad signatures are 403.
func Authenticate(v TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Validate(r.Header.Get("Authorization"))
			if err != nil {
				status, reason, msg := rejectionStatus(err)
				metrics.IncAuthRejection(reason)
				slog.DebugContext(r.Context(), "token rejected", "reason", reason, "error", err)

				if status == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", `Bearer realm="ledger"`)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				json.NewEncoder(w).Encode(map[string]string{"error": msg})
				return
			}

			if f := logFieldsFrom(r.Context()); f != nil {
				f.userID = id.UserID
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func rejectionStatus(err error) (int, string, string) {
	var rej *auth.Rejection
	if !errors.As(err, &rej) {
		return http.StatusUnauthorized, "unknown", "unauthorized"
	}
	switch rej.Reason {
	case auth.ReasonMissing:
		return http.StatusUnauthorized, string(rej.Reason), "missing bearer token"
	case auth.ReasonExpired:
		return http.StatusUnauthorized, string(rej.Reason), "token expired"
	case auth.ReasonInvalidSignature:
		return http.StatusForbidden, string(rej.Reason), "invalid token"
	default:
		return http.StatusForbidden, string(rej.Reason), "malformed token"
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the identity stored by Authenticate.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}
