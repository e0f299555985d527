package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is the lifetime of every issued bearer token.
const TokenTTL = 2 * time.Hour

// ErrSigningKey means the server has no signing secret. It is a configuration fault.
var ErrSigningKey = errors.New("auth: signing secret is not configured")

// Identity is the authenticated principal carried by a token.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// Claims is the JWT payload. The subject is the user id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// ==========================
// Issuer
// ==========================

// Issuer signs HS256 tokens binding an identity to [iat, iat+ttl].
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer fails with ErrSigningKey when secret is empty.
func NewIssuer(secret []byte, ttl time.Duration) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrSigningKey
	}
	if ttl <= 0 {
		ttl = TokenTTL
	}
	return &Issuer{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed token for id and its expiry.
func (i *Issuer) Issue(id Identity) (string, time.Time, error) {
	issuedAt := i.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(i.ttl)
	claims := Claims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ==========================
// Validator
// ==========================

// Reason classifies why a bearer credential was rejected.
type Reason string

const (
	ReasonMissing          Reason = "missing"
	ReasonMalformed        Reason = "malformed"
	ReasonExpired          Reason = "expired"
	ReasonInvalidSignature Reason = "invalid_signature"
)

// Rejection is returned by Validator.Validate for every refused credential.
type Rejection struct {
	Reason Reason
	Err    error
}

func (r *Rejection) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("token rejected (%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("token rejected (%s)", r.Reason)
}

func (r *Rejection) Unwrap() error { return r.Err }

// Validator resolves an Authorization header value to an Identity.
type Validator struct {
	secret []byte
	now    func() time.Time
}

func NewValidator(secret []byte) *Validator {
	return &Validator{secret: secret, now: time.Now}
}

// Validate accepts "Bearer <jwt>" and returns the identity it carries.
func (v *Validator) Validate(header string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, &Rejection{Reason: ReasonMissing}
	}
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok {
		if strings.EqualFold(header, "Bearer") {
			return Identity{}, &Rejection{Reason: ReasonMissing}
		}
		return Identity{}, &Rejection{Reason: ReasonMalformed, Err: errors.New("expected Bearer scheme")}
	}
	if !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, &Rejection{Reason: ReasonMalformed, Err: fmt.Errorf("unsupported scheme %q", scheme)}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identity{}, &Rejection{Reason: ReasonMissing}
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, &Rejection{Reason: ReasonExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return Identity{}, &Rejection{Reason: ReasonInvalidSignature, Err: err}
	default:
		return Identity{}, &Rejection{Reason: ReasonMalformed, Err: err}
	}

	if claims.Subject == "" {
		return Identity{}, &Rejection{Reason: ReasonMalformed, Err: errors.New("token has no subject")}
	}
	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
