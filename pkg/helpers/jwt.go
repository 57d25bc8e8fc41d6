package helpers

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode outcomes. Each one is distinguishable with errors.Is; callers at the
// HTTP edge collapse them into a single 401.
var (
	ErrTokenMalformed        = errors.New("token is malformed")
	ErrTokenSignatureInvalid = errors.New("token signature is invalid")
	ErrTokenExpired          = errors.New("token is expired")
	ErrTokenUsedBeforeIssued = errors.New("token used before issued")
	ErrTokenNotValidYet      = errors.New("token is not valid yet")
	ErrTokenInvalidAudience  = errors.New("token has invalid audience")
	ErrTokenInvalidIssuer    = errors.New("token has invalid issuer")
)

// MissingClaimError reports a required claim absent from an otherwise valid token.
type MissingClaimError struct {
	Name string
}

func (e *MissingClaimError) Error() string {
	return "token is missing required claim: " + e.Name
}

// TokenOptions configures a JWTManager. Signature verification is always on.
type TokenOptions struct {
	Secret    string
	Algorithm string // HS256, HS384 or HS512
	TTL       time.Duration

	Issuer   string
	Audience string

	VerifyExp bool
	VerifyIat bool
	VerifyNbf bool
	VerifySub bool
	VerifyAud bool
	VerifyIss bool
}

// DefaultTokenOptions mirrors the recognised defaults: exp, iat and sub on;
// nbf, aud and iss off.
func DefaultTokenOptions(secret string) TokenOptions {
	return TokenOptions{
		Secret:    secret,
		Algorithm: "HS256",
		TTL:       time.Hour,
		VerifyExp: true,
		VerifyIat: true,
		VerifySub: true,
	}
}

// JWTManager mints and decodes signed access tokens.
type JWTManager struct {
	secret []byte
	method jwt.SigningMethod
	opts   TokenOptions
	now    func() time.Time
}

// JWTOption customises a JWTManager.
type JWTOption func(*JWTManager)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) JWTOption {
	return func(m *JWTManager) { m.now = now }
}

func NewJWTManager(opts TokenOptions, options ...JWTOption) (*JWTManager, error) {
	if opts.Secret == "" {
		return nil, errors.New("jwt: empty signing secret")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("jwt: ttl must be positive")
	}
	method, ok := jwt.GetSigningMethod(opts.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("jwt: unsupported signing algorithm %q", opts.Algorithm)
	}
	m := &JWTManager{
		secret: []byte(opts.Secret),
		method: method,
		opts:   opts,
		now:    time.Now,
	}
	for _, o := range options {
		o(m)
	}
	return m, nil
}

// TTL returns the lifetime given to minted tokens.
func (m *JWTManager) TTL() time.Duration { return m.opts.TTL }

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken signs a token for subject with exp = now + TTL.
func (m *JWTManager) GenerateAccessToken(subject, email string) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.opts.TTL)
	claims := &Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    m.opts.Issuer,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if m.opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.opts.Audience}
	}
	t := jwt.NewWithClaims(m.method, claims)
	s, err := t.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, claims.ExpiresAt.Time, nil
}

// ParseAccessToken verifies the signature and validates claims according to
// the configured toggles.
func (m *JWTManager) ParseAccessToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{m.method.Alg()}),
		// Claims are checked below; jwt's validator cannot turn nbf off.
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}
	if err := m.validate(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}

func (m *JWTManager) validate(c *Claims) error {
	now := m.now()

	if c.ExpiresAt == nil {
		return &MissingClaimError{Name: "exp"}
	}
	if m.opts.VerifySub && c.Subject == "" {
		return &MissingClaimError{Name: "sub"}
	}
	if c.Email == "" {
		return &MissingClaimError{Name: "email"}
	}

	if m.opts.VerifyExp && !now.Before(c.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	if m.opts.VerifyIat && c.IssuedAt != nil && now.Before(c.IssuedAt.Time) {
		return ErrTokenUsedBeforeIssued
	}
	if m.opts.VerifyNbf && c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrTokenNotValidYet
	}
	if m.opts.VerifyAud && !slices.Contains(c.Audience, m.opts.Audience) {
		return ErrTokenInvalidAudience
	}
	if m.opts.VerifyIss && c.Issuer != m.opts.Issuer {
		return ErrTokenInvalidIssuer
	}
	return nil
}
