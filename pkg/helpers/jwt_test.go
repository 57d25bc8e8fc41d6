package helpers

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var epoch = time.Unix(1_700_000_000, 0)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestManager(t *testing.T, clock *fakeClock, mutate ...func(*TokenOptions)) *JWTManager {
	t.Helper()
	opts := DefaultTokenOptions(testSecret)
	for _, f := range mutate {
		f(&opts)
	}
	m, err := NewJWTManager(opts, WithClock(clock.Now))
	require.NoError(t, err)
	return m
}

// signRaw signs arbitrary claims with the test secret, bypassing the manager.
func signRaw(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestJWT_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: epoch}
	m := newTestManager(t, clock)

	tok, exp, err := m.GenerateAccessToken("6f1c1a0e-7d7e-4c8e-9a57-1b2b9d0f3e11", "alice@x.com")
	require.NoError(t, err)
	assert.True(t, epoch.Add(time.Hour).Equal(exp))

	claims, err := m.ParseAccessToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "6f1c1a0e-7d7e-4c8e-9a57-1b2b9d0f3e11", claims.Subject)
	assert.Equal(t, "alice@x.com", claims.Email)
	assert.True(t, epoch.Equal(claims.IssuedAt.Time))
	assert.True(t, exp.Equal(claims.ExpiresAt.Time))
}

func TestJWT_ExpiryWindow(t *testing.T) {
	const ttl = 30 * time.Minute
	clock := &fakeClock{t: epoch}
	m := newTestManager(t, clock, func(o *TokenOptions) { o.TTL = ttl })

	tok, _, err := m.GenerateAccessToken("sub", "a@x.com")
	require.NoError(t, err)

	for _, offset := range []time.Duration{0, time.Second, ttl / 2, ttl - time.Second} {
		clock.t = epoch.Add(offset)
		_, err := m.ParseAccessToken(tok)
		assert.NoError(t, err, "offset %v", offset)
	}
	for _, offset := range []time.Duration{ttl, ttl + time.Second, 24 * time.Hour} {
		clock.t = epoch.Add(offset)
		_, err := m.ParseAccessToken(tok)
		assert.ErrorIs(t, err, ErrTokenExpired, "offset %v", offset)
	}
}

func TestJWT_WrongSecret(t *testing.T) {
	clock := &fakeClock{t: epoch}
	m := newTestManager(t, clock)
	other := newTestManager(t, clock, func(o *TokenOptions) { o.Secret = "another-secret-another-secret-xx" })

	tok, _, err := m.GenerateAccessToken("sub", "a@x.com")
	require.NoError(t, err)

	_, err = other.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestJWT_RejectsOtherAlgorithms(t *testing.T) {
	clock := &fakeClock{t: epoch}
	m := newTestManager(t, clock)
	claims := jwt.MapClaims{"sub": "s", "email": "a@x.com", "exp": epoch.Add(time.Hour).Unix()}

	hs512 := signRaw(t, jwt.SigningMethodHS512, claims)
	_, err := m.ParseAccessToken(hs512)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.ParseAccessToken(none)
	assert.ErrorIs(t, err, ErrTokenSignatureInvalid)
}

func TestJWT_Malformed(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: epoch})

	for _, tok := range []string{"", "not-a-jwt", "not.a.jwt", "a.b.c.d"} {
		_, err := m.ParseAccessToken(tok)
		assert.ErrorIs(t, err, ErrTokenMalformed, "token %q", tok)
	}
}

func TestJWT_MissingClaims(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: epoch})
	exp := epoch.Add(time.Hour).Unix()

	cases := map[string]jwt.MapClaims{
		"exp":   {"sub": "s", "email": "a@x.com"},
		"sub":   {"email": "a@x.com", "exp": exp},
		"email": {"sub": "s", "exp": exp},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.ParseAccessToken(signRaw(t, jwt.SigningMethodHS256, claims))
			var missing *MissingClaimError
			require.True(t, errors.As(err, &missing), "got %v", err)
			assert.Equal(t, name, missing.Name)
		})
	}
}

func TestJWT_OutcomesAreDistinct(t *testing.T) {
	outcomes := []error{ErrTokenMalformed, ErrTokenSignatureInvalid, ErrTokenExpired, &MissingClaimError{Name: "sub"}}
	for i, a := range outcomes {
		for j, b := range outcomes {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v should not match %v", a, b)
			}
		}
	}
}

func TestJWT_IssuedInFuture(t *testing.T) {
	m := newTestManager(t, &fakeClock{t: epoch})
	tok := signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "s", "email": "a@x.com",
		"iat": epoch.Add(time.Minute).Unix(),
		"exp": epoch.Add(time.Hour).Unix(),
	})

	_, err := m.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrTokenUsedBeforeIssued)

	lax := newTestManager(t, &fakeClock{t: epoch}, func(o *TokenOptions) { o.VerifyIat = false })
	_, err = lax.ParseAccessToken(tok)
	assert.NoError(t, err)
}

func TestJWT_NotBeforeToggle(t *testing.T) {
	tok := signRaw(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "s", "email": "a@x.com",
		"nbf": epoch.Add(time.Minute).Unix(),
		"exp": epoch.Add(time.Hour).Unix(),
	})

	off := newTestManager(t, &fakeClock{t: epoch})
	_, err := off.ParseAccessToken(tok)
	assert.NoError(t, err)

	on := newTestManager(t, &fakeClock{t: epoch}, func(o *TokenOptions) { o.VerifyNbf = true })
	_, err = on.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrTokenNotValidYet)
}

func TestJWT_AudienceAndIssuerToggles(t *testing.T) {
	clock := &fakeClock{t: epoch}
	minter := newTestManager(t, clock, func(o *TokenOptions) {
		o.Issuer = "task-api"
		o.Audience = "web"
	})
	tok, _, err := minter.GenerateAccessToken("s", "a@x.com")
	require.NoError(t, err)

	strict := newTestManager(t, clock, func(o *TokenOptions) {
		o.Issuer = "task-api"
		o.Audience = "web"
		o.VerifyAud = true
		o.VerifyIss = true
	})
	_, err = strict.ParseAccessToken(tok)
	assert.NoError(t, err)

	wrongAud := newTestManager(t, clock, func(o *TokenOptions) {
		o.Audience = "mobile"
		o.VerifyAud = true
	})
	_, err = wrongAud.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalidAudience)

	wrongIss := newTestManager(t, clock, func(o *TokenOptions) {
		o.Issuer = "someone-else"
		o.VerifyIss = true
	})
	_, err = wrongIss.ParseAccessToken(tok)
	assert.ErrorIs(t, err, ErrTokenInvalidIssuer)
}

func TestNewJWTManager_Errors(t *testing.T) {
	_, err := NewJWTManager(DefaultTokenOptions(""))
	assert.Error(t, err)

	opts := DefaultTokenOptions(testSecret)
	opts.Algorithm = "RS256"
	_, err = NewJWTManager(opts)
	assert.Error(t, err)

	opts = DefaultTokenOptions(testSecret)
	opts.TTL = 0
	_, err = NewJWTManager(opts)
	assert.Error(t, err)
}
