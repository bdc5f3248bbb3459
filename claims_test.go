package consoleauth

import (
	goerrors "errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailbridge/console-auth/config"
	"github.com/mailbridge/console-auth/errors"
)

var testKeyBytes = []byte("0123456789abcdef0123456789abcdef")

func testSigningKey() *config.SigningKey {
	return &config.SigningKey{
		Kty: "oct",
		Alg: "HS256",
		Kid: "1618498344",
		K:   config.KeyBytes(testKeyBytes),
	}
}

func testClaimsOptions() config.ClaimsOptions {
	return config.ClaimsOptions{
		Issuer:   &config.ClaimRule{Essential: true, Value: "oauth2.local"},
		Subject:  &config.ClaimRule{Essential: true},
		Audience: &config.ClaimRule{Essential: true, Value: "miabldap-console"},
	}
}

// baseClaims returns a claim set that passes testClaimsOptions.
func baseClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   "oauth2.local",
		"sub":   "qa@abc.com",
		"aud":   "miabldap-console",
		"iat":   now.Add(-time.Minute).Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"privs": "admin",
	}
}

func signToken(t *testing.T, key []byte, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestDecodeAndValidate_Valid(t *testing.T) {
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, baseClaims())

	claims, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
	require.NoError(t, err)

	assert.Equal(t, "qa@abc.com", claims.UserID())
	assert.True(t, claims.HasPrivilege("admin"))
	assert.False(t, claims.HasPrivilege("backup"))
	assert.Greater(t, claims.ExpiresAtUnix(), time.Now().Unix())
}

func TestDecodeAndValidate_AcceptsWholeHMACFamily(t *testing.T) {
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS512, baseClaims())

	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
	require.NoError(t, err)
}

func TestDecodeAndValidate_WrongKey(t *testing.T) {
	otherKey := []byte("ffffffffffffffffffffffffffffffff")
	token := signToken(t, otherKey, jwt.SigningMethodHS256, baseClaims())

	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
	assert.ErrorIs(t, err, errors.ErrBadSignature)
}

func TestDecodeAndValidate_NoneAlgorithmRejected(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, baseClaims()).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
	assert.ErrorIs(t, err, errors.ErrBadSignature)
}

func TestDecodeAndValidate_Garbage(t *testing.T) {
	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), "not.a.jwt", 0)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestDecodeAndValidate_Expired(t *testing.T) {
	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
	assert.ErrorIs(t, err, errors.ErrTokenExpired)
}

func TestDecodeAndValidate_LeewayAbsorbsSkew(t *testing.T) {
	claims := baseClaims()
	claims["exp"] = time.Now().Add(-time.Minute).Unix()
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 2*time.Minute)
	require.NoError(t, err)
}

func TestDecodeAndValidate_IssuedInFuture(t *testing.T) {
	claims := baseClaims()
	claims["iat"] = time.Now().Add(time.Hour).Unix()
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
	assert.ErrorIs(t, err, errors.ErrInvalidToken)
}

func TestDecodeAndValidate_MissingClaims(t *testing.T) {
	tests := []struct {
		name  string
		claim string
	}{
		{"missing subject", "sub"},
		{"missing expiry", "exp"},
		{"missing audience", "aud"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			delete(claims, tt.claim)
			token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

			_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)

			var missing *errors.MissingClaimError
			require.True(t, goerrors.As(err, &missing), "want MissingClaimError, got %v", err)
			assert.Equal(t, tt.claim, missing.Claim)
		})
	}
}

func TestDecodeAndValidate_InvalidClaimValue(t *testing.T) {
	claims := baseClaims()
	claims["iss"] = "someone-else.local"
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

	_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)

	var invalid *errors.InvalidClaimError
	require.True(t, goerrors.As(err, &invalid), "want InvalidClaimError, got %v", err)
	assert.Equal(t, "iss", invalid.Claim)
}

func TestDecodeAndValidate_AudienceNormalization(t *testing.T) {
	// A space-delimited single-string audience and a list-encoded one must
	// validate identically against the same rule.
	tests := []struct {
		name string
		aud  any
		ok   bool
	}{
		{"single string", "miabldap-console", true},
		{"space delimited", "miabldap-console other-console", true},
		{"list", []string{"miabldap-console", "other-console"}, true},
		{"list without match", []string{"other-console"}, false},
		{"space delimited without match", "other-console third", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			claims["aud"] = tt.aud
			token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

			_, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			var invalid *errors.InvalidClaimError
			require.True(t, goerrors.As(err, &invalid), "want InvalidClaimError, got %v", err)
			assert.Equal(t, "aud", invalid.Claim)
		})
	}
}

func TestHasPrivilege_ScalarAndList(t *testing.T) {
	tests := []struct {
		name  string
		privs any
		want  bool
	}{
		{"scalar match", "admin", true},
		{"scalar no match", "backup", false},
		{"list match", []string{"backup", "admin"}, true},
		{"list no match", []string{"backup"}, false},
		{"absent", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := baseClaims()
			if tt.privs == nil {
				delete(claims, "privs")
			} else {
				claims["privs"] = tt.privs
			}
			token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

			decoded, err := DecodeAndValidate(testSigningKey(), testClaimsOptions(), token, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded.HasPrivilege("admin"))
		})
	}
}

func TestDecodeAndValidate_PrivilegeRule(t *testing.T) {
	opts := testClaimsOptions()
	opts.Privileges = &config.ClaimRule{Essential: true, Values: []string{"admin", "backup"}}

	claims := baseClaims()
	claims["privs"] = []string{"reporting"}
	token := signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)

	_, err := DecodeAndValidate(testSigningKey(), opts, token, 0)

	var invalid *errors.InvalidClaimError
	require.True(t, goerrors.As(err, &invalid), "want InvalidClaimError, got %v", err)
	assert.Equal(t, "privs", invalid.Claim)

	delete(claims, "privs")
	token = signToken(t, testKeyBytes, jwt.SigningMethodHS256, claims)
	_, err = DecodeAndValidate(testSigningKey(), opts, token, 0)

	var missing *errors.MissingClaimError
	require.True(t, goerrors.As(err, &missing), "want MissingClaimError, got %v", err)
	assert.Equal(t, "privs", missing.Claim)
}
