package consoleauth

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mailbridge/console-auth/config"
	"github.com/mailbridge/console-auth/errors"
)

// hmacMethods are the signing algorithms accepted for the shared symmetric
// key. Anything else in the token header is a signature failure.
var hmacMethods = []string{"HS256", "HS384", "HS512"}

// PrivilegeSet is the application "privs" claim. The authorization server
// encodes it either as a single scalar or as a list; both decode into the
// same set form.
type PrivilegeSet []string

func (p *PrivilegeSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = PrivilegeSet{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("privs claim must be a string or a list of strings")
	}
	*p = PrivilegeSet(many)
	return nil
}

// Has reports whether name is a member of the set.
func (p PrivilegeSet) Has(name string) bool {
	for _, priv := range p {
		if priv == name {
			return true
		}
	}
	return false
}

// Claims is the decoded payload of an access token. A Claims value must
// not be treated as an authenticated identity unless it came out of
// DecodeAndValidate without error.
type Claims struct {
	jwt.RegisteredClaims
	Privileges PrivilegeSet `json:"privs,omitempty"`
}

// UserID returns the token subject.
func (c *Claims) UserID() string { return c.Subject }

// ExpiresAtUnix returns the expiry as seconds since the unix epoch, or 0
// when the token carries no expiry.
func (c *Claims) ExpiresAtUnix() int64 {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Unix()
}

// HasPrivilege reports whether the privilege claim contains name. Absent
// claim means no privileges.
func (c *Claims) HasPrivilege(name string) bool {
	return c.Privileges.Has(name)
}

// normalizeAudience splits a space-delimited single-string audience into
// its member values, so tokens encoded with either aud form validate
// identically.
func (c *Claims) normalizeAudience() {
	if len(c.Audience) == 1 && strings.Contains(c.Audience[0], " ") {
		c.Audience = jwt.ClaimStrings(strings.Fields(c.Audience[0]))
	}
}

// DecodeAndValidate verifies the signature on tokenText against key,
// decodes the payload, and validates it against opts plus the built-in
// temporal rules. leeway widens the expiry check to absorb clock skew.
//
// Failures are distinct kinds: errors.ErrBadSignature for a cryptographic
// failure, *errors.MissingClaimError / *errors.InvalidClaimError /
// errors.ErrTokenExpired for claims failures, and errors.ErrInvalidToken
// for anything structurally wrong.
func DecodeAndValidate(key *config.SigningKey, opts config.ClaimsOptions, tokenText string, leeway time.Duration) (*Claims, error) {
	claims := new(Claims)
	parser := jwt.NewParser(
		jwt.WithValidMethods(hmacMethods),
		// Claims validation runs below so each failure keeps its kind.
		jwt.WithoutClaimsValidation(),
	)

	_, err := parser.ParseWithClaims(tokenText, claims, func(*jwt.Token) (any, error) {
		return []byte(key.K), nil
	})
	switch {
	case err == nil:
	case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, errors.ErrBadSignature
	default:
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	claims.normalizeAudience()

	if err := validateClaims(claims, opts, time.Now(), leeway); err != nil {
		return nil, err
	}

	return claims, nil
}

// validateClaims enforces the configured rules plus the temporal ones.
// Expiry is always required: now must be >= iat and < exp + leeway.
func validateClaims(claims *Claims, opts config.ClaimsOptions, now time.Time, leeway time.Duration) error {
	if claims.ExpiresAt == nil {
		return &errors.MissingClaimError{Claim: "exp"}
	}
	if !now.Before(claims.ExpiresAt.Add(leeway)) {
		return errors.ErrTokenExpired
	}
	if claims.IssuedAt != nil && now.Before(claims.IssuedAt.Add(-leeway)) {
		return fmt.Errorf("%w: token used before issued", errors.ErrInvalidToken)
	}
	if opts.IssuedAt != nil && opts.IssuedAt.Essential && claims.IssuedAt == nil {
		return &errors.MissingClaimError{Claim: "iat"}
	}

	checks := []struct {
		name string
		rule *config.ClaimRule
		got  []string
	}{
		{"iss", opts.Issuer, singleton(claims.Issuer)},
		{"sub", opts.Subject, singleton(claims.Subject)},
		{"aud", opts.Audience, claims.Audience},
		{"privs", opts.Privileges, claims.Privileges},
	}
	for _, check := range checks {
		if err := applyRule(check.name, check.rule, check.got); err != nil {
			return err
		}
	}

	return nil
}

func singleton(value string) []string {
	if value == "" {
		return nil
	}
	return []string{value}
}

// applyRule enforces one ClaimRule: essential presence first, then the
// acceptable values. For multi-valued claims the rule matches when any
// acceptable value is a member of the claim.
func applyRule(name string, rule *config.ClaimRule, got []string) error {
	if rule == nil {
		return nil
	}
	if len(got) == 0 {
		if rule.Essential {
			return &errors.MissingClaimError{Claim: name}
		}
		return nil
	}

	acceptable := rule.Values
	if rule.Value != "" {
		acceptable = append([]string{rule.Value}, acceptable...)
	}
	if len(acceptable) == 0 {
		return nil
	}
	for _, want := range acceptable {
		for _, have := range got {
			if have == want {
				return nil
			}
		}
	}

	return &errors.InvalidClaimError{Claim: name}
}
