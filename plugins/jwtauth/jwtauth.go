// Copyright 2025 coregx. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package jwtauth wraps github.com/golang-jwt/jwt/v5 for use from a bishop
// resource's IsAuthorized callback (decision node B8). It has no dependency
// on bishop itself: Verify takes and returns plain values, leaving a
// callback free to turn the result into a bishop.CallbackOut.
package jwtauth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const algoNone = "none"

// Common verification errors.
var (
	ErrMissing     = errors.New("missing or malformed bearer token")
	ErrInvalid     = errors.New("invalid jwt")
	ErrAlgorithm   = errors.New("invalid jwt signing algorithm")
	ErrNoneAlgo    = errors.New("jwt 'none' algorithm is forbidden")
	ErrExpired     = errors.New("jwt token has expired")
	ErrNotValidYet = errors.New("jwt token not valid yet")
)

// Verifier validates bearer tokens against a fixed signing key and algorithm.
type Verifier struct {
	// SigningKey validates the token signature. For HS256: []byte("secret").
	// For RS256/ES256: *rsa.PublicKey or *ecdsa.PublicKey; a PEM []byte is
	// not parsed and is rejected by the RSA/ECDSA verifiers.
	SigningKey any

	// SigningMethod is the expected JWT algorithm. Default: "HS256".
	SigningMethod string

	// AllowedAlgorithms restricts accepted algorithms beyond SigningMethod.
	// If empty, only SigningMethod is accepted.
	AllowedAlgorithms []string

	// Claims returns a fresh claims value for parsing. Default: jwt.MapClaims.
	Claims func() jwt.Claims

	// ValidateIssuer, if set, requires a matching "iss" claim.
	ValidateIssuer string

	// ValidateAudience, if set, requires a matching "aud" claim.
	ValidateAudience string
}

// New returns a Verifier with the given signing key and HS256 defaults.
func New(signingKey any) *Verifier {
	return &Verifier{SigningKey: signingKey}
}

func (v *Verifier) signingMethod() string {
	if v.SigningMethod == "" {
		return "HS256"
	}
	return v.SigningMethod
}

func (v *Verifier) allowedAlgorithms() map[string]bool {
	allowed := make(map[string]bool)
	if len(v.AllowedAlgorithms) > 0 {
		for _, algo := range v.AllowedAlgorithms {
			allowed[algo] = true
		}
		return allowed
	}
	allowed[v.signingMethod()] = true
	return allowed
}

// Verify parses and validates a raw JWT, returning its claims on success.
func (v *Verifier) Verify(tokenString string) (jwt.Claims, error) {
	if tokenString == "" {
		return nil, ErrMissing
	}
	if strings.EqualFold(v.signingMethod(), algoNone) {
		return nil, ErrNoneAlgo
	}

	claimsFn := v.Claims
	if claimsFn == nil {
		claimsFn = func() jwt.Claims { return jwt.MapClaims{} }
	}
	allowed := v.allowedAlgorithms()

	claims := claimsFn()
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		alg := token.Method.Alg()
		if strings.EqualFold(alg, algoNone) {
			return nil, ErrNoneAlgo
		}
		if !allowed[alg] {
			return nil, fmt.Errorf("%w: expected %s, got %s", ErrAlgorithm, v.signingMethod(), alg)
		}
		return v.SigningKey, nil
	})

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return nil, ErrNotValidYet
	case err != nil:
		return nil, err
	case !token.Valid:
		return nil, ErrInvalid
	}

	if v.ValidateIssuer != "" && !claimMatches(claims, "iss", v.ValidateIssuer) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalid)
	}
	if v.ValidateAudience != "" && !claimMatches(claims, "aud", v.ValidateAudience) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalid)
	}

	return claims, nil
}

// ExtractBearer pulls the token out of an "Authorization: Bearer <token>"
// header value. Returns "" if the header is empty or uses a different scheme.
func ExtractBearer(authorization string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return ""
	}
	return strings.TrimPrefix(authorization, prefix)
}

func claimMatches(claims jwt.Claims, key, expected string) bool {
	mapClaims, ok := claims.(jwt.MapClaims)
	if !ok {
		switch key {
		case "iss":
			iss, err := claims.GetIssuer()
			return err == nil && iss == expected
		case "aud":
			aud, err := claims.GetAudience()
			if err != nil {
				return false
			}
			for _, a := range aud {
				if a == expected {
					return true
				}
			}
		}
		return false
	}

	value, ok := mapClaims[key]
	if !ok {
		return false
	}
	if str, ok := value.(string); ok {
		return str == expected
	}
	if key == "aud" {
		if audiences, ok := value.([]any); ok {
			for _, aud := range audiences {
				if audStr, ok := aud.(string); ok && audStr == expected {
					return true
				}
			}
		}
	}
	return false
}
