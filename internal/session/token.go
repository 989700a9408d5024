// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL returns how long a session holding token may live: max, or less
// when the token is a JWT expiring sooner. The signature is not checked;
// the upstream API remains the authority on validity. Tokens that are not
// JWTs, or carry no exp claim, get max.
func TokenTTL(token string, max time.Duration, now time.Time) time.Duration {
	if token == "" {
		return max
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return max
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return max
	}
	if remaining := exp.Sub(now); remaining < max {
		if remaining < 0 {
			return 0
		}
		return remaining.Truncate(time.Second)
	}
	return max
}
