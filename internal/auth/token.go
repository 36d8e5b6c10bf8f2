package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"schoolbridge/pkg/types"

	"github.com/lestrrat-go/jwx/v3/jwt"
)

var ErrInvalidToken = errors.New("invalid authentication token")

// UserInfo is read from a token payload for display only. The signature is
// never checked here, so nothing in it may be used for authorization.
type UserInfo struct {
	ID     string
	Role   types.Role
	IsDemo bool
	Name   string
	// Email is not carried in the token.
	Email string
}

func parse(token string) (jwt.Token, error) {
	parsed, err := jwt.ParseInsecure([]byte(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return parsed, nil
}

// DecodeToken reads the payload of token without verifying it.
func DecodeToken(token string) (*UserInfo, error) {
	parsed, err := parse(token)
	if err != nil {
		return nil, err
	}

	info := new(UserInfo)

	if sub, ok := parsed.Subject(); ok {
		info.ID = sub
	}
	if info.ID == "" {
		var raw any
		if err := parsed.Get("user_id", &raw); err == nil {
			info.ID = formatUserID(raw)
		}
	}

	var role string
	if err := parsed.Get("role", &role); err == nil {
		info.Role = types.Role(role)
	}

	_ = parsed.Get("is_demo", &info.IsDemo)
	_ = parsed.Get("name", &info.Name)

	return info, nil
}

// IsTokenExpired reports whether the token's exp claim is before now. Any
// token that cannot be decoded counts as expired.
func IsTokenExpired(token string, now time.Time) bool {
	parsed, err := parse(token)
	if err != nil {
		return true
	}

	exp, ok := parsed.Expiration()
	if !ok {
		return false
	}

	return exp.Before(now)
}

// TokenExpiry returns the exp claim, if the token carries one.
func TokenExpiry(token string) (time.Time, bool) {
	parsed, err := parse(token)
	if err != nil {
		return time.Time{}, false
	}

	return parsed.Expiration()
}

// formatUserID accepts the string or numeric ids the backend issues.
func formatUserID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	return fmt.Sprint(v)
}
