// Package authz identifies the caller of the report listing API.
package authz

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrUnauthorized is returned when no caller identity can be found.
var ErrUnauthorized = errors.New("unauthorized")

const devBypassHeader = "x-user-sub"

// headerLookup returns the value of a header key from a map.
func headerLookup(h map[string]string, key string) string {
	lk := strings.ToLower(key)
	for k, v := range h {
		if strings.ToLower(k) == lk {
			return v
		}
	}
	return ""
}

// stringIf returns the string value of an interface{} if it is a non-empty string.
func stringIf(v any) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return ""
}

// subFromAuthHeader extracts the "sub" claim from an unverified bearer token.
func subFromAuthHeader(headers map[string]string) string {
	auth := headerLookup(headers, "Authorization")
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		auth = strings.TrimSpace(auth[len("bearer "):])
	}
	parts := strings.Split(auth, ".")
	if len(parts) != 3 {
		return ""
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return ""
	}
	var m map[string]any
	if json.Unmarshal(payload, &m) != nil {
		return ""
	}
	return stringIf(m["sub"])
}

// FromHTTPAPI extracts the caller's subject from an HTTP API (v2) request.
// The bearer fallback does not verify signatures and is only consulted when
// devBypass is set.
func FromHTTPAPI(req events.APIGatewayV2HTTPRequest, devBypass bool) (string, error) {
	if devBypass {
		if sub := strings.TrimSpace(headerLookup(req.Headers, devBypassHeader)); sub != "" {
			return sub, nil
		}
	}

	if a := req.RequestContext.Authorizer; a != nil {
		if a.JWT != nil {
			if sub := a.JWT.Claims["sub"]; sub != "" {
				return sub, nil
			}
		}
		if sub := stringIf(a.Lambda["sub"]); sub != "" {
			return sub, nil
		}
	}

	if devBypass {
		if sub := subFromAuthHeader(req.Headers); sub != "" {
			return sub, nil
		}
	}
	return "", ErrUnauthorized
}
