// Package identity derives the identifier a rate limit check is keyed on.
//
// Two sources exist, in preference order: the subject of a bearer token, and
// a fingerprint of the client IP and User-Agent. The bearer payload is
// decoded WITHOUT signature verification: a forged token only changes which
// bucket the caller drains, it grants nothing. The UntrustedHint type exists
// so this identifier can never be mistaken for an authenticated principal in
// an authorization decision.
package identity

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mssola/useragent"

	"portalpay/internal/ratelimit/models"
)

// UntrustedHint is a caller identity extracted without verification.
// It is valid ONLY as a rate-limit bucket key.
type UntrustedHint struct {
	Subject string
}

// FromBearer decodes the payload of a bearer token without verifying its
// signature. Returns false when the header carries no usable subject.
func FromBearer(authHeader string) (UntrustedHint, bool) {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok || token == "" {
		return UntrustedHint{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return UntrustedHint{}, false
	}

	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return UntrustedHint{Subject: sub}, true
	}
	if uid, ok := claims["user_id"].(string); ok && uid != "" {
		return UntrustedHint{Subject: uid}, true
	}
	return UntrustedHint{}, false
}

const maxRawUASegment = 24

// Fingerprint combines the client IP with a compact User-Agent descriptor.
// The UA is parsed down to browser family and version so trivial UA string
// mutations don't mint fresh buckets. The segment is always capped: the
// parser echoes unrecognized tokens back as a "browser name", and the raw
// header is attacker-controlled, so nothing unbounded may reach the key.
func Fingerprint(ip, rawUA string) string {
	ua := useragent.New(rawUA)
	name, version := ua.Browser()
	segment := name
	if version != "" {
		if idx := strings.Index(version, "."); idx != -1 {
			version = version[:idx]
		}
		segment += "/" + version
	}
	if segment == "" {
		segment = rawUA
	}
	if len(segment) > maxRawUASegment {
		segment = segment[:maxRawUASegment]
	}
	if segment == "" {
		segment = "unknown"
	}
	return fmt.Sprintf("fp:%s:%s", models.SanitizeKeySegment(ip), models.SanitizeKeySegment(segment))
}

// Derive resolves the limiter identifier and tier for a request. An
// authenticated hint wins; anonymous callers are fingerprinted.
func Derive(authHeader, clientIP, userAgent string) (string, models.Tier) {
	if hint, ok := FromBearer(authHeader); ok {
		return "user:" + models.SanitizeKeySegment(hint.Subject), models.TierAuthenticated
	}
	return Fingerprint(clientIP, userAgent), models.TierAnonymous
}
