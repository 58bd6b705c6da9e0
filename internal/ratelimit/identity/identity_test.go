package identity

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portalpay/internal/ratelimit/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func bearerWithClaims(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("any-key-the-decoder-never-checks"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func TestFromBearerSubjectClaim(t *testing.T) {
	hint, ok := FromBearer(bearerWithClaims(t, jwt.MapClaims{"sub": "student-42"}))
	require.True(t, ok)
	assert.Equal(t, "student-42", hint.Subject)
}

func TestFromBearerUserIDFallback(t *testing.T) {
	hint, ok := FromBearer(bearerWithClaims(t, jwt.MapClaims{"user_id": "student-7"}))
	require.True(t, ok)
	assert.Equal(t, "student-7", hint.Subject)
}

func TestFromBearerIgnoresSignature(t *testing.T) {
	header := bearerWithClaims(t, jwt.MapClaims{"sub": "student-42"})
	// Corrupt the signature segment. The payload still decodes.
	forged := header[:strings.LastIndex(header, ".")+1] + "forgedforgedforged"

	hint, ok := FromBearer(forged)
	require.True(t, ok)
	assert.Equal(t, "student-42", hint.Subject)
}

func TestFromBearerRejectsGarbage(t *testing.T) {
	tests := []string{
		"",
		"Bearer ",
		"Bearer not.a.token",
		"Basic dXNlcjpwYXNz",
	}
	for _, header := range tests {
		_, ok := FromBearer(header)
		assert.False(t, ok, "header=%q", header)
	}
}

func TestFromBearerRejectsEmptySubject(t *testing.T) {
	_, ok := FromBearer(bearerWithClaims(t, jwt.MapClaims{"aud": "portal"}))
	assert.False(t, ok)
}

func TestFingerprintCollapsesBrowserVersions(t *testing.T) {
	fp := Fingerprint("203.0.113.9", chromeUA)
	assert.Equal(t, "fp:203.0.113.9:Chrome/120", fp)

	// A patch-level UA bump maps to the same bucket.
	bumped := strings.Replace(chromeUA, "Chrome/120.0.0.0", "Chrome/120.0.64.12", 1)
	assert.Equal(t, fp, Fingerprint("203.0.113.9", bumped))
}

func TestFingerprintUnparseableAgent(t *testing.T) {
	fp := Fingerprint("203.0.113.9", strings.Repeat("z", 40))
	assert.Equal(t, "fp:203.0.113.9:"+strings.Repeat("z", 24), fp)
}

func TestFingerprintAlwaysBoundsAgentSegment(t *testing.T) {
	// Unrecognized tokens come back from the parser as a "browser name";
	// the header is caller-controlled, so the cap must hold on every path.
	agents := []string{
		strings.Repeat("z", 400),
		strings.Repeat("z", 400) + "/1.0",
		"Totally-Custom-Agent-" + strings.Repeat("x", 200) + " (whatever)",
	}
	for _, ua := range agents {
		fp := Fingerprint("203.0.113.9", ua)
		segment := strings.TrimPrefix(fp, "fp:203.0.113.9:")
		assert.LessOrEqual(t, len(segment), maxRawUASegment, "ua=%q", ua[:20])
	}
}

func TestFingerprintEmptyAgent(t *testing.T) {
	assert.Equal(t, "fp:203.0.113.9:unknown", Fingerprint("203.0.113.9", ""))
}

func TestFingerprintSanitizesIPv6(t *testing.T) {
	fp := Fingerprint("2001:db8::1", "")
	assert.Equal(t, "fp:2001_db8__1:unknown", fp)
}

func TestDerive(t *testing.T) {
	id, tier := Derive(bearerWithClaims(t, jwt.MapClaims{"sub": "student-42"}), "203.0.113.9", chromeUA)
	assert.Equal(t, "user:student-42", id)
	assert.Equal(t, models.TierAuthenticated, tier)

	id, tier = Derive("", "203.0.113.9", chromeUA)
	assert.Equal(t, "fp:203.0.113.9:Chrome/120", id)
	assert.Equal(t, models.TierAnonymous, tier)
}
