package license

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, now *time.Time, keys map[string]Key) *Service {
	t.Helper()
	if keys == nil {
		keys = map[string]Key{
			"1234-5678-9101": {User: "User1", Expires: time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)},
			"111122223333":   {User: "User2"},
		}
	}
	svc, err := New(Config{
		Secret: []byte("test-secret"),
		Keys:   keys,
		Now:    func() time.Time { return *now },
	})
	require.NoError(t, err)
	return svc
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "123456789101", NormalizeKey(" 1234-5678-9101 "))
	assert.Equal(t, "abc", NormalizeKey("a-b--c"))
	assert.Empty(t, NormalizeKey("---"))
}

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()

	now := testNow
	svc := newTestService(t, &now, nil)

	token, err := svc.Issue("123456789101")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "123456789101", claims.ProductKey)
	assert.Equal(t, "User1", claims.User)
	assert.Equal(t, testNow.Add(DefaultTTL).Unix(), claims.ExpiresAt.Unix())

	user, err := svc.User(token)
	require.NoError(t, err)
	assert.Equal(t, "User1", user)

	dashed, err := svc.Issue("1111-2222-3333")
	require.NoError(t, err)
	user, err = svc.User(dashed)
	require.NoError(t, err)
	assert.Equal(t, "User2", user)
}

func TestIssueRejectsKeys(t *testing.T) {
	t.Parallel()

	now := testNow
	svc := newTestService(t, &now, nil)

	_, err := svc.Issue("999999999999")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = svc.Issue("")
	assert.ErrorIs(t, err, ErrInvalidKey)

	now = time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	_, err = svc.Issue("123456789101")
	assert.NoError(t, err, "the expiry day itself is still valid")

	now = time.Date(2025, 1, 1, 0, 0, 1, 0, time.UTC)
	_, err = svc.Issue("123456789101")
	assert.ErrorIs(t, err, ErrInvalidKey)
	_, err = svc.Issue("111122223333")
	assert.NoError(t, err, "keys without expiry never lapse")
}

func TestVerifyRejectsTokens(t *testing.T) {
	t.Parallel()

	now := testNow
	svc := newTestService(t, &now, nil)
	token, err := svc.Issue("111122223333")
	require.NoError(t, err)

	other, err := New(Config{Secret: []byte("other"), Keys: map[string]Key{"111122223333": {User: "User2"}}})
	require.NoError(t, err)
	forged, err := other.Issue("111122223333")
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		ProductKey: "111122223333",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		ProductKey:       "111122223333",
		RegisteredClaims: jwt.RegisteredClaims{Issuer: issuer},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"wrong secret": forged,
		"wrong method": hs512,
		"no expiry":    noExpiry,
	} {
		_, err := svc.Verify(tok)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}

	now = testNow.Add(DefaultTTL + time.Minute)
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")
}

func TestUserUnknownKey(t *testing.T) {
	t.Parallel()

	now := testNow
	issuing := newTestService(t, &now, map[string]Key{"4444": {User: "Gone"}})
	checking := newTestService(t, &now, map[string]Key{"5555": {User: "Other"}})

	token, err := issuing.Issue("4444")
	require.NoError(t, err)
	_, err = checking.User(token)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	assert.ErrorContains(t, err, "secret")

	_, err = New(Config{Secret: []byte("s"), Keys: map[string]Key{"--": {}}})
	assert.ErrorContains(t, err, "empty product key")

	_, err = New(Config{Secret: []byte("s"), Keys: map[string]Key{"12-34": {}, "1234": {}}})
	assert.ErrorContains(t, err, "duplicate")

	svc, err := New(Config{Secret: []byte("s"), Keys: map[string]Key{"12-34": {User: "u"}}})
	require.NoError(t, err)
	k, ok := svc.Lookup("1234")
	assert.True(t, ok)
	assert.Equal(t, "u", k.User)
}
