package models

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testOTPTTL = 10 * time.Minute

func issuedUser(t *testing.T, now time.Time) (User, string) {
	t.Helper()
	user := NewUser("ann@example.com", "Ann", now)
	code, err := user.IssueCode(6, testOTPTTL, now)
	require.NoError(t, err)
	return user, code
}

func countDefaults(u *User) int {
	n := 0
	for _, a := range u.Addresses {
		if a.IsDefault {
			n++
		}
	}
	return n
}

func TestNewUser_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	assert.Equal(t, "user", user.Role)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsVerified)
	assert.Empty(t, user.Addresses)

	anon := NewUser("b@x.com", "", now)
	assert.Equal(t, "User", anon.Name)
}

func TestIssueCode_ShapeAndState(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, code := issuedUser(t, now)

	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
	assert.NotEmpty(t, user.OTP.CodeHash)
	assert.NotEqual(t, code, user.OTP.CodeHash, "plaintext code must never be stored")
	assert.Equal(t, 0, user.OTP.Attempts)
	assert.Equal(t, now.Add(testOTPTTL), user.OTP.ExpiresAt)
}

func TestIssueCode_OverwritesPendingCode(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, oldCode := issuedUser(t, now)

	newCode, err := user.IssueCode(6, testOTPTTL, now)
	require.NoError(t, err)
	assert.Equal(t, 0, user.OTP.Attempts)

	if oldCode != newCode {
		assert.ErrorIs(t, user.VerifyCode(oldCode, now), ErrInvalidCode)
	}
	require.NoError(t, user.VerifyCode(newCode, now))
}

func TestVerifyCode_Success(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, code := issuedUser(t, now)

	require.NoError(t, user.VerifyCode(code, now))
	assert.True(t, user.IsVerified)
	assert.Equal(t, now, user.LastLogin)
	assert.Empty(t, user.OTP.CodeHash, "code material must be cleared on success")

	// A code is accepted at most once.
	assert.ErrorIs(t, user.VerifyCode(code, now), ErrNoCode)
}

func TestVerifyCode_NoPendingCode(t *testing.T) {
	t.Parallel()

	user := NewUser("a@x.com", "Ann", time.Now())
	assert.ErrorIs(t, user.VerifyCode("123456", time.Now()), ErrNoCode)
}

func TestVerifyCode_Expired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, code := issuedUser(t, now)

	// One second past the stored expiry is enough.
	late := now.Add(testOTPTTL + time.Second)
	assert.ErrorIs(t, user.VerifyCode(code, late), ErrCodeExpired)
	assert.Empty(t, user.OTP.CodeHash, "expiry detection clears the code")

	// A fresh request must succeed from the clean state.
	_, err := user.IssueCode(6, testOTPTTL, late)
	require.NoError(t, err)
	assert.Equal(t, 0, user.OTP.Attempts)
}

func TestVerifyCode_WrongCodeKeepsCounter(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, _ := issuedUser(t, now)

	require.ErrorIs(t, user.VerifyCode("000001", now), ErrInvalidCode)
	assert.Equal(t, 1, user.OTP.Attempts)
	require.ErrorIs(t, user.VerifyCode("000001", now), ErrInvalidCode)
	assert.Equal(t, 2, user.OTP.Attempts)
	assert.NotEmpty(t, user.OTP.CodeHash, "mismatch does not clear the code")
}

func TestVerifyCode_FifthAttemptIsLastChance(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, code := issuedUser(t, now)

	// Four wrong attempts; the correct code on attempt five still works.
	for i := 0; i < 4; i++ {
		require.ErrorIs(t, user.VerifyCode("000001", now), ErrInvalidCode)
	}
	assert.Equal(t, 4, user.OTP.Attempts)
	require.NoError(t, user.VerifyCode(code, now))
	assert.True(t, user.IsVerified)
}

func TestVerifyCode_ExhaustedBeforeComparison(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, code := issuedUser(t, now)

	// Five wrong attempts exhaust the code; even the correct code is
	// rejected before any comparison afterwards.
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, user.VerifyCode("000001", now), ErrInvalidCode)
	}
	assert.Equal(t, 5, user.OTP.Attempts)
	assert.ErrorIs(t, user.VerifyCode(code, now), ErrTooManyAttempts)
	assert.Empty(t, user.OTP.CodeHash, "exhaustion clears the code")
	assert.False(t, user.IsVerified)
}

func TestAddAddress_FirstIsDefault(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)

	added := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)
	assert.True(t, added.IsDefault)
	assert.False(t, added.ID.IsZero())
	assert.Equal(t, 1, countDefaults(&user))
}

func TestAddAddress_ExplicitDefaultDemotesOthers(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	home := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)
	work := user.AddAddress(Address{Name: "Work", Street: "99 Office Park", IsDefault: true}, now.Add(time.Minute))

	assert.Equal(t, 1, countDefaults(&user))
	assert.True(t, user.FindAddress(work.ID).IsDefault)
	assert.False(t, user.FindAddress(home.ID).IsDefault)
}

func TestAddAddress_SecondWithoutDefaultKeepsFirst(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	home := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)
	user.AddAddress(Address{Name: "Work", Street: "99 Office Park"}, now.Add(time.Minute))

	assert.Equal(t, 1, countDefaults(&user))
	assert.True(t, user.FindAddress(home.ID).IsDefault)
}

func TestSetDefaultAddress_Idempotent(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	home := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)
	user.AddAddress(Address{Name: "Work", Street: "99 Office Park"}, now.Add(time.Minute))

	require.True(t, user.SetDefaultAddress(home.ID))
	require.True(t, user.SetDefaultAddress(home.ID))
	assert.Equal(t, 1, countDefaults(&user))
	assert.True(t, user.FindAddress(home.ID).IsDefault)
}

func TestSetDefaultAddress_UnknownID(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)

	assert.False(t, user.SetDefaultAddress(primitive.NewObjectID()))
	assert.Equal(t, 1, countDefaults(&user))
}

func TestRemoveAddress_PromotesMostRecentlyCreated(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	home := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)
	user.AddAddress(Address{Name: "Work", Street: "99 Office Park"}, now.Add(time.Minute))
	farm := user.AddAddress(Address{Name: "Farm", Street: "1 Country Lane"}, now.Add(2*time.Minute))

	require.True(t, user.FindAddress(home.ID).IsDefault)
	require.True(t, user.RemoveAddress(home.ID))

	assert.Len(t, user.Addresses, 2)
	assert.Equal(t, 1, countDefaults(&user))
	assert.True(t, user.FindAddress(farm.ID).IsDefault, "newest remaining address becomes default")
}

func TestRemoveAddress_NonDefaultKeepsDefault(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	home := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)
	work := user.AddAddress(Address{Name: "Work", Street: "99 Office Park"}, now.Add(time.Minute))

	require.True(t, user.RemoveAddress(work.ID))
	assert.Equal(t, 1, countDefaults(&user))
	assert.True(t, user.FindAddress(home.ID).IsDefault)
}

func TestRemoveAddress_LastAddress(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user := NewUser("a@x.com", "Ann", now)
	home := user.AddAddress(Address{Name: "Home", Street: "12 Main Street"}, now)

	require.True(t, user.RemoveAddress(home.ID))
	assert.Empty(t, user.Addresses)
	assert.False(t, user.RemoveAddress(home.ID))
}

func TestUserJSON_RedactsOTPMaterial(t *testing.T) {
	t.Parallel()

	now := time.Now()
	user, _ := issuedUser(t, now)

	data, err := json.Marshal(user)
	require.NoError(t, err)

	body := string(data)
	assert.NotContains(t, body, "otp")
	assert.NotContains(t, body, "code_hash")
	assert.NotContains(t, body, user.OTP.CodeHash)
}

func TestHasFavorite(t *testing.T) {
	t.Parallel()

	user := NewUser("a@x.com", "Ann", time.Now())
	id := primitive.NewObjectID()
	assert.False(t, user.HasFavorite(id))
	user.Favorites = append(user.Favorites, id)
	assert.True(t, user.HasFavorite(id))
}
