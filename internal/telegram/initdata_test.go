package telegram

import (
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const token = "123456:test-token"

func signedPayload(authDate time.Time) url.Values {
	v := url.Values{}
	v.Set("query_id", "AAF")
	v.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	v.Set("user", `{"id":777,"first_name":"Ann","username":"ann"}`)
	return v
}

func TestValidateAcceptsSignedData(t *testing.T) {
	raw := Sign(token, signedPayload(time.Now()))

	data, err := NewValidator(token, time.Hour).Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(777), data.User.ID)
	assert.Equal(t, "ann", data.User.Username)
	assert.Equal(t, "AAF", data.QueryID)
}

func TestValidateRejectsTampering(t *testing.T) {
	raw := Sign(token, signedPayload(time.Now()))
	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	values.Set("user", `{"id":1,"first_name":"Mallory"}`)

	_, err = NewValidator(token, 0).Validate(values.Encode())
	assert.ErrorIs(t, err, ErrBadHash)

	_, err = NewValidator("other-token", 0).Validate(raw)
	assert.ErrorIs(t, err, ErrBadHash)
}

func TestValidateMissingHash(t *testing.T) {
	_, err := NewValidator(token, 0).Validate(signedPayload(time.Now()).Encode())
	assert.ErrorIs(t, err, ErrMissingHash)
}

func TestValidateMaxAge(t *testing.T) {
	raw := Sign(token, signedPayload(time.Now().Add(-2*time.Hour)))

	_, err := NewValidator(token, time.Hour).Validate(raw)
	assert.ErrorIs(t, err, ErrExpired)

	_, err = NewValidator(token, 0).Validate(raw)
	assert.NoError(t, err)
}

func TestValidateRequiresUser(t *testing.T) {
	v := url.Values{}
	v.Set("auth_date", "1700000000")
	_, err := NewValidator(token, 0).Validate(Sign(token, v))
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestDataCheckString(t *testing.T) {
	v := url.Values{}
	v.Set("user", "u")
	v.Set("hash", "h")
	v.Set("auth_date", "1")
	assert.Equal(t, "auth_date=1\nuser=u", DataCheckString(v))
}
