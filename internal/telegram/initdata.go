// Package telegram validates the signed init data a Mini App receives from the
// Telegram client and extracts the user it identifies.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DevUserID is the placeholder identity used when no bot token is configured.
const DevUserID int64 = 12345

// InitDataHeader carries signed init data from the Mini App to the backend.
const InitDataHeader = "X-Telegram-Init-Data"

var (
	ErrMissingHash = errors.New("init data has no hash")
	ErrBadHash     = errors.New("init data hash mismatch")
	ErrExpired     = errors.New("init data expired")
	ErrNoUser      = errors.New("init data has no user")
)

// User is the Telegram account that opened the Mini App.
type User struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// DevUser is returned in development mode.
func DevUser() User {
	return User{ID: DevUserID, FirstName: "Test", Username: "testuser"}
}

// InitData is a validated init-data payload.
type InitData struct {
	User     User
	AuthDate time.Time
	QueryID  string
}

// Validator checks init data against a bot token.
type Validator struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewValidator derives the WebAppData secret from botToken. A zero maxAge
// accepts init data of any age.
func NewValidator(botToken string, maxAge time.Duration) *Validator {
	return &Validator{
		secret: secretKey(botToken),
		maxAge: maxAge,
		now:    time.Now,
	}
}

func secretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte("WebAppData"))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

// Validate verifies the hash of raw, a URL-encoded init data string.
func (v *Validator) Validate(raw string) (InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, fmt.Errorf("parse init data: %w", err)
	}
	hash := values.Get("hash")
	if hash == "" {
		return InitData{}, ErrMissingHash
	}
	got, err := hex.DecodeString(hash)
	if err != nil {
		return InitData{}, ErrBadHash
	}
	if !hmac.Equal(got, sign(v.secret, DataCheckString(values))) {
		return InitData{}, ErrBadHash
	}

	var data InitData
	data.QueryID = values.Get("query_id")
	if s := values.Get("auth_date"); s != "" {
		sec, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return InitData{}, fmt.Errorf("parse auth_date: %w", err)
		}
		data.AuthDate = time.Unix(sec, 0)
	}
	if v.maxAge > 0 && (data.AuthDate.IsZero() || v.now().Sub(data.AuthDate) > v.maxAge) {
		return InitData{}, ErrExpired
	}

	u := values.Get("user")
	if u == "" {
		return InitData{}, ErrNoUser
	}
	if err := json.Unmarshal([]byte(u), &data.User); err != nil {
		return InitData{}, fmt.Errorf("decode user: %w", err)
	}
	if data.User.ID == 0 {
		return InitData{}, ErrNoUser
	}
	return data, nil
}

// DataCheckString joins every field except hash as sorted key=value lines.
func DataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}
	return strings.Join(lines, "\n")
}

func sign(secret []byte, data string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

// Sign produces a signed init data string for values. Used by the terminal
// player and tests to act as the Telegram client.
func Sign(botToken string, values url.Values) string {
	out := url.Values{}
	for k, v := range values {
		if k != "hash" {
			out[k] = v
		}
	}
	out.Set("hash", hex.EncodeToString(sign(secretKey(botToken), DataCheckString(out))))
	return out.Encode()
}
