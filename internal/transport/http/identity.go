package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/telegram"
)

var errUnauthorized = errors.New("unauthorized")

type userKey struct{}

// Identity resolves the calling Telegram user. With a validator, signed init
// data is required; without one the server runs in dev mode.
type Identity struct {
	validator *telegram.Validator
	devUserID int64
}

// TelegramIdentity verifies init data with v.
func TelegramIdentity(v *telegram.Validator) *Identity {
	return &Identity{validator: v}
}

// DevIdentity trusts the user_id the caller sends and falls back to devUserID.
func DevIdentity(devUserID int64) *Identity {
	if devUserID == 0 {
		devUserID = telegram.DevUserID
	}
	return &Identity{devUserID: devUserID}
}

// Verified reports whether identities come from signed init data.
func (i *Identity) Verified() bool { return i.validator != nil }

// Resolve returns the caller's user id. Browsers cannot set headers on a
// websocket handshake, so init data is also read from the initData query parameter.
func (i *Identity) Resolve(r *http.Request) (int64, error) {
	if i.validator != nil {
		raw := r.Header.Get(telegram.InitDataHeader)
		if raw == "" {
			raw = r.URL.Query().Get("initData")
		}
		data, err := i.validator.Validate(raw)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errUnauthorized, err)
		}
		return data.User.ID, nil
	}

	query := r.URL.Query()
	for _, name := range []string{"user_id", "userId"} {
		raw := query.Get(name)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("%w: bad %s", domain.ErrInvalidInput, name)
		}
		return id, nil
	}
	return i.devUserID, nil
}

// Middleware stores the resolved user id in the request context.
func (i *Identity) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := i.Resolve(r)
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

// UserID returns the id stored by Identity.Middleware.
func UserID(ctx context.Context) int64 {
	id, _ := ctx.Value(userKey{}).(int64)
	return id
}
