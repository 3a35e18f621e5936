package session

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const cookieName = "session"

// CookieCodec signs the opaque session ID into the browser cookie so a
// client cannot forge or swap IDs.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	secure bool
	maxAge int
}

// NewCookieCodec builds a codec from hex-encoded keys. Empty keys fall back
// to random ones, which invalidates all cookies on restart; fine for dev,
// set SESSION_HASH_KEY/SESSION_BLOCK_KEY in production.
func NewCookieCodec(hashKeyHex, blockKeyHex string, secure bool, ttl time.Duration) (*CookieCodec, error) {
	hashKey, err := decodeOrRandomKey(hashKeyHex, 32)
	if err != nil {
		return nil, err
	}
	blockKey, err := decodeOrRandomKey(blockKeyHex, 32)
	if err != nil {
		return nil, err
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	maxAge := int(ttl / time.Second)

	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(maxAge)

	return &CookieCodec{sc: sc, secure: secure, maxAge: maxAge}, nil
}

func decodeOrRandomKey(keyHex string, length int) ([]byte, error) {
	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return nil, err
		}
		if len(key) >= length {
			return key[:length], nil
		}
	}
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

func (c *CookieCodec) Write(w http.ResponseWriter, sessionID string) error {
	encoded, err := c.sc.Encode(cookieName, sessionID)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   c.maxAge,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieCodec) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return "", err
	}

	var sessionID string
	if err := c.sc.Decode(cookieName, cookie.Value, &sessionID); err != nil {
		return "", err
	}
	return sessionID, nil
}

func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Secure:   c.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
