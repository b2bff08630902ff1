package shared

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

// DefaultSessionCookie is the cookie carrying the signed session token.
const DefaultSessionCookie = "staffdesk_session"

// ErrNoSession is the uniform outcome for every verification failure: missing
// token, malformed structure, bad signature, or expiry. Callers treat all of
// them as "not logged in" and discard the stored token.
var ErrNoSession = errors.New("no valid session")

// Session is a verified, signed assertion of a principal's identity and its
// permission snapshot at login time. It is never persisted server-side; the
// snapshot is trusted for the token lifetime and refreshed only by re-login.
type Session struct {
	PrincipalID string    `json:"sub"`
	Username    string    `json:"username"`
	RoleID      string    `json:"role_id"`
	RoleName    string    `json:"role_name"`
	Permissions []string  `json:"permissions"`
	IssuedAt    time.Time `json:"iat"`
	ExpiresAt   time.Time `json:"exp"`
}

// Can reports whether the session's permission snapshot contains the
// capability. This is the single authorization check the rest of the system
// consults; nothing re-derives permissions from the store mid-session.
func (s *Session) Can(capabilityID string) bool {
	if s == nil {
		return false
	}
	for _, p := range s.Permissions {
		if p == capabilityID {
			return true
		}
	}
	return false
}

// IsPrivileged reports whether the session belongs to the reserved principal.
// The comparison is case-sensitive: only the exact reserved username is
// exempt from scoping rules.
func (s *Session) IsPrivileged(reservedUsername string) bool {
	return s != nil && s.Username == reservedUsername
}

// SessionManager signs, verifies, and transports session tokens. Tokens are
// base64url(JSON claims) + "." + base64url(HMAC-SHA256(claims)); any bit flip
// invalidates the signature.
type SessionManager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
}

// NewSessionManager constructs a SessionManager. The signing secret must be
// non-empty; enforcing that is the caller's startup responsibility (the
// subsystem fails closed without it).
func NewSessionManager(secret, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	if cookieName == "" {
		cookieName = DefaultSessionCookie
	}
	return &SessionManager{
		secret:     []byte(secret),
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// TTL returns the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration { return sm.ttl }

// CookieName returns the session cookie name.
func (sm *SessionManager) CookieName() string { return sm.cookieName }

// Issue signs the claims. IssuedAt/ExpiresAt are stamped here; the caller
// supplies identity and the resolved permission snapshot.
func (sm *SessionManager) Issue(sess Session) (string, *Session, error) {
	if len(sm.secret) == 0 {
		return "", nil, NewConfigError("session signing secret not configured", nil)
	}
	now := time.Now().UTC().Truncate(time.Second)
	sess.IssuedAt = now
	sess.ExpiresAt = now.Add(sm.ttl)
	if sess.Permissions == nil {
		sess.Permissions = []string{}
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return "", nil, err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	token := encoded + "." + sm.sign(encoded)
	return token, &sess, nil
}

// Verify checks signature and expiry, returning the decoded session. Every
// failure mode collapses to ErrNoSession; no partial trust is given to a
// token that fails verification for any reason.
func (sm *SessionManager) Verify(token string) (*Session, error) {
	if len(sm.secret) == 0 || token == "" {
		return nil, ErrNoSession
	}
	dot := strings.LastIndexByte(token, '.')
	if dot <= 0 || dot == len(token)-1 {
		return nil, ErrNoSession
	}
	encoded, sig := token[:dot], token[dot+1:]
	if !hmac.Equal([]byte(sig), []byte(sm.sign(encoded))) {
		return nil, ErrNoSession
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, ErrNoSession
	}
	var sess Session
	if err := json.Unmarshal(payload, &sess); err != nil {
		return nil, ErrNoSession
	}
	if sess.ExpiresAt.IsZero() || !time.Now().UTC().Before(sess.ExpiresAt) {
		return nil, ErrNoSession
	}
	return &sess, nil
}

// FromRequest verifies the token carried by the request cookie.
func (sm *SessionManager) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return nil, ErrNoSession
	}
	return sm.Verify(cookie.Value)
}

// SetCookie attaches the session token to the response.
func (sm *SessionManager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sm.ttl / time.Second),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie. Clearing twice is not an error.
func (sm *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (sm *SessionManager) sign(encoded string) string {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
