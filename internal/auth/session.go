package auth

import (
	"crypto/sha256"
	"crypto/sha512"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	log "github.com/sirupsen/logrus"
)

const (
	SessionCookieName = "portfolio_session"
	// DevSessionSecret is only acceptable outside production.
	DevSessionSecret = "dev-secret-key"
)

// Session is the value carried in the signed session cookie.
type Session struct {
	Token     string    `json:"token"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
}

type SessionManagerParams struct {
	Secret       string
	Store        SessionStore
	TTL          time.Duration
	SecureCookie bool
}

// SessionManager issues, reads and clears admin sessions. The cookie is signed
// and encrypted with keys derived from the secret; the token inside it must
// also be live in the session store.
type SessionManager struct {
	codec        *securecookie.SecureCookie
	store        SessionStore
	ttl          time.Duration
	secureCookie bool
}

func NewSessionManager(params SessionManagerParams) *SessionManager {
	hashKey := sha512.Sum512([]byte("hash:" + params.Secret))
	blockKey := sha256.Sum256([]byte("block:" + params.Secret))

	ttl := params.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	codec := securecookie.New(hashKey[:], blockKey[:])
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(ttl.Seconds()))

	return &SessionManager{
		codec:        codec,
		store:        params.Store,
		ttl:          ttl,
		secureCookie: params.SecureCookie,
	}
}

// Start creates an admin session and sets its cookie on w.
func (sm *SessionManager) Start(w http.ResponseWriter, r *http.Request) (*Session, error) {
	now := time.Now()
	token, err := sm.store.Login(r.Context(), now)
	if err != nil {
		return nil, err
	}

	session := &Session{
		Token:     token,
		IsAdmin:   true,
		CreatedAt: now,
	}

	encoded, err := sm.codec.Encode(SessionCookieName, session)
	if err != nil {
		return nil, err
	}

	http.SetCookie(w, sm.cookie(encoded, int(sm.ttl.Seconds())))
	return session, nil
}

// Current decodes the session cookie of r, if any.
func (sm *SessionManager) Current(r *http.Request) (*Session, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, false
	}

	var session Session
	if err := sm.codec.Decode(SessionCookieName, cookie.Value, &session); err != nil {
		log.Tracef("decode session cookie: %s", err)
		return nil, false
	}

	return &session, true
}

func (sm *SessionManager) IsAuthenticated(r *http.Request) bool {
	session, ok := sm.Current(r)
	if !ok || !session.IsAdmin || session.Token == "" {
		return false
	}

	logged, err := sm.store.IsLogged(r.Context(), session.Token)
	if err != nil {
		log.Errorf("check admin session: %s", err)
		return false
	}

	return logged
}

// End revokes the current session, if there is one, and expires the cookie.
func (sm *SessionManager) End(w http.ResponseWriter, r *http.Request) {
	if session, ok := sm.Current(r); ok && session.Token != "" {
		if _, err := sm.store.Logout(r.Context(), session.Token); err != nil {
			log.Errorf("logout session: %s", err)
		}
	}

	http.SetCookie(w, sm.cookie("", -1))
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}
