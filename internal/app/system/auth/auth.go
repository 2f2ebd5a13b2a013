package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session constants & globals                                                |
*─────────────────────────────────────────────────────────────────────────────*/

const (
	SessionName = "ledgerhub-session"

	// GuestCookieName holds the durable guest uid. It outlives the
	// session cookie so a returning guest gets the same uid and finds
	// their locally stored data again.
	GuestCookieName = "ledgerhub-guest"

	guestCookieMaxAge = 365 * 24 * 60 * 60

	isAuthKey = "is_authenticated"
	uidKey    = "uid"
	emailKey  = "email"
	nameKey   = "display_name"
	anonKey   = "is_anonymous"
	groupKey  = "current_group"
)

// Store is initialised once via InitSessionStore.
var Store *sessions.CookieStore

// guestCodec signs the durable guest cookie.
var guestCodec *securecookie.SecureCookie

/*─────────────────────────────────────────────────────────────────────────────*
| Current-identity helpers                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey string

const currentIdentityKey ctxKey = "currentIdentity"

// CurrentIdentity returns the signed-in identity & "found?" flag.
func CurrentIdentity(r *http.Request) (models.Identity, bool) {
	id, ok := r.Context().Value(currentIdentityKey).(models.Identity)
	return id, ok
}

// WithIdentity injects an identity into the request context. Handlers
// under test use it to skip the session round-trip.
func WithIdentity(r *http.Request, id models.Identity) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentIdentityKey, id))
}

// LoadIdentity injects the identity into context if a session exists.
// If the session store has not been initialized yet, it is a no-op.
func LoadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if Store == nil {
			next.ServeHTTP(w, r)
			return
		}
		sess, _ := Store.Get(r, SessionName)
		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			anon, _ := sess.Values[anonKey].(bool)
			r = WithIdentity(r, models.Identity{
				UID:         getString(sess, uidKey),
				Email:       getString(sess, emailKey),
				DisplayName: getString(sess, nameKey),
				IsAnonymous: anon,
			})
		}
		next.ServeHTTP(w, r)
	})
}

// RequireIdentity rejects requests without a signed-in identity
// (guest included) with a JSON 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentIdentity(r); !ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{
				"error":   "auth_required",
				"message": "sign in required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Sign-in / sign-out                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// SignIn stores the identity in the session.
func SignIn(w http.ResponseWriter, r *http.Request, id models.Identity) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values[isAuthKey] = true
	sess.Values[uidKey] = id.UID
	sess.Values[emailKey] = id.Email
	sess.Values[nameKey] = id.DisplayName
	sess.Values[anonKey] = id.IsAnonymous
	return sess.Save(r, w)
}

// SignOut drops the session. The durable guest cookie is left alone so
// a guest who signs back in keeps their uid and local data.
func SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// EnsureGuestUID returns the durable guest uid for this browser,
// minting and setting the cookie when absent.
func EnsureGuestUID(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(GuestCookieName); err == nil {
		var uid string
		if err := guestCodec.Decode(GuestCookieName, c.Value, &uid); err == nil && uid != "" {
			return uid, nil
		}
	}
	uid := "guest-" + uuid.NewString()
	encoded, err := guestCodec.Encode(GuestCookieName, uid)
	if err != nil {
		return "", fmt.Errorf("encode guest cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     GuestCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   guestCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   Store.Options.Secure,
	})
	return uid, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Current-group selection                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// CurrentGroup returns the group selected in this session, or "".
func CurrentGroup(r *http.Request) string {
	if Store == nil {
		return ""
	}
	sess, _ := Store.Get(r, SessionName)
	return getString(sess, groupKey)
}

// SetCurrentGroup records the selected group in the session.
func SetCurrentGroup(w http.ResponseWriter, r *http.Request, groupID string) error {
	sess, _ := Store.Get(r, SessionName)
	sess.Values[groupKey] = groupID
	return sess.Save(r, w)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Initialization                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

// InitSessionStore initializes the global session Store and the guest
// cookie codec using the provided session key and domain. The `secure`
// flag controls whether cookies are marked Secure and which SameSite
// mode is used.
func InitSessionStore(sessionKey, domain string, secure bool, logger *zap.Logger) error {
	if sessionKey == "" {
		return fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts
	Store = store

	guestCodec = securecookie.New([]byte(sessionKey), nil)
	guestCodec.MaxAge(guestCookieMaxAge)

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return nil
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
