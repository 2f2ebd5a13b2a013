// internal/app/features/login/handler.go
package login

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	uierrors "github.com/dalemusser/ledgerhub/internal/app/features/errors"
	"github.com/dalemusser/ledgerhub/internal/app/system/apperr"
	"github.com/dalemusser/ledgerhub/internal/app/system/auth"
	"github.com/dalemusser/ledgerhub/internal/domain/models"
)

const (
	stateCookieName = "ledgerhub-oauth-state"
	stateTTL        = 10 * time.Minute
)

// Handler handles guest sign-in, Google OAuth, and sign-out.
type Handler struct {
	Log *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string

	stateCodec *securecookie.SecureCookie
}

// NewHandler creates the login handler. sessionKey signs the short-lived
// OAuth state cookie.
func NewHandler(clientID, clientSecret, baseURL, sessionKey string, logger *zap.Logger) *Handler {
	codec := securecookie.New([]byte(sessionKey), nil)
	codec.MaxAge(int(stateTTL.Seconds()))
	return &Handler{
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		stateCodec:   codec,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login/guest                                                            |
| Signs the caller in as a guest. The guest uid lives in a durable signed     |
| cookie, so the same browser gets the same uid (and local data) back.        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGuestLogin(w http.ResponseWriter, r *http.Request) {
	uid, err := auth.EnsureGuestUID(w, r)
	if err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not establish guest identity", err))
		return
	}
	id := models.Identity{UID: uid, IsAnonymous: true}
	if err := auth.SignIn(w, r, id); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not sign in", err))
		return
	}
	h.Log.Info("guest signed in", zap.String("uid", uid))
	uierrors.RenderJSON(w, http.StatusOK, id)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Initiates the Google OAuth flow by redirecting to Google's consent screen.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		uierrors.RenderError(w, h.Log, apperr.New(apperr.Unknown, "Google sign-in is not configured"))
		return
	}

	state, err := generateState()
	if err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not start sign-in", err))
		return
	}
	encoded, err := h.stateCodec.Encode(stateCookieName, state)
	if err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not start sign-in", err))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	url := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("redirect_url", url))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code for tokens, fetches user info, and creates the session.  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeGoogleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	if state == "" || !h.validState(r, state) {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/?error=invalid_state", http.StatusSeeOther)
		return
	}
	// State is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/?error=token_exchange", http.StatusSeeOther)
		return
	}

	info, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/?error=user_info", http.StatusSeeOther)
		return
	}

	id := models.Identity{
		UID:         "google-" + info.ID,
		Email:       info.Email,
		DisplayName: info.Name,
	}
	if err := auth.SignIn(w, r, id); err != nil {
		h.Log.Error("failed to create session", zap.Error(err))
		http.Redirect(w, r, "/?error=internal", http.StatusSeeOther)
		return
	}

	h.Log.Info("user signed in via Google",
		zap.String("uid", id.UID), zap.String("email", id.Email))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /logout                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if err := auth.SignOut(w, r); err != nil {
		uierrors.RenderError(w, h.Log, apperr.Wrap(apperr.Unknown, "could not sign out", err))
		return
	}
	uierrors.RenderJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// validState checks the state parameter against the signed cookie.
func (h *Handler) validState(r *http.Request, state string) bool {
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	var stored string
	if err := h.stateCodec.Decode(stateCookieName, c.Value, &stored); err != nil {
		return false
	}
	return stored == state
}

func generateState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type googleUserInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}
