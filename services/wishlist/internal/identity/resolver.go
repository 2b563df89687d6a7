// Package identity resolves the principal acting on a wishlist request: the
// authenticated account when a valid bearer token is present, otherwise an
// anonymous session carried in a cookie.
package identity

import (
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"time"

	"github.com/utafrali/EcommerceGo/pkg/middleware"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/domain"
	"github.com/utafrali/EcommerceGo/services/wishlist/internal/repository"
)

type contextKey string

const (
	ownerKey   contextKey = "wishlist_owner"
	sessionKey contextKey = "wishlist_session"
)

// Config controls the session cookie.
type Config struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Resolver attaches an Owner to every request it wraps.
type Resolver struct {
	sessions repository.SessionStore
	contacts repository.ContactStore
	cfg      Config
	logger   *slog.Logger
}

// NewResolver creates an identity resolver.
func NewResolver(sessions repository.SessionStore, contacts repository.ContactStore, cfg Config, logger *slog.Logger) *Resolver {
	return &Resolver{sessions: sessions, contacts: contacts, cfg: cfg, logger: logger}
}

// Resolve returns middleware that puts the acting Owner into the request
// context. When create is true and the caller has neither an account nor a
// live session, a new session is started and its cookie set; this must run
// before the handler writes any output. Any failure degrades to the zero
// Owner.
func (res *Resolver) Resolve(create bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := res.liveSession(ctx, w, r)
			if token != "" {
				ctx = context.WithValue(ctx, sessionKey, token)
			}

			var owner domain.Owner
			switch accountID := middleware.UserIDFromContext(ctx); {
			case accountID != "":
				owner = domain.AccountOwner(accountID)
				if err := res.contacts.Remember(ctx, accountID, middleware.EmailFromContext(ctx)); err != nil {
					res.logger.WarnContext(ctx, "could not remember account email", slog.String("error", err.Error()))
				}
			case token != "":
				owner = domain.SessionOwner(token)
			case create:
				if token = res.startSession(ctx, w); token != "" {
					owner = domain.SessionOwner(token)
					ctx = context.WithValue(ctx, sessionKey, token)
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ownerKey, owner)))
		})
	}
}

// liveSession returns the cookie's token when it is well formed and still
// known to the store, refreshing both the store TTL and the cookie.
func (res *Resolver) liveSession(ctx context.Context, w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(res.cfg.CookieName)
	if err != nil || !validToken(c.Value) {
		return ""
	}
	ok, err := res.sessions.Touch(ctx, c.Value)
	if err != nil {
		res.logger.WarnContext(ctx, "session lookup failed, continuing without session", slog.String("error", err.Error()))
		return ""
	}
	if !ok {
		return ""
	}
	res.setCookie(w, c.Value)
	return c.Value
}

func (res *Resolver) startSession(ctx context.Context, w http.ResponseWriter) string {
	token, err := res.sessions.Create(ctx)
	if err != nil {
		res.logger.WarnContext(ctx, "could not start anonymous session", slog.String("error", err.Error()))
		return ""
	}
	res.setCookie(w, token)
	return token
}

// EndSession forgets a guest session and expires its cookie. It is used once
// the session's lists have been merged into an account.
func (res *Resolver) EndSession(ctx context.Context, w http.ResponseWriter, token string) error {
	if err := res.sessions.Delete(ctx, token); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     res.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   res.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (res *Resolver) setCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     res.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(res.cfg.TTL / time.Second),
		HttpOnly: true,
		Secure:   res.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func validToken(token string) bool {
	if token == "" || len(token) > domain.MaxSessionTokenLength {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}

// OwnerFromContext returns the resolved Owner, or the zero Owner.
func OwnerFromContext(ctx context.Context) domain.Owner {
	o, _ := ctx.Value(ownerKey).(domain.Owner)
	return o
}

// SessionFromContext returns the live anonymous session token even when the
// request is authenticated. Merge endpoints use it to find the guest lists.
func SessionFromContext(ctx context.Context) string {
	s, _ := ctx.Value(sessionKey).(string)
	return s
}

// WithOwner returns a copy of ctx carrying owner.
func WithOwner(ctx context.Context, owner domain.Owner) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// WithSession returns a copy of ctx carrying a session token.
func WithSession(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionKey, token)
}
