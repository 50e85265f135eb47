package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/madu-store/api/internal/platform/requestctx"
)

const (
	// CartSessionHeader carries the cart session id on requests and responses.
	CartSessionHeader = "X-Cart-Session"
	// CartSessionCookie is the cookie fallback for browsers.
	CartSessionCookie = "cart_session"

	maxSessionIDLength = 64
)

// ResolveCartSession stores a client supplied cart session id on the request context. It never
// issues ids, so it can run ahead of the request logger on every route.
func ResolveCartSession() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := sessionFromRequest(r); id != "" {
				r = r.WithContext(requestctx.WithCartSession(r.Context(), id))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCartSession guarantees a cart session id, issuing a new one when the client sent none,
// and echoes it in both the response header and the session cookie.
func RequireCartSession(maxAge time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id := requestctx.CartSession(ctx)
			if id == "" {
				id = sessionFromRequest(r)
			}
			if id == "" {
				id = uuid.NewString()
				requestctx.Logger(ctx).Debug("cart session issued")
			}

			w.Header().Set(CartSessionHeader, id)
			cookie := &http.Cookie{
				Name:     CartSessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   isHTTPS(r),
			}
			if maxAge > 0 {
				cookie.MaxAge = int(maxAge / time.Second)
			}
			http.SetCookie(w, cookie)

			next.ServeHTTP(w, r.WithContext(requestctx.WithCartSession(ctx, id)))
		})
	}
}

func sessionFromRequest(r *http.Request) string {
	if id := normalizeSessionID(r.Header.Get(CartSessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(CartSessionCookie); err == nil {
		return normalizeSessionID(cookie.Value)
	}
	return ""
}

// normalizeSessionID accepts opaque ids made of letters, digits, dashes and underscores.
func normalizeSessionID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxSessionIDLength {
		return ""
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return ""
		}
	}
	return id
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}
