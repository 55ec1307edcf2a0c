package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	browserCookie = "scolarite_browser"
	flashCookie   = "scolarite_flash"
	browserMaxAge = 365 * 24 * time.Hour
)

type browserKey struct{}

// Flash is a one-shot status message shown on the next rendered page.
type Flash struct {
	Kind string `json:"k"` // success or error
	Text string `json:"t"`
}

// Browser identifies browsers with a signed, encrypted cookie and carries
// flash messages between a post and the page it redirects to.
type Browser struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewBrowser creates the browser cookie codec.
// PRE: hashKey is 32 or 64 bytes; blockKey is 16, 24 or 32 bytes
func NewBrowser(hashKey, blockKey []byte, secure bool) *Browser {
	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(browserMaxAge / time.Second))
	return &Browser{codec: codec, secure: secure}
}

func (b *Browser) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Identify ensures every request carries a browser ID.
// POST: BrowserID(r.Context()) is non-empty; a new ID is issued when the
// cookie is absent or fails verification
func (b *Browser) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(browserCookie); err == nil {
			if err := b.codec.Decode(browserCookie, c.Value, &id); err != nil {
				slog.Debug("browser_cookie_rejected", "error", err)
				id = ""
			}
		}
		if id == "" {
			id = uuid.NewString()
			encoded, err := b.codec.Encode(browserCookie, id)
			if err != nil {
				slog.Error("browser_cookie_encode_failed", "error", err)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, b.cookie(browserCookie, encoded, browserMaxAge))
		}
		next.ServeHTTP(w, r.WithContext(ContextWithBrowserID(r.Context(), id)))
	})
}

// ContextWithBrowserID returns a context carrying id.
func ContextWithBrowserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, browserKey{}, id)
}

// BrowserID returns the browser ID of the request, or "".
func BrowserID(ctx context.Context) string {
	id, _ := ctx.Value(browserKey{}).(string)
	return id
}

// SetFlash stores a message for the next page.
func (b *Browser) SetFlash(w http.ResponseWriter, f Flash) {
	encoded, err := b.codec.Encode(flashCookie, f)
	if err != nil {
		slog.Warn("flash_encode_failed", "error", err)
		return
	}
	http.SetCookie(w, b.cookie(flashCookie, encoded, time.Minute))
}

// PopFlash returns and clears the pending message, if any.
func (b *Browser) PopFlash(w http.ResponseWriter, r *http.Request) (Flash, bool) {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return Flash{}, false
	}
	http.SetCookie(w, b.cookie(flashCookie, "", -time.Second))
	var f Flash
	if err := b.codec.Decode(flashCookie, c.Value, &f); err != nil {
		return Flash{}, false
	}
	return f, f.Text != ""
}
