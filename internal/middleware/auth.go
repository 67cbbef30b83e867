package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// AuthCookie is the name of the session cookie issued on login.
const AuthCookie = "authenticated"

// Token derives the cookie value for password.
func Token(password string) string {
	sum := sha256.Sum256([]byte("plantdoc:" + password))
	return hex.EncodeToString(sum[:])
}

// Authorized reports whether r carries the session cookie for password.
func Authorized(r *http.Request, password string) bool {
	cookie, err := r.Cookie(AuthCookie)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(Token(password))) == 1
}

func isPublic(path string) bool {
	return path == "/login" ||
		path == "/health" ||
		strings.HasPrefix(path, "/auth/") ||
		strings.HasPrefix(path, "/static/")
}

// AuthMiddleware requires the session cookie on every non-public path.
// An empty password disables authentication.
func AuthMiddleware(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if password == "" || isPublic(r.URL.Path) || Authorized(r, password) {
				next.ServeHTTP(w, r)
				return
			}

			// API and AJAX callers get 401, browsers go to the login page
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		})
	}
}
