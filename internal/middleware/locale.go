package middleware

import (
	"context"
	"net/http"

	"github.com/soaringjerry/Quizbank/internal/utils"
)

type ctxKey int

const (
	localeKey ctxKey = iota + 1
	requestIDKey
)

// LocaleMiddleware resolves the response locale from ?lang= or
// Accept-Language and stores it in the request context.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		locale := utils.DetermineLocale(r.URL.Query().Get("lang"), r.Header.Get("Accept-Language"))
		w.Header().Set("Content-Language", locale)
		ctx := context.WithValue(r.Context(), localeKey, locale)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LocaleFromContext retrieves the locale stored by LocaleMiddleware.
func LocaleFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(localeKey).(string); ok && s != "" {
		return s
	}
	return "en"
}
