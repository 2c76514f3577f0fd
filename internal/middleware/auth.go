package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sailchat/internal/storage"
)

// SessionAuth проверяет сессионный токен и кладёт user_name и роль в контекст.
// Токен берётся из Authorization: Bearer, либо из query token (для WebSocket —
// браузерный API не позволяет задать заголовок при upgrade).
func SessionAuth(store storage.SessionPushStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			session, err := store.GetSession(r.Context(), token)
			if err != nil || session.UserName == "" {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), UserKey, session.UserName)
			ctx = context.WithValue(ctx, RoleKey, session.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(h[len("Bearer "):])
}
