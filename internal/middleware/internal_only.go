package middleware

import (
	"net"
	"net/http"
	"os"
	"strings"
)

// InternalOnly охраняет /internal/* (посев и удаление сессий платформой маркетплейса):
// запрос проходит только с приватного IP или с заголовком X-Internal-Secret == INTERNAL_SESSION_SECRET.
// Платформа ходит сюда из той же сети; наружу эти маршруты не экспонируются.
func InternalOnly(next http.Handler) http.Handler {
	secret := strings.TrimSpace(os.Getenv("INTERNAL_SESSION_SECRET"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && r.Header.Get("X-Internal-Secret") == secret {
			next.ServeHTTP(w, r)
			return
		}
		// RealIP стоит выше по цепочке: RemoteAddr уже содержит реальный IP
		// (с портом или без — зависит от того, пришёл ли он из заголовка).
		ipStr, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ipStr = r.RemoteAddr
		}
		if ipStr != "" && isPrivateIP(ipStr) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
	})
}

func isPrivateIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
