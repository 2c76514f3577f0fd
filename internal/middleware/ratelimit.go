package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	rateLimitWindow  = time.Minute
	rateLimitMaxIP   = 200
	rateLimitMaxUser = 100
	sweepEvery       = 512
)

// rateLimiter — скользящее окно по ключу, целиком в памяти.
type rateLimiter struct {
	mu     sync.Mutex
	times  map[string][]time.Time
	max    int
	window time.Duration
	ops    int
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{times: make(map[string][]time.Time), max: max, window: window}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	cutoff := now.Add(-r.window)
	slice := r.times[key]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= r.max {
		r.times[key] = slice
		return false
	}
	r.times[key] = append(slice, now)
	r.ops++
	if r.ops >= sweepEvery {
		r.ops = 0
		r.sweep(cutoff)
	}
	return true
}

// sweep удаляет ключи без событий в окне, иначе карта растёт бесконечно. Вызывается под mu.
func (r *rateLimiter) sweep(cutoff time.Time) {
	for key, slice := range r.times {
		if len(slice) == 0 || !slice[len(slice)-1].After(cutoff) {
			delete(r.times, key)
		}
	}
}

var (
	apiRateByIP   = newRateLimiter(rateLimitMaxIP, rateLimitWindow)
	apiRateByUser = newRateLimiter(rateLimitMaxUser, rateLimitWindow)
)

func tooManyRequests(w http.ResponseWriter, window time.Duration) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	w.WriteHeader(http.StatusTooManyRequests)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests"})
}

// RateLimitAPI ограничивает запросы по IP и по пользователю (если есть в контексте). 429 при превышении.
// IP берётся из RemoteAddr — выше по цепочке стоит chi RealIP.
func RateLimitAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !apiRateByIP.allow(r.RemoteAddr) {
			tooManyRequests(w, rateLimitWindow)
			return
		}
		if userID := GetUser(r.Context()); userID != "" {
			if !apiRateByUser.allow("u:" + userID) {
				tooManyRequests(w, rateLimitWindow)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
