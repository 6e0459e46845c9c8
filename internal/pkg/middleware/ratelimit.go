package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	apperror "mouralws/internal/errors"
	"mouralws/internal/pkg/cache"
	"mouralws/internal/pkg/logger"
)

// RateLimiter limita requisições por IP em janelas fixas de duration, com contador no Redis.
// Se o Redis falhar a requisição segue (fail-open) e o erro é registrado.
func RateLimiter(client cache.Client, limit int, duration time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip
			ctx := r.Context()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limiter indisponível.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				// primeira requisição da janela: só o TTL, o contador já pode ter avançado
				if err := client.Expire(ctx, key, duration); err != nil {
					log.Warn("Falha ao definir janela do rate limiter.", map[string]interface{}{"error": err.Error()})
				}
			}

			remaining := limit - int(count)
			if remaining < 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(duration.Seconds())))
				writeError(w, &tooManyRequests{msg: fmt.Sprintf("Limite de %d requisições por %s excedido.", limit, duration)})
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			next.ServeHTTP(w, r)
		})
	}
}

type tooManyRequests struct{ msg string }

func (e *tooManyRequests) Error() string    { return e.msg }
func (e *tooManyRequests) Category() string { return "RATE_LIMITED" }
func (e *tooManyRequests) HTTPStatus() int  { return http.StatusTooManyRequests }
func (e *tooManyRequests) Unwrap() error    { return nil }

var _ apperror.AppError = (*tooManyRequests)(nil)
