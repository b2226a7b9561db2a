package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/askdocs/internal/api"
	"github.com/cloo-solutions/askdocs/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared length over
// the limit is refused before the handler runs; an undeclared one is cut
// off by http.MaxBytesReader while the handler reads. limit <= 0 disables
// the cap.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				api.JSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{
					Error: fmt.Sprintf("request body exceeds %d bytes", limit),
					Code:  domain.ErrCodeValidation,
				})
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}
