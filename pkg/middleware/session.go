package middleware

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// SessionIDHeader identifies the shopper's cart.
const SessionIDHeader = "X-Session-ID"

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Session resolves the cart session from X-Session-ID. A request without the
// header is issued a fresh session, echoed back in the response header so the
// client can keep using it. Malformed IDs are rejected with 400.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionIDHeader)
			switch {
			case sessionID == "":
				sessionID = uuid.NewString()
			case !sessionIDPattern.MatchString(sessionID):
				httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
					Error: &httputil.ErrorResponse{
						Code:    "INVALID_SESSION",
						Message: "X-Session-ID must be 1-128 characters of letters, digits, '-' or '_'",
					},
				})
				return
			}

			w.Header().Set(SessionIDHeader, sessionID)
			next.ServeHTTP(w, r.WithContext(logger.WithSessionID(r.Context(), sessionID)))
		})
	}
}

// SessionIDFromRequest returns the session resolved by Session.
func SessionIDFromRequest(r *http.Request) string {
	return logger.SessionIDFromContext(r.Context())
}
