package api

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// DecodeBearer extracts the token from an "Authorization: Bearer xxx"
// header. The token travels base64-encoded, same as basic auth does.
func DecodeBearer(header string) (string, error) {
	scheme, encoded, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", errors.New("could not parse authorization header")
	}

	if !strings.EqualFold(strings.TrimSpace(scheme), "bearer") {
		return "", errors.New("unknown authorization method " + scheme)
	}

	token, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", errors.New("invalid base64 encoding")
	}

	return string(token), nil
}

// EncodeBearer - header value for the given raw token.
func EncodeBearer(token string) string {
	return "Bearer " + base64.StdEncoding.EncodeToString([]byte(token))
}

func middlewareAuth(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// localhost and unix socket clients skip auth
		if !strings.HasPrefix(r.RemoteAddr, "127.") && !strings.HasPrefix(r.RemoteAddr, "[::1]") && r.RemoteAddr != "@" {
			got, err := DecodeBearer(r.Header.Get("Authorization"))
			if err != nil || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				w.Header().Set("Www-Authenticate", `Bearer realm="frankamera"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}
