package tcp

import (
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"strings"
)

func Between(s, sub1, sub2 string) string {
	i := strings.Index(s, sub1)
	if i < 0 {
		return ""
	}
	s = s[i+len(sub1):]
	i = strings.Index(s, sub2)
	if i < 0 {
		return ""
	}
	return s[:i]
}

func HexMD5(s ...string) string {
	b := md5.Sum([]byte(strings.Join(s, ":")))
	return hex.EncodeToString(b[:])
}

func RemoteAddr(r *http.Request) string {
	if remote := r.Header.Get("X-Forwarded-For"); remote != "" {
		return remote + ", " + r.RemoteAddr
	}
	return r.RemoteAddr
}
