package tcp

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Do - http.Client with support for Digest authorization. Hikvision
// DVRs answer 401 Digest on the first request, credentials come from
// req.URL.User.
func Do(req *http.Request) (*http.Response, error) {
	client := http.Client{Timeout: time.Second * 30}

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized || req.URL.User == nil {
		return res, nil
	}

	_ = res.Body.Close()

	header, err := digest(res.Header.Get("WWW-Authenticate"), req)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", header)

	// replay the body for POST retries
	if req.GetBody != nil {
		if req.Body, err = req.GetBody(); err != nil {
			return nil, err
		}
	}

	return client.Do(req)
}

// digest computes the Authorization header for a WWW-Authenticate
// Digest challenge (RFC 2617, qop empty or "auth").
func digest(auth string, req *http.Request) (string, error) {
	if !strings.HasPrefix(auth, "Digest") {
		return "", errors.New("tcp: unsupported auth: " + auth)
	}

	realm := Between(auth, `realm="`, `"`)
	nonce := Between(auth, `nonce="`, `"`)
	qop := Between(auth, `qop="`, `"`)

	username := req.URL.User.Username()
	password, _ := req.URL.User.Password()
	uri := req.URL.RequestURI()

	ha1 := HexMD5(username, realm, password)
	ha2 := HexMD5(req.Method, uri)

	switch qop {
	case "":
		response := HexMD5(ha1, nonce, ha2)
		return fmt.Sprintf(
			`Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
			username, realm, nonce, uri, response,
		), nil
	case "auth":
		nc := "00000001"
		cnonce := "00000001" // TODO: random...
		response := HexMD5(ha1, nonce, nc, cnonce, qop, ha2)
		return fmt.Sprintf(
			`Digest username="%s", realm="%s", nonce="%s", uri="%s", qop=%s, nc=%s, cnonce="%s", response="%s"`,
			username, realm, nonce, uri, qop, nc, cnonce, response,
		), nil
	}

	return "", errors.New("tcp: unsupported qop: " + auth)
}
