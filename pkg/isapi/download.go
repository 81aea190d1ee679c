package isapi

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/frankamera/frankamera/pkg/tcp"
)

// Download streams a stored file from the DVR. The playbackURI is passed
// through unencoded: it is effectively an opaque file ID, and the DVR
// refuses the request when it comes back percent-escaped.
func (c *Client) Download(playbackURI string) (io.ReadCloser, int64, error) {
	base, err := url.Parse(c.url)
	if err != nil {
		return nil, 0, err
	}

	req := &http.Request{
		Method: "GET",
		URL: &url.URL{
			Scheme: base.Scheme,
			Host:   base.Host,
			User:   base.User,
			Opaque: "/ISAPI/ContentMgmt/download?playbackURI=" + playbackURI,
		},
		Header: make(http.Header),
		Host:   base.Host,
	}

	res, err := tcp.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if res.StatusCode != http.StatusOK {
		_ = res.Body.Close()
		return nil, 0, errors.New("isapi: " + res.Status)
	}

	return res.Body, res.ContentLength, nil
}
