// Package isapi - Hikvision ISAPI client for DVR/NVR recording access.
package isapi

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/frankamera/frankamera/pkg/tcp"
)

type Client struct {
	// Location - DVR timestamps come with a Z suffix, but are actually
	// the local time configured on the recorder
	Location *time.Location

	url  string
	host string
}

func NewClient(rawURL, username, password string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	if u.Scheme == "" {
		u.Scheme = "http"
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	u.Path = ""
	u.RawQuery = ""

	return &Client{url: u.String(), host: u.Host, Location: time.Local}, nil
}

// Channel - InputProxyChannel item (a camera attached to the DVR)
type Channel struct {
	ID      int    `xml:"id"`
	Name    string `xml:"name"`
	Address string `xml:"sourceInputPortDescriptor>ipAddress"`
}

// ChannelStatus - InputProxyChannelStatus item
type ChannelStatus struct {
	ID      int   `xml:"id"`
	Online  bool  `xml:"online"`
	Streams []int `xml:"streamingProxyChannelIdList>streamingProxyChannelId"`
}

func (c *Client) Channels() ([]Channel, error) {
	b, err := c.get("/ISAPI/ContentMgmt/InputProxy/channels")
	if err != nil {
		return nil, err
	}

	var list struct {
		XMLName  xml.Name  `xml:"InputProxyChannelList"`
		Channels []Channel `xml:"InputProxyChannel"`
	}
	if err = xml.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("isapi: channels: %w", err)
	}

	return list.Channels, nil
}

func (c *Client) ChannelStatuses() ([]ChannelStatus, error) {
	b, err := c.get("/ISAPI/ContentMgmt/InputProxy/channels/status")
	if err != nil {
		return nil, err
	}

	var list struct {
		XMLName  xml.Name        `xml:"InputProxyChannelStatusList"`
		Statuses []ChannelStatus `xml:"InputProxyChannelStatus"`
	}
	if err = xml.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("isapi: channel status: %w", err)
	}

	return list.Statuses, nil
}

func (c *Client) get(path string) ([]byte, error) {
	req, err := http.NewRequest("GET", c.url+path, nil)
	if err != nil {
		return nil, err
	}

	res, err := tcp.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.New("isapi: " + res.Status)
	}

	return io.ReadAll(res.Body)
}

// dvrTime - Hikvision format, the Z is a lie (see Client.Location)
const dvrTime = "2006-01-02T15:04:05Z"

func (c *Client) parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(dvrTime, s, c.Location)
}
