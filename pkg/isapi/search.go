package isapi

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/frankamera/frankamera/pkg/tcp"
	"github.com/google/uuid"
)

var (
	ErrInvalidRange = errors.New("isapi: start must be before end")
	ErrNoRecordings = errors.New("isapi: no recordings in range")
)

// Recording - a searchable chunk of stored video, clamped to the
// requested range.
type Recording struct {
	TrackID     int       `json:"track_id"`
	Start       time.Time `json:"start_time"`
	End         time.Time `json:"end_time"`
	RTSPURI     string    `json:"rtsp_uri"`
	PlaybackURI string    `json:"-"`
	Name        string    `json:"name,omitempty"`
	Size        int64     `json:"size,omitempty"`
}

type searchDescription struct {
	XMLName    xml.Name `xml:"CMSearchDescription"`
	Xmlns      string   `xml:"xmlns,attr"`
	SearchID   string   `xml:"searchID"`
	TrackID    int      `xml:"trackList>trackID"`
	StartTime  string   `xml:"timeSpanList>timeSpan>startTime"`
	EndTime    string   `xml:"timeSpanList>timeSpan>endTime"`
	MaxResults int      `xml:"maxResults"`
	Position   int      `xml:"searchResultPosition"`
	Metadata   string   `xml:"metadataList>metadataDescriptor"`
}

type searchMatchItem struct {
	TrackID     int    `xml:"trackID"`
	StartTime   string `xml:"timeSpan>startTime"`
	EndTime     string `xml:"timeSpan>endTime"`
	ContentType string `xml:"mediaSegmentDescriptor>contentType"`
	PlaybackURI string `xml:"mediaSegmentDescriptor>playbackURI"`
}

type searchResult struct {
	XMLName      xml.Name          `xml:"CMSearchResult"`
	Status       bool              `xml:"responseStatus"`
	NumOfMatches int               `xml:"numOfMatches"`
	Items        []searchMatchItem `xml:"matchList>searchMatchItem"`
}

// Search asks the DVR for stored video on the given track. The result is
// a single recording covering the matches, with start/end clamped to
// what the DVR actually has and an RTSP URI ready for playback.
func (c *Client) Search(trackID int, start, end time.Time) (*Recording, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}

	start = start.In(c.Location)
	end = end.In(c.Location)

	desc := searchDescription{
		Xmlns:      "http://www.hikvision.com/ver20/XMLSchema",
		SearchID:   uuid.NewString(),
		TrackID:    trackID,
		StartTime:  start.Format(dvrTime),
		EndTime:    end.Format(dvrTime),
		MaxResults: 50,
		Metadata:   "//recordType.meta.std-cgi.com",
	}

	body, err := xml.Marshal(desc)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(
		"POST", c.url+"/ISAPI/ContentMgmt/search", bytes.NewReader(body),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", `application/xml; charset="UTF-8"`)

	res, err := tcp.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, errors.New("isapi: " + res.Status)
	}

	var result searchResult
	if err = xml.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("isapi: search: %w", err)
	}

	if !result.Status {
		return nil, errors.New("isapi: search rejected by DVR")
	}

	if result.NumOfMatches == 0 || len(result.Items) == 0 {
		return nil, ErrNoRecordings
	}

	first := result.Items[0]
	last := result.Items[len(result.Items)-1]

	recStart, err := c.parseTime(first.StartTime)
	if err != nil {
		return nil, fmt.Errorf("isapi: search: %w", err)
	}
	recEnd, err := c.parseTime(last.EndTime)
	if err != nil {
		return nil, fmt.Errorf("isapi: search: %w", err)
	}

	// the DVR may have less video than asked for
	if recStart.After(start) {
		start = recStart
	}
	if recEnd.Before(end) {
		end = recEnd
	}

	rec := &Recording{
		TrackID:     first.TrackID,
		Start:       start,
		End:         end,
		PlaybackURI: first.PlaybackURI,
	}

	if rec.RTSPURI, err = rewritePlaybackURI(first.PlaybackURI, start); err != nil {
		return nil, fmt.Errorf("isapi: search: %w", err)
	}

	if u, err2 := url.Parse(first.PlaybackURI); err2 == nil {
		query := u.Query()
		rec.Name = query.Get("name")
		rec.Size, _ = strconv.ParseInt(query.Get("size"), 10, 64)
	}

	return rec, nil
}

// rewritePlaybackURI drops everything from the playback URI query except
// a fresh starttime. Other parameters make some firmwares either refuse
// the request or ignore the range and send the whole file.
func rewritePlaybackURI(playbackURI string, start time.Time) (string, error) {
	u, err := url.Parse(playbackURI)
	if err != nil {
		return "", err
	}

	u.RawQuery = url.Values{
		"starttime": []string{start.Format("20060102T150405Z")},
	}.Encode()
	u.Fragment = ""

	return u.String(), nil
}
