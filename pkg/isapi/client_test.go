package isapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const channelsXML = `<?xml version="1.0" encoding="UTF-8"?>
<InputProxyChannelList version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
<InputProxyChannel>
<id>1</id>
<name>Voordeur</name>
<sourceInputPortDescriptor>
<proxyProtocol>HIKVISION</proxyProtocol>
<ipAddress>10.0.0.11</ipAddress>
<managePortNo>8000</managePortNo>
</sourceInputPortDescriptor>
</InputProxyChannel>
<InputProxyChannel>
<id>2</id>
<name>Achterdeur</name>
<sourceInputPortDescriptor>
<proxyProtocol>HIKVISION</proxyProtocol>
<ipAddress>10.0.0.12</ipAddress>
</sourceInputPortDescriptor>
</InputProxyChannel>
</InputProxyChannelList>`

const statusXML = `<?xml version="1.0" encoding="UTF-8"?>
<InputProxyChannelStatusList version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
<InputProxyChannelStatus>
<id>1</id>
<online>true</online>
<streamingProxyChannelIdList>
<streamingProxyChannelId>101</streamingProxyChannelId>
<streamingProxyChannelId>102</streamingProxyChannelId>
</streamingProxyChannelIdList>
</InputProxyChannelStatus>
<InputProxyChannelStatus>
<id>2</id>
<online>false</online>
</InputProxyChannelStatus>
</InputProxyChannelStatusList>`

const searchXML = `<?xml version="1.0" encoding="UTF-8"?>
<CMSearchResult version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
<searchID>c8b05b50-0171-11ec-a6c8-8b2e7a4bdd3a</searchID>
<responseStatus>true</responseStatus>
<responseStatusStrg>OK</responseStatusStrg>
<numOfMatches>2</numOfMatches>
<matchList>
<searchMatchItem>
<sourceID>{0000000000-0000-0000-0000-000000000000}</sourceID>
<trackID>101</trackID>
<timeSpan>
<startTime>2021-08-20T10:05:00Z</startTime>
<endTime>2021-08-20T10:35:00Z</endTime>
</timeSpan>
<mediaSegmentDescriptor>
<contentType>video</contentType>
<codecType>H.264-BP</codecType>
<playbackURI>rtsp://10.0.0.1/Streaming/tracks/101/?starttime=20210820T100500Z&amp;endtime=20210820T103500Z&amp;name=ch01_00000000017000000&amp;size=1048576</playbackURI>
</mediaSegmentDescriptor>
</searchMatchItem>
<searchMatchItem>
<trackID>101</trackID>
<timeSpan>
<startTime>2021-08-20T10:35:00Z</startTime>
<endTime>2021-08-20T10:55:00Z</endTime>
</timeSpan>
<mediaSegmentDescriptor>
<contentType>video</contentType>
<playbackURI>rtsp://10.0.0.1/Streaming/tracks/101/?starttime=20210820T103500Z&amp;endtime=20210820T105500Z&amp;name=ch01_00000000017000001&amp;size=524288</playbackURI>
</mediaSegmentDescriptor>
</searchMatchItem>
</matchList>
</CMSearchResult>`

const emptySearchXML = `<?xml version="1.0" encoding="UTF-8"?>
<CMSearchResult version="2.0" xmlns="http://www.hikvision.com/ver20/XMLSchema">
<searchID>c8b05b50-0171-11ec-a6c8-8b2e7a4bdd3a</searchID>
<responseStatus>true</responseStatus>
<numOfMatches>0</numOfMatches>
</CMSearchResult>`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, "admin", "secret")
	require.NoError(t, err)
	client.Location = time.UTC
	return client
}

func TestChannels(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ISAPI/ContentMgmt/InputProxy/channels", r.URL.Path)
		_, _ = w.Write([]byte(channelsXML))
	}))

	channels, err := client.Channels()
	require.NoError(t, err)
	require.Len(t, channels, 2)
	require.Equal(t, Channel{ID: 1, Name: "Voordeur", Address: "10.0.0.11"}, channels[0])
	require.Equal(t, Channel{ID: 2, Name: "Achterdeur", Address: "10.0.0.12"}, channels[1])
}

func TestChannelStatuses(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ISAPI/ContentMgmt/InputProxy/channels/status", r.URL.Path)
		_, _ = w.Write([]byte(statusXML))
	}))

	statuses, err := client.ChannelStatuses()
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.Equal(t, ChannelStatus{ID: 1, Online: true, Streams: []int{101, 102}}, statuses[0])
	require.Equal(t, ChannelStatus{ID: 2, Online: false}, statuses[1])
}

func TestSearch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "POST", r.Method)
		require.Equal(t, "/ISAPI/ContentMgmt/search", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		require.Contains(t, string(body), "<trackID>101</trackID>")
		require.Contains(t, string(body), "<maxResults>50</maxResults>")

		_, _ = w.Write([]byte(searchXML))
	}))

	// ask for more than the DVR has on both ends
	start := time.Date(2021, 8, 20, 10, 0, 0, 0, time.UTC)
	end := time.Date(2021, 8, 20, 11, 0, 0, 0, time.UTC)

	rec, err := client.Search(101, start, end)
	require.NoError(t, err)

	// clamped to the recorded range
	require.Equal(t, time.Date(2021, 8, 20, 10, 5, 0, 0, time.UTC), rec.Start)
	require.Equal(t, time.Date(2021, 8, 20, 10, 55, 0, 0, time.UTC), rec.End)

	u, err := url.Parse(rec.RTSPURI)
	require.NoError(t, err)
	require.Equal(t, "rtsp", u.Scheme)
	require.Equal(t, "20210820T100500Z", u.Query().Get("starttime"))
	require.Empty(t, u.Query().Get("endtime"))

	require.Equal(t, "ch01_00000000017000000", rec.Name)
	require.Equal(t, int64(1048576), rec.Size)
	require.Contains(t, rec.PlaybackURI, "endtime=") // raw URI kept for download
}

func TestSearchRequestedRangeInsideRecording(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchXML))
	}))

	start := time.Date(2021, 8, 20, 10, 10, 0, 0, time.UTC)
	end := time.Date(2021, 8, 20, 10, 20, 0, 0, time.UTC)

	rec, err := client.Search(101, start, end)
	require.NoError(t, err)
	require.Equal(t, start, rec.Start)
	require.Equal(t, end, rec.End)
}

func TestSearchNoRecordings(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emptySearchXML))
	}))

	start := time.Date(2021, 8, 20, 10, 0, 0, 0, time.UTC)
	_, err := client.Search(101, start, start.Add(time.Hour))
	require.ErrorIs(t, err, ErrNoRecordings)
}

func TestSearchInvalidRange(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	}))

	now := time.Now()
	_, err := client.Search(101, now, now)
	require.ErrorIs(t, err, ErrInvalidRange)

	_, err = client.Search(101, now, now.Add(-time.Minute))
	require.ErrorIs(t, err, ErrInvalidRange)
}

func TestDownloadOpaqueURI(t *testing.T) {
	const playbackURI = "rtsp://10.0.0.1/Streaming/tracks/101/?starttime=20210820T100500Z&endtime=20210820T103500Z&name=ch01_00000000017000000&size=11"

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// playbackURI must arrive unencoded
		require.Contains(t, r.RequestURI, "playbackURI="+playbackURI)
		_, _ = w.Write([]byte("video bytes"))
	}))

	body, size, err := client.Download(playbackURI)
	require.NoError(t, err)
	defer body.Close()

	require.Equal(t, int64(11), size)

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Equal(t, "video bytes", string(data))
}

func TestDVRLocalTime(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(searchXML))
	}))
	client.Location = loc

	start := time.Date(2021, 8, 20, 10, 0, 0, 0, loc)
	rec, err := client.Search(101, start, start.Add(time.Hour))
	require.NoError(t, err)

	// the Z-suffixed DVR timestamp is interpreted in the DVR's zone
	require.Equal(t, time.Date(2021, 8, 20, 10, 5, 0, 0, loc).Unix(), rec.Start.Unix())
}
