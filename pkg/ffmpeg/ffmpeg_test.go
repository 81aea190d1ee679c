package ffmpeg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadArgs(t *testing.T) {
	uri := "rtsp://10.0.0.1/Streaming/tracks/101/?starttime=20210820T100500Z"
	args := DownloadArgs(uri, "job.mp4")
	require.Contains(t, args, "-rtsp_transport")
	require.Contains(t, args, uri)
	require.Contains(t, args, "-an")
	require.Equal(t, "job.mp4", args[len(args)-1])
}

func TestParseProgress(t *testing.T) {
	line := "frame= 1234 fps= 25 q=-1.0 Lsize=    2048KiB time=00:01:23.45 bitrate= 201.1kbits/s speed=1.01x"
	progress := ParseProgress(line)
	require.Equal(t, "1234", progress["frame"])
	require.Equal(t, "25", progress["fps"])
	require.Equal(t, "00:01:23.45", progress["time"])
	require.Equal(t, "1.01x", progress["speed"])

	require.Nil(t, ParseProgress("Press [q] to stop, [?] for help"))
}

func TestParseClock(t *testing.T) {
	d, ok := ParseClock("00:01:23.45")
	require.True(t, ok)
	require.Equal(t, time.Minute+23450*time.Millisecond, d)

	d, ok = ParseClock("02:00:00.00")
	require.True(t, ok)
	require.Equal(t, 2*time.Hour, d)

	_, ok = ParseClock("N/A")
	require.False(t, ok)
}

func TestParseVersion(t *testing.T) {
	out := []byte(`ffmpeg version 6.1.1-3ubuntu5 Copyright (c) 2000-2023 the FFmpeg developers
built with gcc 13.2.0 (Ubuntu 13.2.0-23ubuntu3)
libavutil      58. 29.100 / 58. 29.100
libavcodec     60. 31.102 / 60. 31.102
libavformat    60. 16.100 / 60. 16.100
`)
	ff, av := ParseVersion(out)
	require.Equal(t, "6.1.1", ff)
	require.Equal(t, "60.16.100", av)

	ff, av = ParseVersion([]byte("command not found"))
	require.Empty(t, ff)
	require.Empty(t, av)
}
