// Package ffmpeg - helpers for driving the ffmpeg binary.
package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DownloadArgs - remux an RTSP playback stream into an mp4 file.
// Video is copied as-is, audio is dropped (DVR playback audio tracks
// tend to confuse the mp4 muxer).
func DownloadArgs(uri, output string) []string {
	return []string{
		"-hide_banner", "-y",
		"-rtsp_transport", "tcp", "-rtsp_flags", "prefer_tcp",
		"-i", uri,
		"-c:v", "copy", "-an",
		output,
	}
}

var progressRe = regexp.MustCompile(`(frame|fps|q|size|time|bitrate|speed)\s*=\s*(\S+)`)

// ParseProgress extracts the key=value pairs from an ffmpeg stderr
// status line: `frame= 1234 fps= 25 q=-1.0 size= 2048KiB time=00:01:23.45 ...`
func ParseProgress(line string) map[string]string {
	matches := progressRe.FindAllStringSubmatch(line, -1)
	if matches == nil {
		return nil
	}

	progress := make(map[string]string, len(matches))
	for _, m := range matches {
		progress[m[1]] = m[2]
	}
	return progress
}

// ParseClock - ffmpeg "HH:MM:SS.cc" timestamp to duration.
func ParseClock(s string) (time.Duration, bool) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return 0, false
	}

	hours, err1 := strconv.Atoi(parts[0])
	minutes, err2 := strconv.Atoi(parts[1])
	seconds, err3 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds*float64(time.Second))
	return d, true
}

// ParseVersion reads `ffmpeg -version` output. Returns the ffmpeg
// version and the libavformat version, either may be empty.
func ParseVersion(b []byte) (ffmpeg, avformat string) {
	s := string(b)

	if strings.HasPrefix(s, "ffmpeg version ") {
		ffmpeg = s[15:]
		if i := strings.IndexAny(ffmpeg, " -"); i > 0 {
			ffmpeg = ffmpeg[:i]
		}
	}

	if i := strings.Index(s, "libavformat"); i > 0 {
		avformat = strings.TrimSpace(s[i+11:])
		if i = strings.IndexByte(avformat, '/'); i > 0 {
			avformat = strings.TrimSpace(avformat[:i])
		}
		avformat = strings.ReplaceAll(avformat, " ", "")
	}

	return
}
