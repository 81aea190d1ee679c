package ffmpeg

import (
	"errors"
	"os/exec"
	"sync"

	pkg "github.com/frankamera/frankamera/pkg/ffmpeg"
	"github.com/frankamera/frankamera/pkg/shell"
)

var verMu sync.Mutex
var verErr error
var verFF string
var verAV string

// Version probes the configured binary once and caches the result.
func Version() (string, error) {
	verMu.Lock()
	defer verMu.Unlock()

	if verFF != "" {
		return verFF, verErr
	}

	parts := shell.QuoteSplit(bin)
	if parts == nil {
		verFF = "-"
		verErr = errors.New("ffmpeg: invalid bin: " + bin)
		return verFF, verErr
	}

	cmd := exec.Command(parts[0], append(parts[1:], "-version")...)
	b, err := cmd.Output()
	if err != nil {
		verFF = "-"
		verErr = err
		return verFF, verErr
	}

	verFF, verAV = pkg.ParseVersion(b)

	if verFF == "" {
		verFF = "?"
	}

	// copying H.264 into mp4 needs a reasonably fresh muxer
	if verAV != "" && verAV < "58." {
		verErr = errors.New("ffmpeg: unsupported version: " + verFF)
	}

	log.Debug().Str("version", verFF).Str("libavformat", verAV).Msg("[ffmpeg] bin")

	return verFF, verErr
}
