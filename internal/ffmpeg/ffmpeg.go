package ffmpeg

import (
	"os"

	"github.com/frankamera/frankamera/internal/api/ws"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Bin     string `yaml:"bin"`
			Workers int    `yaml:"workers"`
			Dir     string `yaml:"dir"`
		} `yaml:"ffmpeg"`
	}

	// defaults
	cfg.Mod.Bin = "ffmpeg"
	cfg.Mod.Workers = 5

	app.LoadConfig(&cfg)

	log = app.GetLogger("ffmpeg")

	bin = cfg.Mod.Bin

	dir = cfg.Mod.Dir
	if dir == "" {
		dir = os.TempDir()
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("dir", dir).Msg("[ffmpeg] download dir")
		dir = os.TempDir()
	}

	if _, err := Version(); err != nil {
		log.Warn().Err(err).Msg("[ffmpeg] bin")
	}

	initPool(cfg.Mod.Workers)

	ws.HandleFunc("jobs", wsJobs)
}

var (
	log zerolog.Logger
	bin = "ffmpeg"
	dir = os.TempDir()
)

// jobsTransport is what the jobs feed needs from a websocket client.
type jobsTransport interface {
	Write(msg any)
	OnClose(f func())
}

// wsJobs streams job snapshots: full list on subscribe, then one
// message per change until the socket closes.
func wsJobs(tr *ws.Transport, _ *ws.Message) error {
	jobsFeed(tr)
	return nil
}

func jobsFeed(tr jobsTransport) {
	tr.Write(&ws.Message{Type: "jobs", Value: Jobs()})

	unsubscribe := OnChange(func(job Job) {
		tr.Write(&ws.Message{Type: "job", Value: job})
	})
	tr.OnClose(unsubscribe)
}
