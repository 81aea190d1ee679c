package app

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

var Logger zerolog.Logger

// MemoryLog keeps recent log output for the api/log endpoint
var MemoryLog = newBuffer(16)

// GetLogger returns a logger with the level configured for the module,
// or the default logger when the module has no own level.
func GetLogger(module string) zerolog.Logger {
	if s, ok := logConfig[module]; ok {
		lvl, err := zerolog.ParseLevel(s)
		if err == nil {
			return Logger.Level(lvl)
		}
		Logger.Warn().Err(err).Caller().Send()
	}

	return Logger
}

// log config keys, everything else is a per-module level:
// - output: empty (only to memory), stderr, stdout
// - format: empty (autodetect color support), color, json, text
// - time:   empty (disable timestamp), UNIXMS, UNIXMICRO, UNIXNANO
// - level:  disabled, trace, debug, info, warn, error...
var logConfig = map[string]string{
	"format": "",
	"level":  "info",
	"output": "stdout",
	"time":   zerolog.TimeFormatUnixMs,
}

func initLogger() {
	var cfg struct {
		Mod map[string]string `yaml:"log"`
	}

	cfg.Mod = logConfig // defaults

	LoadConfig(&cfg)

	timed := logConfig["time"] != ""

	var writer io.Writer

	switch logConfig["output"] {
	case "stderr":
		writer = consoleWriter(os.Stderr, logConfig["format"], timed)
	case "stdout":
		writer = consoleWriter(os.Stdout, logConfig["format"], timed)
	}

	if writer != nil {
		writer = zerolog.MultiLevelWriter(writer, MemoryLog)
	} else {
		writer = MemoryLog
	}

	lvl, _ := zerolog.ParseLevel(logConfig["level"])
	Logger = zerolog.New(writer).Level(lvl)

	if timed {
		zerolog.TimeFieldFormat = logConfig["time"]
		Logger = Logger.With().Timestamp().Logger()
	}
}

func consoleWriter(out *os.File, format string, timed bool) io.Writer {
	if format == "json" {
		return out
	}

	console := &zerolog.ConsoleWriter{Out: out}

	switch format {
	case "text":
		console.NoColor = true
	case "color":
	default:
		console.NoColor = !isatty.IsTerminal(out.Fd())
	}

	if timed {
		console.TimeFormat = "15:04:05.000"
	} else {
		console.PartsOrder = []string{
			zerolog.LevelFieldName,
			zerolog.CallerFieldName,
			zerolog.MessageFieldName,
		}
	}

	return console
}

const chunkSize = 1 << 16

// logRing - ring of fixed size chunks, the oldest chunk is dropped on
// overflow. Chunks are allocated lazily up to the configured count.
type logRing struct {
	chunks [][]byte
	read   int
	write  int
}

func newBuffer(chunks int) *logRing {
	b := &logRing{chunks: make([][]byte, 0, chunks)}
	b.chunks = append(b.chunks, make([]byte, 0, chunkSize))
	return b
}

func (b *logRing) Write(p []byte) (int, error) {
	if len(b.chunks[b.write])+len(p) > chunkSize {
		b.advance()
	}
	b.chunks[b.write] = append(b.chunks[b.write], p...)
	return len(p), nil
}

func (b *logRing) advance() {
	if b.write++; b.write == cap(b.chunks) {
		b.write = 0
	}
	if b.read == b.write {
		if b.read++; b.read == cap(b.chunks) {
			b.read = 0
		}
	}
	if b.write == len(b.chunks) {
		b.chunks = append(b.chunks, make([]byte, 0, chunkSize))
	} else {
		b.chunks[b.write] = b.chunks[b.write][:0]
	}
}

func (b *logRing) WriteTo(w io.Writer) (n int64, err error) {
	for i := b.read; ; {
		nn, err := w.Write(b.chunks[i])
		if err != nil {
			return n, err
		}
		n += int64(nn)

		if i == b.write {
			return n, nil
		}
		if i++; i == cap(b.chunks) {
			i = 0
		}
	}
}

func (b *logRing) Reset() {
	b.chunks[0] = b.chunks[0][:0]
	b.read = 0
	b.write = 0
}
