package app

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/denisbrodbeck/machineid"
)

var Version = "1.2.0"
var UserAgent = "frankamera/" + Version

// Daemonize - set from the CLI, acted on in main
var Daemonize bool

var ConfigPath string
var Info = map[string]any{
	"version": Version,
}

type args struct {
	Config  []string `arg:"-c,--config,separate" help:"config (path to file or raw YAML), can be repeated"`
	Daemon  bool     `arg:"-d,--daemon" help:"run in background"`
	Version bool     `arg:"--version" help:"print version and exit"`
}

func (args) Description() string {
	return "frankamera - Hikvision DVR recording retrieval service"
}

func Init() {
	var a args
	arg.MustParse(&a)

	if a.Version {
		fmt.Printf("frankamera version %s%s: %s/%s\n", Version, vcsRevision(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	Daemonize = a.Daemon

	initConfig(a.Config)
	initLogger()

	if id, err := machineid.ProtectedID("frankamera"); err == nil {
		Info["instance_id"] = id[:16]
	}

	platform := fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)
	Logger.Info().Str("version", Version).Str("platform", platform).Msg("frankamera")
	Logger.Debug().Str("version", runtime.Version()).Msg("build")

	if ConfigPath != "" {
		Logger.Info().Str("path", ConfigPath).Msg("config")
	}
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}

	var revision string
	var modified bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
			if len(revision) > 7 {
				revision = revision[:7]
			}
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if revision == "" {
		return ""
	}
	if modified {
		revision += "+"
	}
	return " (" + revision + ")"
}

// Uptime reference
var startTime = time.Now()

func Uptime() time.Duration {
	return time.Since(startTime)
}
