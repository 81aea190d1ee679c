package main

import (
	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/api/ws"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/frankamera/frankamera/internal/cameras"
	"github.com/frankamera/frankamera/internal/debug"
	"github.com/frankamera/frankamera/internal/discovery"
	"github.com/frankamera/frankamera/internal/dvr"
	"github.com/frankamera/frankamera/internal/ffmpeg"
	"github.com/frankamera/frankamera/internal/netsdk"
	"github.com/frankamera/frankamera/pkg/shell"

	daemon "github.com/sevlyar/go-daemon"
)

func main() {
	app.Init() // init config and logs

	if app.Daemonize {
		cntxt := &daemon.Context{
			PidFileName: "frankamera.pid",
			PidFilePerm: 0644,
		}

		d, err := cntxt.Reborn()
		if err != nil {
			app.Logger.Fatal().Err(err).Msg("daemonize")
		}
		if d != nil {
			app.Logger.Info().Msgf("daemon started with pid %d", d.Pid)
			return
		}
		defer cntxt.Release()
	}

	mainLoop()
}

func mainLoop() {
	api.Init() // init HTTP API server
	ws.Init()  // add websocket transport (depends on api)

	netsdk.Init()  // NET_DVR lifecycle, when enabled
	cameras.Init() // camera registry from the DVR
	ffmpeg.Init()  // download job pool
	dvr.Init()     // search/download/export API (depends on cameras and ffmpeg)
	discovery.Init()
	debug.Init()

	sig := shell.RunUntilSignal()
	app.Logger.Info().Str("signal", sig.String()).Msg("exit")

	netsdk.Shutdown()
}
