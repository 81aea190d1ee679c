package netsdk

import (
	"errors"
	"net/http"

	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/frankamera/frankamera/pkg/netsdk"
	"github.com/rs/zerolog"
)

// Binding - the NET_DVR library entry points. Builds that link the
// proprietary SDK replace this before Init runs.
var Binding netsdk.Binding = netsdk.Unavailable{}

func Init() {
	var cfg struct {
		Mod struct {
			Enable bool `yaml:"enable"`
		} `yaml:"netsdk"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("netsdk")

	if !cfg.Mod.Enable {
		return
	}

	var err error
	if handle, err = netsdk.Open(Binding); err != nil {
		log.Warn().Err(err).Msg("[netsdk] init")
		return
	}

	version := handle.Version()
	api.SetInfo("netsdk_version", version)
	log.Info().Str("version", version).Msg("[netsdk] init")

	api.HandleFunc("api/netsdk", apiNetSDK)
}

// Shutdown releases the SDK's global state. Called once from main on
// the way out.
func Shutdown() {
	if handle == nil {
		return
	}
	if err := handle.Close(); err != nil {
		log.Warn().Err(err).Msg("[netsdk] cleanup")
	}
	handle = nil
}

var (
	log    zerolog.Logger
	handle *netsdk.Handle
)

func apiNetSDK(w http.ResponseWriter, r *http.Request) {
	if handle == nil {
		api.ErrorJSON(w, http.StatusServiceUnavailable, errors.New("netsdk not initialized"))
		return
	}

	api.ResponseJSON(w, map[string]string{"build_version": handle.Version()})
}
