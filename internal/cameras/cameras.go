package cameras

import (
	"errors"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/frankamera/frankamera/pkg/isapi"
	"github.com/rs/zerolog"
)

// refreshInterval - the DVR channel layout rarely changes, don't hammer it
const refreshInterval = 15 * time.Minute

var ErrNotFound = errors.New("camera not found")

type Camera struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Address string `json:"ip_address"`
	Online  bool   `json:"online"`
	Streams []int  `json:"streams,omitempty"`
}

func Init() {
	var cfg struct {
		Mod struct {
			URL      string            `yaml:"url"`
			Username string            `yaml:"username"`
			Password string            `yaml:"password"`
			Timezone string            `yaml:"timezone"`
			Names    map[string]string `yaml:"names"`
		} `yaml:"hikvision"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("cameras")

	if cfg.Mod.URL == "" {
		log.Warn().Msg("[cameras] no hikvision.url in config")
		return
	}

	var err error
	if client, err = isapi.NewClient(cfg.Mod.URL, cfg.Mod.Username, cfg.Mod.Password); err != nil {
		log.Error().Err(err).Msg("[cameras] hikvision url")
		return
	}

	if cfg.Mod.Timezone != "" {
		if loc, err := time.LoadLocation(cfg.Mod.Timezone); err == nil {
			client.Location = loc
		} else {
			log.Warn().Err(err).Msg("[cameras] timezone")
		}
	}

	names = cfg.Mod.Names

	api.HandleFunc("api/cameras", apiCameras)
}

// Client - the shared ISAPI client, nil until Init saw a valid config
func Client() *isapi.Client {
	return client
}

// Get returns a camera by DVR channel id, refreshing the registry when stale.
func Get(id int) (*Camera, error) {
	if err := Refresh(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	camera, ok := cameras[id]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *camera
	return &clone, nil
}

// All returns a snapshot of the registry sorted by id.
func All() ([]*Camera, error) {
	if err := Refresh(); err != nil {
		return nil, err
	}

	mu.Lock()
	defer mu.Unlock()

	list := make([]*Camera, 0, len(cameras))
	for _, camera := range cameras {
		clone := *camera
		list = append(list, &clone)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return list, nil
}

// Refresh re-reads channels and their status from the DVR, at most once
// per refreshInterval. Stale data is kept on upstream failure.
func Refresh() error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return errors.New("cameras: module disabled")
	}

	if time.Since(lastRefresh) < refreshInterval {
		return nil
	}

	channels, err := client.Channels()
	if err != nil {
		return err
	}

	statuses, err := client.ChannelStatuses()
	if err != nil {
		return err
	}

	next := make(map[int]*Camera, len(channels))
	for _, ch := range channels {
		name := ch.Name
		if mapped, ok := names[ch.Address]; ok {
			name = mapped
		}
		next[ch.ID] = &Camera{ID: ch.ID, Name: name, Address: ch.Address}
	}

	for _, status := range statuses {
		if camera, ok := next[status.ID]; ok {
			camera.Online = status.Online
			camera.Streams = status.Streams
		}
	}

	cameras = next
	lastRefresh = time.Now()

	log.Debug().Int("count", len(cameras)).Msg("[cameras] refresh")

	return nil
}

func apiCameras(w http.ResponseWriter, r *http.Request) {
	list, err := All()
	if err != nil {
		api.ErrorJSON(w, http.StatusInternalServerError, err)
		return
	}

	api.ResponseJSON(w, list)
}

// internal

var (
	log    zerolog.Logger
	client *isapi.Client
	names  map[string]string

	mu          sync.Mutex
	cameras     map[int]*Camera
	lastRefresh time.Time
)
