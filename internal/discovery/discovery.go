package discovery

import (
	"net/http"
	"time"

	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog"
)

// services - Hikvision devices announce _CGI._tcp, most other IP
// cameras at least announce an RTSP endpoint
var services = []string{"_CGI._tcp", "_rtsp._tcp"}

const queryTimeout = 3 * time.Second

func Init() {
	log = app.GetLogger("discovery")

	api.HandleFunc("api/discovery", apiDiscovery)
}

var log zerolog.Logger

type device struct {
	Name    string `json:"name"`
	Host    string `json:"host,omitempty"`
	Address string `json:"address"`
	Port    int    `json:"port"`
	Service string `json:"service"`
}

// Discover runs a one-shot mDNS query for every known camera service.
func Discover() []device {
	var devices []device

	for _, service := range services {
		entries := make(chan *mdns.ServiceEntry, 16)

		done := make(chan struct{})
		go func(service string) {
			for entry := range entries {
				d := device{
					Name:    entry.Name,
					Host:    entry.Host,
					Port:    entry.Port,
					Service: service,
				}
				if entry.AddrV4 != nil {
					d.Address = entry.AddrV4.String()
				} else if entry.AddrV6 != nil {
					d.Address = entry.AddrV6.String()
				}
				devices = append(devices, d)
			}
			close(done)
		}(service)

		err := mdns.Query(&mdns.QueryParam{
			Service:     service,
			Timeout:     queryTimeout,
			Entries:     entries,
			DisableIPv6: true,
		})
		close(entries)
		<-done

		if err != nil {
			log.Warn().Err(err).Str("service", service).Msg("[discovery] query")
		}
	}

	return devices
}

func apiDiscovery(w http.ResponseWriter, r *http.Request) {
	devices := Discover()

	log.Debug().Int("count", len(devices)).Msg("[discovery] done")

	api.ResponseJSON(w, devices)
}
