package api

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/frankamera/frankamera/internal/app"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Listen     string `yaml:"listen"`
			Token      string `yaml:"token"`
			BasePath   string `yaml:"base_path"`
			Origin     string `yaml:"origin"`
			TLSListen  string `yaml:"tls_listen"`
			TLSCert    string `yaml:"tls_cert"`
			TLSKey     string `yaml:"tls_key"`
			UnixListen string `yaml:"unix_listen"`
		} `yaml:"api"`
	}

	// default config
	cfg.Mod.Listen = ":8093"

	app.LoadConfig(&cfg)

	if cfg.Mod.Listen == "" && cfg.Mod.UnixListen == "" && cfg.Mod.TLSListen == "" {
		return
	}

	basePath = cfg.Mod.BasePath
	log = app.GetLogger("api")

	HandleFunc("api", apiHandler)
	HandleFunc("api/log", logHandler)
	HandleFunc("api/restart", restartHandler)
	HandleFunc("api/exit", exitHandler)

	// middleware order: log, auth, CORS, mux
	Handler = http.DefaultServeMux
	if cfg.Mod.Origin == "*" {
		Handler = middlewareCORS(Handler)
	}
	if cfg.Mod.Token != "" {
		Handler = middlewareAuth(cfg.Mod.Token, Handler)
	}
	if log.Trace().Enabled() {
		Handler = middlewareLog(Handler)
	}

	if cfg.Mod.Listen != "" {
		go serve("tcp", cfg.Mod.Listen, nil)
	}

	if cfg.Mod.UnixListen != "" {
		_ = syscall.Unlink(cfg.Mod.UnixListen)
		go serve("unix", cfg.Mod.UnixListen, nil)
	}

	if cfg.Mod.TLSListen != "" && cfg.Mod.TLSCert != "" && cfg.Mod.TLSKey != "" {
		cert, err := loadCertificate(cfg.Mod.TLSCert, cfg.Mod.TLSKey)
		if err != nil {
			log.Error().Err(err).Msg("[api] tls certificate")
			return
		}
		go serve("tcp", cfg.Mod.TLSListen, &tls.Config{Certificates: []tls.Certificate{cert}})
	}
}

var Port int

var Handler http.Handler

var basePath string
var log zerolog.Logger

// loadCertificate accepts either file paths or inline PEM in the config
func loadCertificate(cert, key string) (tls.Certificate, error) {
	if strings.ContainsRune(cert, '\n') || strings.ContainsRune(key, '\n') {
		return tls.X509KeyPair([]byte(cert), []byte(key))
	}
	return tls.LoadX509KeyPair(cert, key)
}

func serve(network, address string, tlsConf *tls.Config) {
	ln, err := net.Listen(network, address)
	if err != nil {
		log.Error().Err(err).Msg("[api] listen")
		return
	}

	log.Info().Str("addr", address).Bool("tls", tlsConf != nil).Msg("[api] listen")

	if network == "tcp" && tlsConf == nil {
		Port = ln.Addr().(*net.TCPAddr).Port
	}

	server := http.Server{
		Handler:           Handler,
		TLSConfig:         tlsConf,
		ReadHeaderTimeout: 5 * time.Second,
	}

	if tlsConf != nil {
		err = server.ServeTLS(ln, "", "")
	} else {
		err = server.Serve(ln)
	}
	log.Fatal().Err(err).Msg("[api] serve")
}

const (
	MimeJSON = "application/json"
	MimeText = "text/plain"
)

// HandleFunc handle pattern with relative path:
// - "api/cameras" => "{basepath}/api/cameras"
// - "/cameras"    => "/cameras"
func HandleFunc(pattern string, handler http.HandlerFunc) {
	if len(pattern) == 0 || pattern[0] != '/' {
		pattern = basePath + "/" + pattern
	}
	log.Trace().Str("path", pattern).Msg("[api] register path")
	http.HandleFunc(pattern, handler)
}

// ResponseJSON sets Content-Type explicitly so the server never has to
// sniff the body.
func ResponseJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", MimeJSON)
	_ = json.NewEncoder(w).Encode(v)
}

func Response(w http.ResponseWriter, body any, contentType string) {
	w.Header().Set("Content-Type", contentType)

	switch v := body.(type) {
	case []byte:
		_, _ = w.Write(v)
	case string:
		_, _ = io.WriteString(w, v)
	default:
		_, _ = fmt.Fprint(w, body)
	}
}

// ErrorJSON - {"error": "..."} with the given status, the wire format of
// every failing endpoint
func ErrorJSON(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", MimeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func middlewareLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Trace().Msgf("[api] %s %s %s", r.Method, r.URL, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func middlewareCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		next.ServeHTTP(w, r)
	})
}

var mu sync.Mutex

// SetInfo publishes a value on the api info endpoint. Modules that
// learn things after the server started must use this instead of
// writing app.Info directly.
func SetInfo(key string, value any) {
	mu.Lock()
	app.Info[key] = value
	mu.Unlock()
}

func apiHandler(w http.ResponseWriter, r *http.Request) {
	mu.Lock()
	app.Info["host"] = r.Host
	app.Info["uptime"] = app.Uptime().Round(time.Second).String()
	app.Info["system"] = getSystemInfo()
	mu.Unlock()

	ResponseJSON(w, app.Info)
}

func logHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case "GET":
		w.Header().Set("Content-Type", "application/jsonlines")
		_, _ = app.MemoryLog.WriteTo(w)
	case "DELETE":
		app.MemoryLog.Reset()
		Response(w, "OK", MimeText)
	default:
		http.Error(w, "Method not allowed", http.StatusBadRequest)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == "POST" {
		return true
	}
	http.Error(w, "POST expected", http.StatusBadRequest)
	return false
}

// restartHandler execs the current binary in place, keeping the pid
func restartHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}

	path, err := os.Executable()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	log.Debug().Msgf("[api] restart %s", path)

	go syscall.Exec(path, os.Args, os.Environ())
}

func exitHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePOST(w, r) {
		return
	}

	code, err := strconv.Atoi(r.URL.Query().Get("code"))
	if err != nil || code < 0 || code > 125 {
		http.Error(w, "code must be in the range [0, 125]", http.StatusBadRequest)
		return
	}

	os.Exit(code)
}
