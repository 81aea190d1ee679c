package ws

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/frankamera/frankamera/internal/api"
	"github.com/frankamera/frankamera/internal/app"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func Init() {
	var cfg struct {
		Mod struct {
			Origin string `yaml:"origin"`
		} `yaml:"api"`
	}

	app.LoadConfig(&cfg)

	log = app.GetLogger("api")

	initWS(cfg.Mod.Origin)

	api.HandleFunc("api/ws", apiWS)
}

var log zerolog.Logger

// Message - envelope for everything on the websocket, both directions.
type Message struct {
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
	Raw   []byte `json:"-"`
}

func (m *Message) Unmarshal(v any) error {
	return json.Unmarshal(m.Raw, v)
}

type WSHandler func(tr *Transport, msg *Message) error

func HandleFunc(msgType string, handler WSHandler) {
	wsHandlers[msgType] = handler
}

var wsHandlers = make(map[string]WSHandler)

var upgrader *websocket.Upgrader

func initWS(origin string) {
	upgrader = &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	if origin == "*" {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	} else {
		upgrader.CheckOrigin = sameOrigin
	}
}

// sameOrigin accepts requests without an Origin header and requests
// whose origin matches the Host, port ignored.
func sameOrigin(r *http.Request) bool {
	header := r.Header["Origin"]
	if len(header) == 0 {
		return true
	}

	o, err := url.Parse(header[0])
	if err != nil {
		return false
	}
	if o.Host == r.Host {
		return true
	}

	log.Trace().Msgf("[api] ws origin=%s, host=%s", o.Host, r.Host)

	host, _, ok := strings.Cut(o.Host, ":")
	return ok && host == r.Host
}

const writeTimeout = 5 * time.Second

func apiWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msgf("[api] ws upgrade host=%s origin=%s", r.Host, r.Header.Get("Origin"))
		return
	}

	tr := &Transport{Request: r, conn: conn}
	defer tr.Close()

	for {
		var raw struct {
			Type  string          `json:"type"`
			Value json.RawMessage `json:"value"`
		}
		if err = conn.ReadJSON(&raw); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNoStatusReceived) {
				log.Trace().Err(err).Caller().Send()
			}
			_ = conn.Close()
			return
		}

		log.Trace().Str("type", raw.Type).Msg("[api] ws msg")

		handler := wsHandlers[raw.Type]
		if handler == nil {
			continue
		}

		msg := &Message{Type: raw.Type, Raw: raw.Value}
		go func() {
			if err := handler(tr, msg); err != nil {
				tr.Write(&Message{Type: "error", Value: msg.Type + ": " + err.Error()})
			}
		}()
	}
}

// Transport - one websocket client. Writes are serialized, handlers may
// keep writing from their own goroutines until OnClose fires.
type Transport struct {
	Request *http.Request

	conn *websocket.Conn

	mx      sync.Mutex
	closed  bool
	onClose []func()

	wrmx sync.Mutex
}

func (t *Transport) Write(msg any) {
	t.wrmx.Lock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_ = t.conn.WriteJSON(msg)
	t.wrmx.Unlock()
}

func (t *Transport) Close() {
	t.mx.Lock()
	for _, f := range t.onClose {
		f()
	}
	t.closed = true
	t.mx.Unlock()
}

// OnClose registers a cleanup callback, called at once when the
// transport is already closed.
func (t *Transport) OnClose(f func()) {
	t.mx.Lock()
	if t.closed {
		f()
	} else {
		t.onClose = append(t.onClose, f)
	}
	t.mx.Unlock()
}
