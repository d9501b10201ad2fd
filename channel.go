package confluxfs

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// Channel is one live push-channel connection. A frame is one message
// body; empty frames are keepalives. The sync manager owns exactly one
// Channel at a time and drives it from a single read loop, so
// implementations do not need to be safe for concurrent reads.
type Channel interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// ChannelDialer establishes a new Channel. The sync manager dials
// through this so tests can inject an in-process fake.
type ChannelDialer func(ctx context.Context) (Channel, error)

type websocketChannel struct {
	ws *websocket.Conn

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// NewWebsocketDialer dials `syncUrl` with the gorilla websocket
// dialer. This is the default production dialer.
func NewWebsocketDialer(syncUrl string, settings *SyncSettings) ChannelDialer {
	return func(ctx context.Context) (Channel, error) {
		dialer := &websocket.Dialer{
			HandshakeTimeout: settings.WsHandshakeTimeout,
		}
		ws, _, err := dialer.DialContext(ctx, syncUrl, nil)
		if err != nil {
			return nil, err
		}
		return &websocketChannel{
			ws:           ws,
			readTimeout:  settings.ReadTimeout,
			writeTimeout: settings.WriteTimeout,
		}, nil
	}
}

func (self *websocketChannel) ReadFrame() ([]byte, error) {
	for {
		self.ws.SetReadDeadline(time.Now().Add(self.readTimeout))
		messageType, message, err := self.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		switch messageType {
		case websocket.TextMessage, websocket.BinaryMessage:
			return message, nil
		default:
			glog.V(2).Infof("[ch]other=%d<-\n", messageType)
		}
	}
}

func (self *websocketChannel) WriteFrame(frame []byte) error {
	// note that for websocket a deadline timeout cannot be recovered
	self.ws.SetWriteDeadline(time.Now().Add(self.writeTimeout))
	return self.ws.WriteMessage(websocket.TextMessage, frame)
}

func (self *websocketChannel) Close() error {
	return self.ws.Close()
}

// SyncUrl converts an http(s) api url to the ws(s) url of the push
// channel endpoint at /api/ws.
func SyncUrl(apiUrl string) string {
	u, err := url.Parse(apiUrl)
	if err != nil {
		return apiUrl + "/api/ws"
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/ws"
	return u.String()
}
