package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/gorilla/websocket"

	"github.com/cruxsync/otp/internal/metrics"
	"github.com/cruxsync/otp/otp"
)

const (
	// DefaultPingInterval is how often the hub pings idle connections.
	DefaultPingInterval = 30 * time.Second
	// DefaultWriteTimeout bounds a single write to a subscriber.
	DefaultWriteTimeout = 10 * time.Second
	// DefaultReadTimeout bounds how long a connection may stay silent.
	DefaultReadTimeout = 60 * time.Second
	// subscriberBacklog is the buffered channel depth per subscriber before
	// it is considered too slow and disconnected.
	subscriberBacklog = 64
)

// subscribeMessage is the client->server framing used to (un)subscribe to
// an object's patch stream: ["+", "<object-id>"] or ["-", "<object-id>"].
type subscribeMessage [2]string

// patchMessage is the server->client framing wrapping a committed patch.
type patchMessage struct {
	Type  string    `json:"type"`
	Patch otp.Patch `json:"patch"`
}

type subscriber struct {
	objectType otp.ObjectType
	send       chan otp.Patch
	closeOnce  sync.Once
}

func (s *subscriber) close() {
	s.closeOnce.Do(func() {
		metrics.FeedSubscribers.WithLabelValues(string(s.objectType)).Dec()
	})
}

// Hub is a Feed backed by live WebSocket connections. Each object has its
// own subscriber list; publishing to one object never touches another's
// list. Publish copies the object's subscriber list under a read lock and
// enqueues onto each subscriber's buffered channel after releasing it, so a
// subscriber receives patches in the order Publish is called.
type Hub struct {
	log      logr.Logger
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[otp.ObjectId]map[*subscriber]struct{}

	pingInterval time.Duration
	writeTimeout time.Duration
	readTimeout  time.Duration
}

// NewHub builds an empty Hub.
func NewHub(log logr.Logger) *Hub {
	return &Hub{
		log: log.WithName("feed-hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		subs:         make(map[otp.ObjectId]map[*subscriber]struct{}),
		pingInterval: DefaultPingInterval,
		writeTimeout: DefaultWriteTimeout,
		readTimeout:  DefaultReadTimeout,
	}
}

// Publish implements Feed.
func (h *Hub) Publish(ctx context.Context, patch otp.Patch) error {
	h.mu.RLock()
	subs := h.subs[patch.ObjectID]
	targets := make([]*subscriber, 0, len(subs))
	for s := range subs {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		select {
		case s.send <- patch:
		default:
			h.log.Info("subscriber too slow, disconnecting", "objectId", patch.ObjectID)
			metrics.FeedDisconnectsTotal.WithLabelValues(string(s.objectType)).Inc()
			h.remove(patch.ObjectID, s)
			s.close()
		}
	}
	return nil
}

// ServeHTTP upgrades the request to a WebSocket connection and serves
// subscribe/unsubscribe requests for objType until the client disconnects.
func (h *Hub) ServeHTTP(objType otp.ObjectType, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error(err, "failed to upgrade websocket connection")
		return
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	})

	subscribed := make(map[otp.ObjectId]*subscriber)
	defer func() {
		for id, s := range subscribed {
			h.remove(id, s)
			s.close()
		}
	}()

	pingTicker := time.NewTicker(h.pingInterval)
	defer pingTicker.Stop()

	incoming := make(chan subscribeMessage)
	readErr := make(chan error, 1)
	go h.readSubscriptions(conn, incoming, readErr)

	writer := make(chan otp.Patch, subscriberBacklog)
	for {
		select {
		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case msg := <-incoming:
			op, id := msg[0], otp.ObjectId(msg[1])
			switch op {
			case "+":
				if _, ok := subscribed[id]; ok {
					continue
				}
				s := h.add(objType, id, writer)
				subscribed[id] = s
			case "-":
				if s, ok := subscribed[id]; ok {
					h.remove(id, s)
					s.close()
					delete(subscribed, id)
				}
			default:
				h.log.Info("ignoring unknown subscribe op", "op", op)
			}

		case patch := <-writer:
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(patchMessage{Type: "patch", Patch: patch}); err != nil {
				return
			}

		case err := <-readErr:
			if err != nil && !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Error(err, "websocket read error")
			}
			return
		}
	}
}

func (h *Hub) readSubscriptions(conn *websocket.Conn, out chan<- subscribeMessage, errc chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			errc <- err
			return
		}

		var msg subscribeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.log.Error(err, "failed to unmarshal subscribe message")
			continue
		}
		out <- msg
	}
}

func (h *Hub) add(objType otp.ObjectType, id otp.ObjectId, writer chan otp.Patch) *subscriber {
	s := &subscriber{objectType: objType, send: writer}

	h.mu.Lock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[*subscriber]struct{})
	}
	h.subs[id][s] = struct{}{}
	h.mu.Unlock()

	metrics.FeedSubscribers.WithLabelValues(string(objType)).Inc()
	return s
}

func (h *Hub) remove(id otp.ObjectId, s *subscriber) {
	h.mu.Lock()
	delete(h.subs[id], s)
	if len(h.subs[id]) == 0 {
		delete(h.subs, id)
	}
	h.mu.Unlock()
}
