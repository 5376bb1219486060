// Package bridge serves the websocket endpoint game host bridges connect to.
// A bridge reports observer state and events; the server answers with render
// and action messages routed to the bridge that owns each observer.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"holoui.ai/internal/menu"
	"holoui.ai/internal/protocol"
	"holoui.ai/internal/sim/catalogs"
	"holoui.ai/internal/sim/tuning"
	"holoui.ai/internal/sim/voxel"
)

type Config struct {
	Manager  *menu.Manager
	Grid     *voxel.Grid
	Catalogs *catalogs.Catalogs
	Settings tuning.Source
	Logger   zerolog.Logger
}

type Server struct {
	mgr      *menu.Manager
	grid     *voxel.Grid
	cats     *catalogs.Catalogs
	settings tuning.Source
	dir      *Directory
	log      zerolog.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu    sync.RWMutex
	conns map[string]*conn
}

// conn is one connected bridge.
type conn struct {
	id  string
	out chan []byte
}

func NewServer(cfg Config) *Server {
	return &Server{
		grid:     cfg.Grid,
		cats:     cfg.Catalogs,
		settings: cfg.Settings,
		dir:      NewDirectory(),
		log:      cfg.Logger.With().Str("component", "bridge").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: map[string]*conn{},
		mgr:   cfg.Manager,
	}
}

// Attach sets the manager after construction. The manager's render sink is
// the server itself, so one of the two has to be wired late.
func (s *Server) Attach(m *menu.Manager) { s.mgr = m }

func (s *Server) Directory() *Directory { return s.dir }

// Dropped counts outbound messages discarded because a bridge queue was full.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Send implements render.Sink: it queues v on the connection that owns
// observerID. Messages for unknown observers are dropped silently.
func (s *Server) Send(observerID string, v any) {
	bridgeID, ok := s.dir.BridgeOf(observerID)
	if !ok {
		return
	}
	s.sendTo(bridgeID, v)
}

func (s *Server) sendTo(bridgeID string, v any) {
	s.mu.RLock()
	c := s.conns[bridgeID]
	s.mu.RUnlock()
	if c == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("marshal outbound message")
		return
	}
	select {
	case c.out <- b:
	default:
		if s.dropped.Add(1)%1000 == 1 {
			s.log.Warn().Str("bridge", bridgeID).Msg("bridge queue full, dropping messages")
		}
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		ws, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		c := s.handshake(ws)
		if c == nil {
			return
		}
		log := s.log.With().Str("bridge", c.id).Logger()
		log.Info().Str("remote", r.RemoteAddr).Msg("bridge connected")

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-c.out:
					_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := ws.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						cancel()
						return
					}
				}
			}
		}()

		for {
			_ = ws.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := ws.ReadMessage()
			if err != nil {
				break
			}
			s.dispatch(c.id, msg)
		}
		cancel()

		s.disconnect(c)
		log.Info().Msg("bridge disconnected")

		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) handshake(ws *websocket.Conn) *conn {
	_ = ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := ws.ReadMessage()
	if err != nil {
		return nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	if hello.BridgeName == "" {
		hello.BridgeName = "bridge"
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 1024
	}
	if maxQ > 16384 {
		maxQ = 16384
	}
	c := &conn{
		id:  fmt.Sprintf("%s-%d", hello.BridgeName, s.nextID.Add(1)),
		out: make(chan []byte, maxQ),
	}

	if err := writeJSON(ws, s.welcome(c.id)); err != nil {
		return nil
	}
	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	return c
}

func (s *Server) welcome(bridgeID string) protocol.WelcomeMsg {
	w := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		BridgeID:        bridgeID,
		TickRateHz:      tuning.Defaults().TickRateHz,
	}
	if s.settings != nil {
		w.TickRateHz = s.settings.Current().TickRateHz
	}
	if s.mgr != nil {
		w.Menus = s.mgr.MenuIDs()
	}
	if s.cats != nil {
		w.Catalogs = protocol.CatalogDigests{
			BlockPalette: protocol.DigestRef{Digest: s.cats.Blocks.Digest, Count: len(s.cats.Blocks.Palette)},
			ItemPalette:  protocol.DigestRef{Digest: s.cats.Items.Digest, Count: len(s.cats.Items.Palette)},
		}
	}
	return w
}

// disconnect releases every observer the bridge owned.
func (s *Server) disconnect(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	s.mu.Unlock()
	for _, id := range s.dir.RemoveBridge(c.id) {
		s.mgr.HandleQuit(id)
	}
}

func writeJSON(ws *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return ws.WriteMessage(websocket.TextMessage, b)
}
