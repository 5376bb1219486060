package main

import (
	"encoding/json"
	"flag"
	"math"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"holoui.ai/internal/protocol"
)

// main runs a scripted bridge: it reports one observer standing still, opens a
// menu for it, sweeps its gaze back and forth and clicks now and then.
func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/bridge", "bridge websocket url")
		name       = flag.String("name", "bot", "bridge name")
		observerID = flag.String("observer", "bot-1", "observer id")
		menuID     = flag.String("menu", "main", "menu to open")
		period     = flag.Duration("period", 250*time.Millisecond, "update period")
		clickEvery = flag.Int("click_every", 8, "click every N updates (0 disables)")
	)
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().Timestamp().Str("svc", "bot").Logger()

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("dial")
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		BridgeName:      *name,
		MaxQueue:        256,
	}); err != nil {
		logger.Fatal().Err(err).Msg("send HELLO")
	}
	_, msg, err := conn.ReadMessage()
	if err != nil {
		logger.Fatal().Err(err).Msg("read WELCOME")
	}
	var w protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &w); err != nil || w.Type != protocol.TypeWelcome {
		logger.Fatal().Str("msg", string(msg)).Msg("expected WELCOME")
	}
	logger.Info().Str("bridge_id", w.BridgeID).Int("tick_rate", w.TickRateHz).Strs("menus", w.Menus).Msg("WELCOME")

	st := &stats{ops: map[string]int{}}
	done := make(chan struct{})
	go func() {
		defer close(done)
		readLoop(conn, logger, st)
	}()

	loc := protocol.Location{World: "world", Pos: [3]float64{0.5, 64, 0.5}}
	sendObserver := func() error {
		return conn.WriteJSON(protocol.ObserverMsg{
			Type:            protocol.TypeObserver,
			ProtocolVersion: protocol.Version,
			ObserverID:      *observerID,
			Name:            *observerID,
			Location:        loc,
			EyeHeight:       1.62,
			Online:          true,
			Permissions:     []string{"*"},
		})
	}
	if err := sendObserver(); err != nil {
		logger.Fatal().Err(err).Msg("send OBSERVER")
	}
	if err := conn.WriteJSON(protocol.OpenMsg{
		Type:            protocol.TypeOpen,
		ProtocolVersion: protocol.Version,
		Ref:             "open",
		ObserverID:      *observerID,
		MenuID:          *menuID,
	}); err != nil {
		logger.Fatal().Err(err).Msg("send OPEN")
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	tick := time.NewTicker(*period)
	defer tick.Stop()
	for n := 1; ; n++ {
		select {
		case <-stop:
			_ = conn.WriteJSON(protocol.CloseMsg{
				Type:            protocol.TypeClose,
				ProtocolVersion: protocol.Version,
				Ref:             "close",
				ObserverID:      *observerID,
				Remember:        true,
			})
			time.Sleep(200 * time.Millisecond)
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			logger.Info().Interface("render_ops", st.snapshot()).Msg("bye")
			return
		case <-done:
			logger.Warn().Msg("server closed the connection")
			return
		case <-tick.C:
		}

		// Sweep 40 degrees either side of the menu.
		loc.Yaw = float32(40 * math.Sin(float64(n)/10))
		if err := sendObserver(); err != nil {
			logger.Error().Err(err).Msg("send OBSERVER")
			return
		}
		if *clickEvery > 0 && n%*clickEvery == 0 {
			if err := conn.WriteJSON(protocol.EventMsg{
				Type:            protocol.TypeEvent,
				ProtocolVersion: protocol.Version,
				ObserverID:      *observerID,
				Kind:            protocol.EventClick,
			}); err != nil {
				logger.Error().Err(err).Msg("send CLICK")
				return
			}
		}
	}
}

type stats struct {
	mu  sync.Mutex
	ops map[string]int
}

func (s *stats) add(op string) {
	s.mu.Lock()
	s.ops[op]++
	s.mu.Unlock()
}

func (s *stats) snapshot() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.ops))
	for k, v := range s.ops {
		out[k] = v
	}
	return out
}

func readLoop(conn *websocket.Conn, logger zerolog.Logger, st *stats) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeRender:
			var r protocol.RenderMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			st.add(r.Op)
			if r.Op == protocol.OpSpawn && r.Text != "" {
				logger.Debug().Str("handle", r.Handle).Str("text", r.Text).Msg("spawn text")
			}
		case protocol.TypeAction:
			var a protocol.ActionMsg
			if err := json.Unmarshal(msg, &a); err != nil {
				continue
			}
			logger.Info().Str("kind", a.Kind).Str("command", a.Command).Bool("console", a.AsConsole).Str("sound", a.Sound).Msg("ACTION")
		case protocol.TypeResult:
			var r protocol.ResultMsg
			if err := json.Unmarshal(msg, &r); err != nil {
				continue
			}
			ev := logger.Info()
			if !r.OK {
				ev = logger.Warn()
			}
			ev.Str("ref", r.Ref).Bool("ok", r.OK).Str("code", r.Code).Str("message", r.Message).Msg("RESULT")
		}
	}
}
