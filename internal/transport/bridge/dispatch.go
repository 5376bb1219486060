package bridge

import (
	"encoding/json"
	"errors"

	"holoui.ai/internal/menu"
	"holoui.ai/internal/protocol"
	"holoui.ai/internal/sim/geom"
	"holoui.ai/internal/sim/voxel"
)

func (s *Server) dispatch(bridgeID string, msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		s.reply(bridgeID, "", protocol.ErrProtoBadRequest, "malformed message")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}

	switch base.Type {
	case protocol.TypeObserver:
		var m protocol.ObserverMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.ObserverID == "" {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad OBSERVER")
			return
		}
		s.dir.upsert(bridgeID, m)

	case protocol.TypeEvent:
		var m protocol.EventMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad EVENT")
			return
		}
		s.handleEvent(bridgeID, m)

	case protocol.TypeOpen:
		var m protocol.OpenMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad OPEN")
			return
		}
		o, ok := s.dir.get(m.ObserverID)
		if !ok {
			s.reply(bridgeID, m.Ref, protocol.ErrObserverOffline, "unknown observer")
			return
		}
		err := s.mgr.CreateSessionByID(o, m.MenuID)
		switch {
		case err == nil:
			s.reply(bridgeID, m.Ref, "", "")
		case errors.Is(err, menu.ErrUnknownMenu):
			s.reply(bridgeID, m.Ref, protocol.ErrUnknownMenu, err.Error())
		case errors.Is(err, menu.ErrObserverOffline):
			s.reply(bridgeID, m.Ref, protocol.ErrObserverOffline, err.Error())
		default:
			s.reply(bridgeID, m.Ref, protocol.ErrInternal, err.Error())
		}

	case protocol.TypeClose:
		var m protocol.CloseMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad CLOSE")
			return
		}
		if !s.mgr.DestroySession(m.ObserverID, m.Remember) {
			s.reply(bridgeID, m.Ref, protocol.ErrNoSession, "no open session")
			return
		}
		s.reply(bridgeID, m.Ref, "", "")

	case protocol.TypeOpenLast:
		var m protocol.OpenLastMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad OPEN_LAST")
			return
		}
		o, ok := s.dir.get(m.ObserverID)
		if !ok {
			s.reply(bridgeID, m.Ref, protocol.ErrObserverOffline, "unknown observer")
			return
		}
		s.mgr.Track(o)
		if !s.mgr.OpenLastSession(m.ObserverID) {
			s.reply(bridgeID, m.Ref, protocol.ErrNoSession, "no remembered session")
			return
		}
		s.reply(bridgeID, m.Ref, "", "")

	case protocol.TypeBlock:
		var m protocol.BlockMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.World == "" {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad BLOCK")
			return
		}
		if s.grid != nil {
			s.grid.SetBlock(m.World, blockPos(m.Pos), m.Block)
		}

	case protocol.TypeContainer:
		var m protocol.ContainerMsg
		if err := json.Unmarshal(msg, &m); err != nil || m.World == "" {
			s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "bad CONTAINER")
			return
		}
		if s.grid != nil {
			s.grid.SetContainer(m.World, blockPos(m.Pos), container(m))
		}

	default:
		s.reply(bridgeID, base.Ref, protocol.ErrProtoBadRequest, "unknown type "+base.Type)
	}
}

func (s *Server) handleEvent(bridgeID string, m protocol.EventMsg) {
	o, ok := s.dir.get(m.ObserverID)
	if !ok {
		s.reply(bridgeID, m.Ref, protocol.ErrObserverOffline, "unknown observer")
		return
	}
	needsTarget := m.Kind == protocol.EventMove || m.Kind == protocol.EventTeleport || m.Kind == protocol.EventRespawn
	if needsTarget && m.To == nil {
		s.reply(bridgeID, m.Ref, protocol.ErrProtoBadRequest, m.Kind+" without to")
		return
	}

	switch m.Kind {
	case protocol.EventMove:
		to := position(*m.To)
		prev := o.Location()
		o.setLocation(to)
		cancelled := s.mgr.HandleMove(o.ID(), to)
		if cancelled {
			o.setLocation(prev)
		}
		s.sendTo(bridgeID, protocol.MoveResultMsg{
			Type:            protocol.TypeMoveResult,
			ProtocolVersion: protocol.Version,
			Ref:             m.Ref,
			ObserverID:      o.ID(),
			Cancelled:       cancelled,
		})
	case protocol.EventTeleport:
		to := position(*m.To)
		o.setLocation(to)
		s.mgr.HandleTeleport(o.ID(), to)
	case protocol.EventRespawn:
		to := position(*m.To)
		o.setLocation(to)
		s.mgr.HandleRespawn(o.ID(), to)
	case protocol.EventDeath:
		s.mgr.HandleDeath(o.ID())
	case protocol.EventQuit:
		o.setOnline(false)
		s.mgr.HandleQuit(o.ID())
		s.dir.Remove(o.ID())
	case protocol.EventClick:
		s.mgr.HandleClick(o.ID())
	default:
		s.reply(bridgeID, m.Ref, protocol.ErrProtoBadRequest, "unknown event kind "+m.Kind)
	}
}

// reply sends a RESULT; an empty code means success.
func (s *Server) reply(bridgeID, ref, code, message string) {
	s.sendTo(bridgeID, protocol.ResultMsg{
		Type:            protocol.TypeResult,
		ProtocolVersion: protocol.Version,
		Ref:             ref,
		OK:              code == "",
		Code:            code,
		Message:         message,
	})
}

func blockPos(p [3]int) geom.BlockPos {
	return geom.BlockPos{X: p[0], Y: p[1], Z: p[2]}
}

func container(m protocol.ContainerMsg) voxel.Container {
	c := voxel.Container{Kind: m.Kind, CookProgress: m.CookProgress}
	c.Slots = make([]voxel.ItemStack, len(m.Slots))
	for i, st := range m.Slots {
		c.Slots[i] = voxel.ItemStack{Item: st.Item, Count: st.Count, ModelData: st.ModelData}
	}
	return c
}
