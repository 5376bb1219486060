package render

import (
	"strings"

	"github.com/rs/zerolog"

	"holoui.ai/internal/menu/def"
	"holoui.ai/internal/protocol"
)

// Actions forwards click actions to the host as ACTION messages.
type Actions struct {
	sink Sink
	log  zerolog.Logger
}

func NewActions(sink Sink, logger zerolog.Logger) *Actions {
	return &Actions{sink: sink, log: logger}
}

// RunAction sends a. Commands and messages have {observer} replaced with
// the observer's name; commands also lose a leading slash.
func (a *Actions) RunAction(observerID, observerName string, act def.Action) {
	msg := protocol.ActionMsg{
		Type:            protocol.TypeAction,
		ProtocolVersion: protocol.Version,
		ObserverID:      observerID,
	}
	switch act := act.(type) {
	case def.CommandAction:
		msg.Kind = protocol.ActionCommand
		msg.Command = strings.TrimPrefix(strings.ReplaceAll(act.Command, "{observer}", observerName), "/")
		msg.AsConsole = act.Source == def.SourceConsole
	case def.SoundAction:
		msg.Kind = protocol.ActionSound
		msg.Sound = act.Sound
		msg.Source = act.Source
		msg.Volume = act.Volume
		msg.Pitch = act.Pitch
	case def.MessageAction:
		msg.Kind = protocol.ActionMessage
		msg.Text = strings.ReplaceAll(act.Text, "{observer}", observerName)
		msg.ActionBar = act.ActionBar
	default:
		a.log.Warn().Str("observer", observerID).Msgf("unknown action %T", act)
		return
	}
	if a.sink == nil {
		return
	}
	a.sink.Send(observerID, msg)
}
