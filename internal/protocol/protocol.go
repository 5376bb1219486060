package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// Host bridge -> server.
	TypeHello     = "HELLO"
	TypeObserver  = "OBSERVER"
	TypeEvent     = "EVENT"
	TypeOpen      = "OPEN"
	TypeClose     = "CLOSE"
	TypeOpenLast  = "OPEN_LAST"
	TypeBlock     = "BLOCK"
	TypeContainer = "CONTAINER"

	// Server -> host bridge.
	TypeWelcome    = "WELCOME"
	TypeRender     = "RENDER"
	TypeAction     = "ACTION"
	TypeMoveResult = "MOVE_RESULT"
	TypeResult     = "RESULT"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	Ref             string `json:"ref,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
