package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Session layer.
	ErrUnknownMenu     = "E_UNKNOWN_MENU"
	ErrObserverOffline = "E_OBSERVER_OFFLINE"
	ErrNoSession       = "E_NO_SESSION"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnknownMenu:     {},
	ErrObserverOffline: {},
	ErrNoSession:       {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
