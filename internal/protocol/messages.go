package protocol

// HELLO (host -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	BridgeName      string `json:"bridge_name"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> host)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	BridgeID        string         `json:"bridge_id"`
	TickRateHz      int            `json:"tick_rate_hz"`
	Menus           []string       `json:"menus"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	BlockPalette DigestRef `json:"block_palette"`
	ItemPalette  DigestRef `json:"item_palette"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// Location is a world position with a facing.
type Location struct {
	World string     `json:"world"`
	Pos   [3]float64 `json:"pos"`
	Yaw   float32    `json:"yaw,omitempty"`
	Pitch float32    `json:"pitch,omitempty"`
}

// OBSERVER (host -> server): upserts an observer's state.
type ObserverMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ObserverID      string            `json:"observer_id"`
	Name            string            `json:"name,omitempty"`
	Location        Location          `json:"location"`
	EyeHeight       float64           `json:"eye_height"`
	Online          bool              `json:"online"`
	Permissions     []string          `json:"permissions,omitempty"`
	Variables       map[string]string `json:"variables,omitempty"`
}

// Event kinds.
const (
	EventMove     = "MOVE"
	EventTeleport = "TELEPORT"
	EventRespawn  = "RESPAWN"
	EventDeath    = "DEATH"
	EventQuit     = "QUIT"
	EventClick    = "CLICK"
)

// EVENT (host -> server)
type EventMsg struct {
	Type            string    `json:"type"`
	ProtocolVersion string    `json:"protocol_version"`
	Ref             string    `json:"ref,omitempty"`
	ObserverID      string    `json:"observer_id"`
	Kind            string    `json:"kind"`
	To              *Location `json:"to,omitempty"`
}

// OPEN (host -> server)
type OpenMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	ObserverID      string `json:"observer_id"`
	MenuID          string `json:"menu_id"`
}

// CLOSE (host -> server)
type CloseMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	ObserverID      string `json:"observer_id"`
	Remember        bool   `json:"remember"`
}

// OPEN_LAST (host -> server)
type OpenLastMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	ObserverID      string `json:"observer_id"`
}

// BLOCK (host -> server): a single block edit.
type BlockMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	World           string `json:"world"`
	Pos             [3]int `json:"pos"`
	Block           string `json:"block"`
}

type ItemStack struct {
	Item      string `json:"item"`
	Count     int    `json:"count"`
	ModelData int    `json:"model_data,omitempty"`
}

// CONTAINER (host -> server): inventory contents of a container block.
type ContainerMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	World           string      `json:"world"`
	Pos             [3]int      `json:"pos"`
	Kind            string      `json:"kind,omitempty"`
	Slots           []ItemStack `json:"slots"`
	CookProgress    float64     `json:"cook_progress,omitempty"`
}

// Render ops.
const (
	OpSpawn    = "SPAWN"
	OpMove     = "MOVE"
	OpGoTo     = "GOTO"
	OpRotate   = "ROTATE"
	OpSetText  = "SET_TEXT"
	OpSetItem  = "SET_ITEM"
	OpDespawn  = "DESPAWN"
	OpParticle = "PARTICLE"
)

// Entity kinds carried by SPAWN.
const (
	EntityText  = "TEXT"
	EntityItem  = "ITEM"
	EntityBlock = "BLOCK"
)

// RENDER (server -> host): one operation on a remote display entity.
type RenderMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ObserverID      string      `json:"observer_id"`
	Op              string      `json:"op"`
	Handle          string      `json:"handle,omitempty"`
	Entity          string      `json:"entity,omitempty"`
	Location        *Location   `json:"location,omitempty"`
	Delta           *[3]float64 `json:"delta,omitempty"`
	Yaw             *float32    `json:"yaw,omitempty"`
	Text            string      `json:"text,omitempty"`
	Item            *ItemStack  `json:"item,omitempty"`
	Scale           float64     `json:"scale,omitempty"`
	Background      bool        `json:"background,omitempty"`
	Billboard       bool        `json:"billboard,omitempty"`
	Particle        string      `json:"particle,omitempty"`
}

// Action kinds.
const (
	ActionCommand = "COMMAND"
	ActionSound   = "SOUND"
	ActionMessage = "MESSAGE"
)

// ACTION (server -> host): side effect of a click.
type ActionMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ObserverID      string  `json:"observer_id"`
	Kind            string  `json:"kind"`
	Command         string  `json:"command,omitempty"`
	AsConsole       bool    `json:"as_console,omitempty"`
	Sound           string  `json:"sound,omitempty"`
	Source          string  `json:"source,omitempty"`
	Volume          float32 `json:"volume,omitempty"`
	Pitch           float32 `json:"pitch,omitempty"`
	Text            string  `json:"text,omitempty"`
	ActionBar       bool    `json:"action_bar,omitempty"`
}

// MOVE_RESULT (server -> host): reply to a MOVE event.
type MoveResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	ObserverID      string `json:"observer_id"`
	Cancelled       bool   `json:"cancelled"`
}

// RESULT (server -> host): outcome of OPEN/CLOSE/OPEN_LAST.
type ResultMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ref             string `json:"ref,omitempty"`
	OK              bool   `json:"ok"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}
