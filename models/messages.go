package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// Envelope is the wire frame in both directions: one JSON object per
// websocket frame.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// ServerMessage is an outbound frame before marshalling. The writer pump
// stamps the timestamp when the frame is encoded.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Encode renders the message as a wire envelope at now.
func (m ServerMessage) Encode(now time.Time) ([]byte, error) {
	payload, err := json.Marshal(m.Data)
	if err != nil {
		return nil, fmt.Errorf("models: marshal %s data: %w", m.Type, err)
	}
	return json.Marshal(Envelope{Type: m.Type, Data: payload, Timestamp: now.UnixMilli()})
}

// Inbound message types owned by the core. Everything else is dispatched to
// registered feature handlers.
const (
	TypeMove            = "move"
	TypeSetName         = "set_name"
	TypeSetHue          = "set_hue"
	TypeChangeRealm     = "change_realm"
	TypeCollectFragment = "collect_fragment"
	TypeEcho            = "echo"
	TypeGesture         = "gesture"
	TypePing            = "ping"
)

// Outbound message types.
const (
	TypeInitialState      = "initial_state"
	TypeWorldState        = "world_state"
	TypeFragmentSpawned   = "fragment_spawned"
	TypeFragmentCollected = "fragment_collected"
	TypeFragmentRemoved   = "fragment_removed"
	TypePlayerJoined      = "player_joined"
	TypePlayerLeft        = "player_left"
	TypeConstellation     = "constellation"
	TypeBotChat           = "bot_chat"
	TypePong              = "pong"
	TypeError             = "error"
)

// ErrUnknownType marks a message type the core does not own.
var ErrUnknownType = errors.New("models: unknown message type")

// ClientPayload is implemented by every typed inbound payload. Validate runs
// before any handler sees the value.
type ClientPayload interface {
	Validate() error
}

// MovePayload updates the sender's position. Coordinates are clamped by the
// router; validation only rejects values JSON can carry but the world cannot.
type MovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p MovePayload) Validate() error {
	if !finite(p.X) || !finite(p.Y) {
		return errors.New("move: coordinates must be finite")
	}
	return nil
}

// SetNamePayload updates the sender's display name.
type SetNamePayload struct {
	Name string `json:"name"`
}

func (p SetNamePayload) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("set_name: name must not be blank")
	}
	if !utf8.ValidString(p.Name) {
		return errors.New("set_name: name must be valid UTF-8")
	}
	return nil
}

// SetHuePayload updates the sender's color hue.
type SetHuePayload struct {
	Hue float64 `json:"hue"`
}

func (p SetHuePayload) Validate() error {
	if !finite(p.Hue) {
		return errors.New("set_hue: hue must be finite")
	}
	return nil
}

// ChangeRealmPayload moves the sender to another realm.
type ChangeRealmPayload struct {
	Realm string `json:"realm"`
}

func (p ChangeRealmPayload) Validate() error {
	if p.Realm == "" {
		return errors.New("change_realm: realm must not be empty")
	}
	return nil
}

// CollectFragmentPayload claims a fragment by id.
type CollectFragmentPayload struct {
	FragmentID string `json:"fragmentId"`
}

func (p CollectFragmentPayload) Validate() error {
	if p.FragmentID == "" {
		return errors.New("collect_fragment: fragmentId must not be empty")
	}
	return nil
}

// EchoPayload drops an echo at the sender's position.
type EchoPayload struct{}

func (EchoPayload) Validate() error { return nil }

// GesturePayload announces a cosmetic gesture; nearby bots may react.
type GesturePayload struct {
	Action string `json:"action"`
}

func (p GesturePayload) Validate() error {
	if p.Action == "" {
		return errors.New("gesture: action must not be empty")
	}
	if utf8.RuneCountInString(p.Action) > 32 {
		return errors.New("gesture: action too long")
	}
	return nil
}

// PingPayload requests a pong with server time.
type PingPayload struct{}

func (PingPayload) Validate() error { return nil }

// DecodePayload parses and validates the payload for a core-owned message
// type. It returns [ErrUnknownType] for types the core does not handle.
func DecodePayload(msgType string, raw json.RawMessage) (ClientPayload, error) {
	var p ClientPayload
	switch msgType {
	case TypeMove:
		p = &MovePayload{}
	case TypeSetName:
		p = &SetNamePayload{}
	case TypeSetHue:
		p = &SetHuePayload{}
	case TypeChangeRealm:
		p = &ChangeRealmPayload{}
	case TypeCollectFragment:
		p = &CollectFragmentPayload{}
	case TypeEcho:
		p = &EchoPayload{}
	case TypeGesture:
		p = &GesturePayload{}
	case TypePing:
		p = &PingPayload{}
	default:
		return nil, ErrUnknownType
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, p); err != nil {
			return nil, fmt.Errorf("%s: malformed data: %w", msgType, err)
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// WorldState is the full per-realm snapshot broadcast every tick, and also
// the initial-state push on join and realm change.
type WorldState struct {
	Realm      string       `json:"realm"`
	Players    []PlayerView `json:"players"`
	Bots       []BotView    `json:"bots"`
	Echoes     []Echo       `json:"echoes"`
	Fragments  []Fragment   `json:"fragments"`
	LitStars   []string     `json:"litStars"`
	ServerTime int64        `json:"serverTime"`
}

// FragmentCollected confirms a collection to the collector.
type FragmentCollected struct {
	FragmentID string `json:"fragmentId"`
	Value      int    `json:"value"`
	IsGolden   bool   `json:"isGolden"`
	XP         int64  `json:"xp"`
}

// FragmentRemoved tells the rest of a realm that a fragment is gone.
type FragmentRemoved struct {
	FragmentID string `json:"fragmentId"`
	By         string `json:"by"`
}

// ConstellationEvent is the realm-wide cosmetic broadcast for a rewarded
// cluster.
type ConstellationEvent struct {
	Tier         string   `json:"tier"`
	Participants []string `json:"participants"`
	XPEach       int      `json:"xpEach"`
	StarID       string   `json:"starId"`
}

// BotChat carries one NPC utterance to a realm.
type BotChat struct {
	BotID   string `json:"botId"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ErrorPayload names the offending message type but never reflects the raw
// payload back.
type ErrorPayload struct {
	MessageType string `json:"messageType"`
	Reason      string `json:"reason"`
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
