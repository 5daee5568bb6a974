// Package handlers owns the transport edge: websocket accept, the message
// router, and the capability context feature handlers are invoked with.
package handlers

import (
	"encoding/json"

	"github.com/bytebloom/starfall/models"
)

// Context is the capability bundle passed to every feature handler: send and
// broadcast primitives plus read-only registry views. It is the seam past
// which progression, quests, guilds, pets, and the other domain features
// take over — nothing beyond this interface is exposed to them.
type Context interface {
	// SendTo queues a message for one player. False if the player is gone
	// or backed up.
	SendTo(playerID string, msg models.ServerMessage) bool

	// BroadcastToRealm queues a message for everyone in one realm.
	BroadcastToRealm(realm string, msg models.ServerMessage)

	// Broadcast queues a message for everyone connected.
	Broadcast(msg models.ServerMessage)

	// Realms lists the fixed realm set.
	Realms() []string

	// HasRealm reports membership in the fixed realm set.
	HasRealm(name string) bool

	// ConnectionCount reports the number of live connections.
	ConnectionCount() int
}

// FeatureHandler processes one validated non-core message. The connection is
// the authenticated sender; data is the raw payload, already checked to be
// well-formed JSON. Returned errors are logged, never echoed to the client.
type FeatureHandler func(conn *models.Connection, data json.RawMessage, ctx Context) error
