// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumer.
package queue

// ProgramSharedQueue is the durable queue carrying ProgramSharedEvent.
const ProgramSharedQueue = "program.shared"

// ProgramSharedEvent is published once, when a program receives its share
// token.  It carries enough information for downstream consumers to log
// or notify without querying the primary database.  The token itself is
// deliberately absent.
type ProgramSharedEvent struct {
	ProgramID uint64 `json:"program_id"`
	OwnerID   uint64 `json:"owner_id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	ItemCount int    `json:"item_count"`
	SharedAt  string `json:"shared_at"`
}
