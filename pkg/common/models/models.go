package models

import "time"

// Event is the envelope published to Kafka for every notification and alert
// emitted by the fulfillment engine. Consumers (email, admin UI, analytics)
// are external to this subsystem.
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}
