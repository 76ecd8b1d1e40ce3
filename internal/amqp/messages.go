package amqp

import (
	"encoding/json"
	"time"
)

// LedgerEvent announces that a remote collection changed. It carries only the
// coordinates of the change; consumers refetch the collection instead of
// trusting a payload that may already be stale.
type LedgerEvent struct {
	Collection string    `json:"collection"`
	Action     string    `json:"action"`
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewLedgerEvent(collection, action, id string) *LedgerEvent {
	return &LedgerEvent{
		Collection: collection,
		Action:     action,
		ID:         id,
		Timestamp:  time.Now(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
