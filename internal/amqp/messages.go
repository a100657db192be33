package amqp

import (
	"encoding/json"
	"time"
)

// Reasons carried by cache invalidation messages.
const (
	ReasonPreferenceChanged = "preference_changed"
	ReasonRatesUpdated      = "rates_updated"
	ReasonManual            = "manual"
)

// CacheInvalidationMessage asks every replica to drop cached user currencies.
// An empty UserID means every user.
type CacheInvalidationMessage struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	Origin    string    `json:"origin,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewCacheInvalidationMessage creates a message stamped with the current time
func NewCacheInvalidationMessage(userID, reason string) *CacheInvalidationMessage {
	return &CacheInvalidationMessage{
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// AllUsers reports whether the message targets every cached user.
func (m *CacheInvalidationMessage) AllUsers() bool {
	return m.UserID == ""
}

// ToJSON converts the message to JSON bytes
func (m *CacheInvalidationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// CacheInvalidationMessageFromJSON creates a message from JSON bytes
func CacheInvalidationMessageFromJSON(data []byte) (*CacheInvalidationMessage, error) {
	var msg CacheInvalidationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
