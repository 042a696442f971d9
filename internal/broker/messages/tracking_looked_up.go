package messages

import (
	"encoding/json"
	"time"
)

const TopicTrackingLookedUp = "tracking.looked_up"

// TrackingLookedUp — событие успешного запроса трека. Key сообщения = номер трека.
type TrackingLookedUp struct {
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	IsDelivered    bool      `json:"is_delivered"`
	TrackedAt      time.Time `json:"tracked_at"`

	// сырой ответ перевозчика, пишется в response_data
	Response json.RawMessage `json:"response,omitempty"`
}
