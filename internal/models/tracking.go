package models

import (
	"encoding/json"
	"time"
)

// Плейсхолдеры для отсутствующих/нераспознанных полей.
const (
	NotAvailable  = "N/A"
	StatusUnknown = "Unknown"

	// MilestoneDelivered — имя вехи, по которой определяется доставка.
	MilestoneDelivered = "Delivered"
)

// TrackingInfo — каноническое представление ответа перевозчика.
// Если Error не пустой, остальные поля считаются невалидными.
type TrackingInfo struct {
	TrackingNumber    string          `json:"trackingNumber"`
	ReferenceNo       string          `json:"referenceNo"`
	Status            string          `json:"status"`
	StatusDate        string          `json:"statusDate"`
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	BookingDate       string          `json:"bookingDate"`
	EstimatedDelivery string          `json:"estimatedDelivery"`
	CurrentLocation   string          `json:"currentLocation"`
	NextLocation      string          `json:"nextLocation"`
	Milestones        []Milestone     `json:"milestones"`
	Timeline          []TimelineEvent `json:"timeline"`
	IsDelivered       bool            `json:"isDelivered"`
	Error             string          `json:"error,omitempty"`
}

type trackingInfoJSON TrackingInfo

// MarshalJSON отдаёт только {"error": ...}, когда запись ошибочная.
func (t TrackingInfo) MarshalJSON() ([]byte, error) {
	if t.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: t.Error})
	}
	return json.Marshal(trackingInfoJSON(t))
}

// Failed builds an error-only record.
func Failed(msg string) TrackingInfo {
	return TrackingInfo{Error: msg}
}

type Milestone struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	DateTime  string `json:"dateTime"`
	Completed bool   `json:"completed"`
}

type TimelineEvent struct {
	DateTime string `json:"dateTime"`
	Location string `json:"location"`
	Status   string `json:"status"`
	Details  string `json:"details"`
}

// HistoryEntry — одна запись клиентской истории поиска.
type HistoryEntry struct {
	TrackingNumber string    `json:"trackingNumber"`
	Timestamp      time.Time `json:"timestamp"`
}

// Lookup — строка журнала успешных запросов к перевозчику.
type Lookup struct {
	ID             uint64
	TrackingNumber string
	Status         string
	ResponseJSON   []byte
	TrackedAt      time.Time
}
