package fake

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"time"

	"github.com/pkg/errors"
)

// FakeClient — заглушка DTDC для демо и тестов.
// Ответ детерминирован по номеру: часть треков приходит доставленными.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

var cities = []struct{ name, pincode string }{
	{"Delhi", "110001"},
	{"Mumbai", "400001"},
	{"Bengaluru", "560001"},
	{"Chennai", "600001"},
	{"Kolkata", "700001"},
}

const stampLayout = "2006-01-02 15:04:05.0"

func (f *FakeClient) Fetch(ctx context.Context, trackNumber string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(trackNumber))
	v := h.Sum32()

	// 20% треков считаем доставленными
	delivered := v%5 == 0
	from := cities[v%uint32(len(cities))]
	to := cities[(v/7+1)%uint32(len(cities))]
	booked := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(v%240) * time.Hour)

	status := "In Transit"
	deliveredCode := "I"
	if delivered {
		status = "Delivered"
		deliveredCode = "A"
	}

	payload := map[string]any{
		"statusCode":        200,
		"statusDescription": "OK",
		"shipmentNo":        trackNumber,
		"header": map[string]any{
			"referenceNo":              "REF" + trackNumber,
			"originCity":               from.name,
			"originPincode":            from.pincode,
			"destinationCity":          to.name,
			"destinationPincode":       to.pincode,
			"bookingDate":              booked.Format("2006-01-02"),
			"bookingTime":              booked.Format("15:04:05"),
			"currentStatusDescription": status,
			"currentStatusDate":        booked.Add(30 * time.Hour).Format("2006-01-02"),
			"currentStatusTime":        booked.Add(30 * time.Hour).Format("15:04:05"),
			"opsEdd":                   booked.Add(72 * time.Hour).Format("2006-01-02"),
			"currentLocationCityName":  to.name,
			"nextLocationCityName":     "",
		},
		"milestones": []map[string]any{
			{"mileName": "Picked Up", "mileLocationName": from.name, "mileStatus": "A", "mileStatusDateTime": booked.Format(stampLayout)},
			{"mileName": "In Transit", "mileLocationName": from.name, "mileStatus": "A", "mileStatusDateTime": booked.Add(6 * time.Hour).Format(stampLayout)},
			{"mileName": "Delivered", "mileLocationName": to.name, "mileStatus": deliveredCode, "mileStatusDateTime": booked.Add(30 * time.Hour).Format(stampLayout)},
		},
		"statuses": []map[string]any{
			{"actBranchName": from.name + " Hub", "actCityName": from.name, "statusDescription": "Booked", "statusTimestamp": booked.Format(stampLayout), "remarks": "<b>Booked</b>"},
			{"actBranchName": to.name + " Hub", "actCityName": to.name, "statusDescription": status, "statusTimestamp": booked.Add(30 * time.Hour).Format(stampLayout), "remarks": "Fake carrier update"},
		},
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal fake payload")
	}
	return b, nil
}
