// Package normalize converts raw DTDC tracking payloads into models.TrackingInfo.
//
// Everything here is pure: no I/O and no shared state, so calls are safe
// from any number of goroutines.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/BearBump/ParcelView/internal/models"
)

// ActiveMilestoneCode — код пройденной вехи у DTDC.
const ActiveMilestoneCode = "A"

// MalformedPayloadError — текст ошибки для тела, которое не является JSON.
const MalformedPayloadError = "Failed to parse response: invalid JSON"

// Normalize maps an upstream payload onto the canonical record.
// Missing or wrong-typed fields fall back to their defaults. Only a body that
// is not JSON at all produces a record with Error set.
func Normalize(raw []byte, trackingNumber string) models.TrackingInfo {
	if !gjson.ValidBytes(raw) {
		return models.Failed(MalformedPayloadError)
	}
	root := gjson.ParseBytes(raw)
	header := root.Get("header")

	info := models.TrackingInfo{
		TrackingNumber: trackingNumber,
		ReferenceNo:    text(header.Get("referenceNo"), ""),
		Status:         text(header.Get("currentStatusDescription"), models.StatusUnknown),
		StatusDate: FormatDateTime(
			text(header.Get("currentStatusDate"), ""),
			text(header.Get("currentStatusTime"), ""),
		),
		Origin:      place(header, "originCity", "originPincode"),
		Destination: place(header, "destinationCity", "destinationPincode"),
		BookingDate: FormatDateTime(
			text(header.Get("bookingDate"), ""),
			text(header.Get("bookingTime"), ""),
		),
		EstimatedDelivery: FormatForDisplay(text(header.Get("opsEdd"), "")),
		CurrentLocation:   text(header.Get("currentLocationCityName"), ""),
		NextLocation:      text(header.Get("nextLocationCityName"), ""),
		Milestones:        milestones(root.Get("milestones")),
		Timeline:          timeline(root.Get("statuses")),
	}
	info.IsDelivered = isDelivered(info.Milestones)

	return info
}

// text — единственный способ читать скаляры из ответа. Строка берётся как есть,
// число — своим литералом (пинкоды иногда приходят числом); пустая строка, null,
// bool, объект, массив или отсутствие поля дают def.
func text(r gjson.Result, def string) string {
	switch r.Type {
	case gjson.String:
		if r.Str != "" {
			return r.Str
		}
	case gjson.Number:
		return r.Raw
	}
	return def
}

func place(header gjson.Result, cityKey, pincodeKey string) string {
	city := text(header.Get(cityKey), models.NotAvailable)
	pincode := text(header.Get(pincodeKey), models.NotAvailable)
	return fmt.Sprintf("%s (%s)", city, pincode)
}

func milestones(list gjson.Result) []models.Milestone {
	out := []models.Milestone{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, m gjson.Result) bool {
		name := text(m.Get("mileName"), "")
		if name == "" {
			// без имени веху не показываем
			return true
		}
		out = append(out, models.Milestone{
			Name:      name,
			Location:  text(m.Get("mileLocationName"), ""),
			DateTime:  FormatForDisplay(text(m.Get("mileStatusDateTime"), "")),
			Completed: text(m.Get("mileStatus"), "") == ActiveMilestoneCode,
		})
		return true
	})
	return out
}

func timeline(list gjson.Result) []models.TimelineEvent {
	out := []models.TimelineEvent{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, s gjson.Result) bool {
		out = append(out, models.TimelineEvent{
			DateTime: FormatForDisplay(text(s.Get("statusTimestamp"), "")),
			Location: joinLocation(text(s.Get("actBranchName"), ""), text(s.Get("actCityName"), "")),
			Status:   text(s.Get("statusDescription"), ""),
			Details:  Sanitize(text(s.Get("remarks"), "")),
		})
		return true
	})
	return out
}

// isDelivered: доставлено только если веха "Delivered" отмечена активным кодом.
func isDelivered(ms []models.Milestone) bool {
	for _, m := range ms {
		if m.Name == models.MilestoneDelivered && m.Completed {
			return true
		}
	}
	return false
}

func joinLocation(branch, city string) string {
	return strings.TrimFunc(branch+", "+city, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
}
