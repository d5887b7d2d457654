// Package normalize maps heterogeneous source records into the canonical event shape.
package normalize

import (
	"strings"
	"time"

	"github.com/okian/compintel/internal/domain/model"
)

// aliases canonicalizes competitor names, keyed by lower case.
var aliases = map[string]string{
	"oppo":    "OPPO",
	"vivo":    "vivo",
	"xiami":   "Xiaomi",
	"xiaomi":  "Xiaomi",
	"samsung": "Samsung",
	"apple":   "Apple",
	"huawei":  "Huawei",
	"oneplus": "OnePlus",
	"nothing": "Nothing",
	"google":  "Google",
}

// Competitor returns the canonical spelling of name. Unknown names pass through.
func Competitor(name string) string {
	if c, ok := aliases[strings.ToLower(strings.TrimSpace(name))]; ok {
		return c
	}
	return name
}

// Normalize maps rec into a NormalizedEvent. It never fails; an unusable
// date becomes the current time.
func Normalize(rec model.Record) model.NormalizedEvent {
	return NormalizeAt(rec, time.Now())
}

// NormalizeAt is Normalize with an explicit fallback time.
func NormalizeAt(rec model.Record, now time.Time) model.NormalizedEvent {
	comp := pick(rec, "competitor", "company", "brand")
	if comp == "" {
		comp = model.UnknownCompetitor
	}
	eventType := pick(rec, "event_type", "content_type")
	if eventType == "" {
		eventType = model.EventUnknown
	}
	return model.NormalizedEvent{
		ID:          pick(rec, "id", "event_id", "link", "title"),
		Competitor:  Competitor(comp),
		EventType:   eventType,
		Description: pick(rec, "description", "summary", "raw_text", "title"),
		Date:        CoerceTimeAt(first(rec, "date", "published", "timestamp"), now),
		Source:      pick(rec, "source", "source_url", "link"),
		Region:      pick(rec, "region"),
	}
}

// FromRaw normalizes a retrieved item.
func FromRaw(item model.RawItem) model.NormalizedEvent {
	return Normalize(item.Record())
}

// pick returns the first non-empty string value among keys.
func pick(rec model.Record, keys ...string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(rec.String(k)); s != "" {
			return s
		}
	}
	return ""
}

// first returns the first value among keys that is neither nil nor an empty string.
func first(rec model.Record, keys ...string) any {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && strings.TrimSpace(s) == "" {
			continue
		}
		if t, isTime := v.(time.Time); isTime && t.IsZero() {
			continue
		}
		return v
	}
	return nil
}
