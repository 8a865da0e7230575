package models

import "time"

// ClickEvent is the append-only analytics record emitted after a successful
// redirect decision. The engine only produces these; aggregation and
// querying live in the analytics service.
type ClickEvent struct {
	Slug        string      `json:"slug" db:"slug"`
	Timestamp   time.Time   `json:"timestamp" db:"clicked_at"`
	DeviceClass DeviceClass `json:"device_class" db:"device_class"`
	Country     string      `json:"country,omitempty" db:"country"`
	Browser     string      `json:"browser,omitempty" db:"browser"`
	OS          string      `json:"os,omitempty" db:"os"`
	Referrer    string      `json:"referrer,omitempty" db:"referrer"`
	Variant     string      `json:"variant,omitempty" db:"variant"`
}
