package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PlanTier gates which routing features a link record is allowed to use.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
)

// IsPro reports whether pro-only routing fields should be honored.
func (p PlanTier) IsPro() bool {
	return p == PlanPro
}

// DeviceClass is the coarse device category parsed from the User-Agent.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceDesktop DeviceClass = "desktop"
	DeviceTablet  DeviceClass = "tablet"
)

// ABTestStatus controls whether an experiment participates in routing.
type ABTestStatus string

const (
	ABTestActive    ABTestStatus = "active"
	ABTestPaused    ABTestStatus = "paused"
	ABTestCompleted ABTestStatus = "completed"
)

// ABTest is the experiment sub-document attached to a link.
// Split is the percentage of visitors assigned to variant A (default 50).
type ABTest struct {
	VariantAURL string       `json:"variant_a_url"`
	VariantBURL string       `json:"variant_b_url"`
	Split       int          `json:"split,omitempty"`
	Status      ABTestStatus `json:"status"`
}

// IsActive reports whether the experiment should own the routing decision.
func (t *ABTest) IsActive() bool {
	return t != nil && t.Status == ABTestActive
}

// Value implements driver.Valuer so the sub-document is stored as JSONB.
func (t ABTest) Value() (driver.Value, error) {
	return json.Marshal(t)
}

// Scan implements sql.Scanner for the JSONB column.
func (t *ABTest) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, t)
}

// RouteMap maps a routing key (device class, country code, referrer host)
// to an override URL. Geo maps may carry a "default" entry.
type RouteMap map[string]string

// GeoDefaultKey is the fallback entry inside a geo RouteMap.
const GeoDefaultKey = "default"

// Value implements driver.Valuer for JSONB storage.
func (m RouteMap) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for the JSONB column.
func (m *RouteMap) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, m)
}

// TimeWindow routes traffic to URL during [StartHour, EndHour) UTC.
// A window with StartHour > EndHour wraps past midnight.
type TimeWindow struct {
	StartHour int    `json:"start_hour"`
	EndHour   int    `json:"end_hour"`
	URL       string `json:"url"`
}

// Contains reports whether the given UTC hour falls inside the window.
func (w TimeWindow) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

// TimeRules is an ordered list of time windows; the first match wins.
type TimeRules []TimeWindow

// Value implements driver.Valuer for JSONB storage.
func (r TimeRules) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for the JSONB column.
func (r *TimeRules) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(b, r)
}

// LinkRecord is the routing policy document for one slug. The redirect
// engine reads it and increments ClickCount; it never creates or deletes
// records — that belongs to the link-management service.
type LinkRecord struct {
	ID              int64      `json:"id" db:"id"`
	Slug            string     `json:"slug" db:"slug"`
	Destination     string     `json:"destination" db:"destination"`
	OwnerPlan       PlanTier   `json:"owner_plan" db:"owner_plan"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	MaxClicks       *int64     `json:"max_clicks,omitempty" db:"max_clicks"`
	ClickCount      int64      `json:"click_count" db:"click_count"`
	PasswordHash    string     `json:"password_hash,omitempty" db:"password_hash"`
	DeviceRouting   RouteMap   `json:"device_routing,omitempty" db:"device_routing"`
	GeoRouting      RouteMap   `json:"geo_routing,omitempty" db:"geo_routing"`
	ReferrerRouting RouteMap   `json:"referrer_routing,omitempty" db:"referrer_routing"`
	TimeRouting     TimeRules  `json:"time_routing,omitempty" db:"time_routing"`
	ABTest          *ABTest    `json:"ab_test,omitempty" db:"ab_test"`
	UTMTemplate     string     `json:"utm_template,omitempty" db:"utm_template"`
}

// IsExpired reports whether the link is past its expiry at the given time.
func (l *LinkRecord) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// IsExhausted reports whether the advisory click counter has reached the
// configured ceiling. Counts are best-effort; slight overcounting near the
// boundary is accepted.
func (l *LinkRecord) IsExhausted() bool {
	return l.MaxClicks != nil && l.ClickCount >= *l.MaxClicks
}
