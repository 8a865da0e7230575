package policy

import (
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/pkg/abtest"
)

// Outcome is the terminal result of evaluating a link record against one
// request. The handler maps outcomes to HTTP statuses.
type Outcome int

const (
	OutcomeRedirect Outcome = iota
	OutcomeNotFound
	OutcomeGone
	OutcomeUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRedirect:
		return "redirect"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeGone:
		return "gone"
	case OutcomeUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// RequestContext carries everything the evaluator needs about one request.
// It is assembled by the handler from headers and collaborator lookups so
// evaluation itself stays pure.
type RequestContext struct {
	Now          time.Time
	Device       models.DeviceClass
	Country      string
	ReferrerHost string
	Password     string
	VisitorKey   string
}

// Decision is the evaluator's verdict: either a destination URL to redirect
// to, or a denial. Variant is set when an active experiment chose the
// destination, and is carried into the click event.
type Decision struct {
	Outcome Outcome
	URL     string
	Variant string
}

// Evaluate applies the policy precedence chain to a link record. Gates
// (expiry, click limit, password) short-circuit before any destination is
// considered; an active experiment then owns the decision exclusively;
// device, geo, time and referrer routing apply in that order only when no
// experiment is running. The function is pure — all inputs come from the
// record and the request context.
func Evaluate(record *models.LinkRecord, rc RequestContext) Decision {
	if record == nil {
		return Decision{Outcome: OutcomeNotFound}
	}

	if record.IsExpired(rc.Now) {
		return Decision{Outcome: OutcomeGone}
	}
	if record.IsExhausted() {
		return Decision{Outcome: OutcomeGone}
	}

	pro := record.OwnerPlan.IsPro()

	// A stored hash always demands that some credential is supplied, but
	// verifying it against the hash is a pro feature: on a downgraded
	// account the hash stays in storage and only the existence check runs.
	if record.PasswordHash != "" {
		if rc.Password == "" {
			return Decision{Outcome: OutcomeUnauthorized}
		}
		if pro && !passwordMatches(record.PasswordHash, rc.Password) {
			return Decision{Outcome: OutcomeUnauthorized}
		}
	}

	dest := record.Destination
	variant := ""

	switch {
	case pro && record.ABTest.IsActive():
		variant = abtest.Assign(rc.VisitorKey, record.Slug, record.ABTest.Split)
		if variant == abtest.VariantA {
			dest = record.ABTest.VariantAURL
		} else {
			dest = record.ABTest.VariantBURL
		}

	case pro && deviceRoute(record, rc.Device) != "":
		dest = deviceRoute(record, rc.Device)

	case pro && geoRoute(record, rc.Country) != "":
		dest = geoRoute(record, rc.Country)

	case pro && timeRoute(record, rc.Now) != "":
		dest = timeRoute(record, rc.Now)

	case pro && referrerRoute(record, rc.ReferrerHost) != "":
		dest = referrerRoute(record, rc.ReferrerHost)
	}

	if record.UTMTemplate != "" {
		dest = appendUTM(dest, record.UTMTemplate)
	}

	return Decision{Outcome: OutcomeRedirect, URL: dest, Variant: variant}
}

func passwordMatches(hash, supplied string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(supplied)) == nil
}

func deviceRoute(record *models.LinkRecord, device models.DeviceClass) string {
	if device == "" {
		return ""
	}
	return record.DeviceRouting[string(device)]
}

func geoRoute(record *models.LinkRecord, country string) string {
	if len(record.GeoRouting) == 0 {
		return ""
	}
	if country != "" {
		if u, ok := record.GeoRouting[strings.ToUpper(country)]; ok {
			return u
		}
	}
	return record.GeoRouting[models.GeoDefaultKey]
}

func timeRoute(record *models.LinkRecord, now time.Time) string {
	hour := now.UTC().Hour()
	for _, w := range record.TimeRouting {
		if w.Contains(hour) {
			return w.URL
		}
	}
	return ""
}

// referrerRoute matches the referrer host against the configured patterns:
// an exact host match, or a suffix match so "example.com" also covers
// "news.example.com".
func referrerRoute(record *models.LinkRecord, host string) string {
	if host == "" || len(record.ReferrerRouting) == 0 {
		return ""
	}
	host = strings.ToLower(host)
	if u, ok := record.ReferrerRouting[host]; ok {
		return u
	}
	for pattern, u := range record.ReferrerRouting {
		if strings.HasSuffix(host, "."+strings.ToLower(pattern)) {
			return u
		}
	}
	return ""
}

// appendUTM merges the template's query parameters into the destination.
// Existing destination parameters always win; a malformed destination or
// template leaves the URL untouched rather than breaking the redirect.
func appendUTM(dest, template string) string {
	u, err := url.Parse(dest)
	if err != nil {
		return dest
	}
	extra, err := url.ParseQuery(strings.TrimPrefix(template, "?"))
	if err != nil {
		return dest
	}

	q := u.Query()
	for key, vals := range extra {
		if q.Has(key) {
			continue
		}
		for _, v := range vals {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
