package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ajithvnr2001/edgelink/internal/clicks"
	"github.com/ajithvnr2001/edgelink/internal/device"
	"github.com/ajithvnr2001/edgelink/internal/geo"
	"github.com/ajithvnr2001/edgelink/internal/models"
	"github.com/ajithvnr2001/edgelink/internal/policy"
	"github.com/ajithvnr2001/edgelink/internal/service"
	"github.com/ajithvnr2001/edgelink/pkg/metrics"
)

// PasswordHeader carries the credential for password-protected links. The
// engine never renders a password prompt; API clients retry with this
// header set.
const PasswordHeader = "X-Link-Password"

// challengeHeader signals on a 401 that a credential is expected on retry.
const challengeHeader = "X-Password-Required"

// RedirectHandler owns the GET /{slug} hot path: resolve the record,
// evaluate policy, emit the HTTP response, dispatch click recording.
type RedirectHandler struct {
	resolver *service.Resolver
	parser   device.Parser
	geo      geo.Resolver
	sink     clicks.Sink

	// countryHeader is a trusted edge header (e.g. CF-IPCountry) consulted
	// before falling back to the geo resolver.
	countryHeader string
	log           *zap.Logger
}

func NewRedirectHandler(resolver *service.Resolver, parser device.Parser, geoResolver geo.Resolver, sink clicks.Sink, countryHeader string, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		resolver:      resolver,
		parser:        parser,
		geo:           geoResolver,
		sink:          sink,
		countryHeader: countryHeader,
		log:           log,
	}
}

// Redirect handles GET /{slug}.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	record, err := h.resolver.Resolve(r.Context(), slug)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			metrics.RedirectOutcomes.WithLabelValues(policy.OutcomeNotFound.String()).Inc()
			writeError(w, http.StatusNotFound, "short link not found")
		case errors.Is(err, service.ErrStoreUnavailable):
			metrics.RedirectOutcomes.WithLabelValues("error").Inc()
			writeError(w, http.StatusBadGateway, "link store unavailable")
		default:
			h.log.Error("resolve failed", zap.String("slug", slug), zap.Error(err))
			metrics.RedirectOutcomes.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	info := h.parser.Parse(r.UserAgent())
	ip := clientIP(r)

	rc := policy.RequestContext{
		Now:          time.Now().UTC(),
		Device:       info.Class,
		Country:      h.country(r, ip),
		ReferrerHost: referrerHost(r.Referer()),
		Password:     r.Header.Get(PasswordHeader),
		VisitorKey:   ip,
	}

	decision := policy.Evaluate(record, rc)
	metrics.RedirectOutcomes.WithLabelValues(decision.Outcome.String()).Inc()

	switch decision.Outcome {
	case policy.OutcomeRedirect:
		// Destinations can vary per visitor and experiment, so routing
		// redirects are always temporary.
		http.Redirect(w, r, decision.URL, http.StatusFound)

		// Recording is dispatched, not awaited: the sink contract is
		// non-blocking and its failures never reach the response.
		h.sink.Record(models.ClickEvent{
			Slug:        record.Slug,
			Timestamp:   rc.Now,
			DeviceClass: info.Class,
			Country:     rc.Country,
			Browser:     info.Browser,
			OS:          info.OS,
			Referrer:    r.Referer(),
			Variant:     decision.Variant,
		})

	case policy.OutcomeGone:
		writeError(w, http.StatusGone, "short link expired or exhausted")

	case policy.OutcomeUnauthorized:
		w.Header().Set(challengeHeader, "true")
		writeError(w, http.StatusUnauthorized, "password required")

	default:
		writeError(w, http.StatusNotFound, "short link not found")
	}
}

// Health handles GET /healthz.
func (h *RedirectHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *RedirectHandler) country(r *http.Request, ip string) string {
	if h.countryHeader != "" {
		if code := r.Header.Get(h.countryHeader); code != "" {
			return code
		}
	}

	code, err := h.geo.Resolve(r.Context(), ip)
	if err != nil {
		// Unknown country falls through to the geo default route.
		h.log.Debug("geo lookup failed", zap.String("ip", ip), zap.Error(err))
		return ""
	}
	return code
}

// clientIP extracts the requester's IP, trusting X-Forwarded-For and
// X-Real-IP set by the fronting proxy before the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func referrerHost(referrer string) string {
	if referrer == "" {
		return ""
	}
	u, err := url.Parse(referrer)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// writeError emits an { "error": "msg" } JSON body.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
