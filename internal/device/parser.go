package device

import (
	"github.com/mileusna/useragent"

	"github.com/ajithvnr2001/edgelink/internal/models"
)

// Info is the parsed view of a User-Agent header.
type Info struct {
	Class   models.DeviceClass
	Browser string
	OS      string
}

// Parser turns a raw User-Agent into device class, browser, and OS.
type Parser interface {
	Parse(userAgent string) Info
}

// UAParser wraps the mileusna/useragent lexer.
type UAParser struct{}

func NewUAParser() UAParser { return UAParser{} }

func (UAParser) Parse(userAgent string) Info {
	ua := useragent.Parse(userAgent)

	class := models.DeviceDesktop
	switch {
	case ua.Tablet:
		class = models.DeviceTablet
	case ua.Mobile:
		class = models.DeviceMobile
	}

	return Info{
		Class:   class,
		Browser: ua.Name,
		OS:      ua.OS,
	}
}
