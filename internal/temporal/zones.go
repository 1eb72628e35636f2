package temporal

import (
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/sandeepkv93/schedd/internal/model"
)

var zoneAbbrev = map[string]string{
	"PST": "America/Los_Angeles", "PDT": "America/Los_Angeles",
	"MST": "America/Denver", "MDT": "America/Denver",
	"CST": "America/Chicago", "CDT": "America/Chicago",
	"EST": "America/New_York", "EDT": "America/New_York",
	"GMT": "Etc/GMT", "UTC": "Etc/UTC",
	"CET": "Europe/Berlin", "CEST": "Europe/Berlin",
	"BST":  "Europe/London",
	"IST":  "Asia/Kolkata",
	"JST":  "Asia/Tokyo",
	"AEST": "Australia/Sydney", "AEDT": "Australia/Sydney",
}

var (
	abbrevRe = regexp.MustCompile(`(?i)\b(pst|pdt|mst|mdt|cst|cdt|est|edt|gmt|utc|cest|cet|bst|ist|jst|aest|aedt)\b`)
	ianaRe   = regexp.MustCompile(`\b([A-Z][A-Za-z]+(?:/[A-Z][A-Za-z_+\-]+)+)\b`)
)

// Zone returns the location named by a timezone abbreviation or IANA name in text.
func (p *Parser) Zone(text string) (*time.Location, bool) {
	if m := ianaRe.FindStringSubmatch(text); m != nil {
		if loc, err := p.LoadZone(m[1]); err == nil {
			return loc, true
		}
	}
	if m := abbrevRe.FindStringSubmatch(text); m != nil {
		if loc, err := p.LoadZone(zoneAbbrev[strings.ToUpper(m[1])]); err == nil {
			return loc, true
		}
	}
	return nil, false
}

// LoadZone resolves a location through the parser's cache.
func (p *Parser) LoadZone(name string) (*time.Location, error) {
	if mapped, ok := zoneAbbrev[strings.ToUpper(name)]; ok {
		name = mapped
	}
	if loc, ok := p.zones.Get(name); ok {
		return loc, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	p.zones.Add(name, loc)
	return loc, nil
}

// Shift converts a civil date and minute in from into the parser's location.
func (p *Parser) Shift(d model.Date, minute int, from *time.Location) (model.Date, int) {
	return Shift(d, minute, from, p.loc)
}

func Shift(d model.Date, minute int, from, to *time.Location) (model.Date, int) {
	t := d.At(minute, from).In(to)
	return model.DateOf(t), t.Hour()*60 + t.Minute()
}
