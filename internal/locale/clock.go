// Package locale formats times of day the way the user's locale expects.
package locale

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	layout12h = "3:04:05 PM"
	layout24h = "15:04:05"
)

var DefaultTag = language.AmericanEnglish

// Regions whose conventional clock is 12-hour
var twelveHourRegions = map[string]bool{
	"US": true,
	"CA": true,
	"AU": true,
	"NZ": true,
	"IN": true,
	"PH": true,
	"PK": true,
	"BD": true,
	"EG": true,
	"SA": true,
}

// Clock formats the time-of-day portion of a timestamp for a locale
type Clock struct {
	tag    language.Tag
	layout string
	loc    *time.Location
}

func NewClock(tag language.Tag) Clock {
	layout := layout24h
	if region, _ := tag.Region(); twelveHourRegions[region.String()] {
		layout = layout12h
	}
	return Clock{tag: tag, layout: layout, loc: time.Local}
}

// Parse accepts BCP 47 tags ("de-DE") as well as POSIX locale names
// ("en_GB.UTF-8", "fr_FR@euro").
func Parse(name string) (Clock, error) {
	normalized := normalize(name)
	if normalized == "" {
		return NewClock(DefaultTag), nil
	}

	tag, err := language.Parse(normalized)
	if err != nil {
		return NewClock(DefaultTag), fmt.Errorf("failed to parse locale %q: %w", name, err)
	}
	return NewClock(tag), nil
}

// FromEnvironment picks the first locale set among override, LC_ALL, LC_TIME
// and LANG. Unparseable values fall back to the default.
func FromEnvironment(override string) Clock {
	candidates := []string{override, os.Getenv("LC_ALL"), os.Getenv("LC_TIME"), os.Getenv("LANG")}
	for _, c := range candidates {
		if normalize(c) == "" {
			continue
		}
		if clock, err := Parse(c); err == nil {
			return clock
		}
	}
	return NewClock(DefaultTag)
}

func normalize(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexAny(name, ".@"); i >= 0 {
		name = name[:i]
	}
	if name == "C" || name == "POSIX" {
		return ""
	}
	return strings.ReplaceAll(name, "_", "-")
}

// In returns a copy of the clock that renders times in loc
func (c Clock) In(loc *time.Location) Clock {
	c.loc = loc
	return c
}

func (c Clock) Tag() language.Tag {
	return c.tag
}

func (c Clock) Format(t time.Time) string {
	loc := c.loc
	if loc == nil {
		loc = time.Local
	}
	layout := c.layout
	if layout == "" {
		layout = layout12h
	}
	return t.In(loc).Format(layout)
}
