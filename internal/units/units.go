// Package units converts free-text OSM length values ("5m", "3 km", "5'6\"")
// into meters.
package units

import (
	"regexp"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Unit keys recognised in tag values
const (
	Meter        = "m"
	Kilometer    = "km"
	Mile         = "mi"
	NauticalMile = "nmi"
	Feet         = "feet"
	Inch         = "inch"
)

// DefaultCacheSize is the parser cache size used when none is given
const DefaultCacheSize = 4096

// factors maps unit keys to meters. Only these literal keys are recognised;
// "ft", "yd" and friends fall through as unitless.
var factors = map[string]float64{
	Meter:        1,
	Kilometer:    1000,
	Mile:         1609.344,
	NauticalMile: 1852,
	Feet:         0.3048,
	Inch:         0.0254,
}

var (
	prefixRegex     = regexp.MustCompile(`[A-Za-z]{1,3}`)
	feetInchesRegex = regexp.MustCompile(`(\d*)'?"?(\d*)`)
	strip           = strings.NewReplacer("'", "", `"`, "", " ", "")
)

// Prefix returns the unit key detected in text, or "" when none is recognised
func Prefix(text string) string {
	hasFeet := strings.Contains(text, "'")
	hasInch := strings.Contains(text, `"`)

	switch {
	case hasFeet && hasInch:
		return Feet
	case hasFeet:
		return Feet
	case hasInch:
		return Inch
	}

	if m := prefixRegex.FindString(text); m != "" {
		if _, ok := factors[m]; ok {
			return m
		}
	}
	return ""
}

// number extracts the numeric part of text for the given unit.
// Feet notation yields feet (inches folded in as twelfths).
func number(text, unit string) float64 {
	if unit == Feet {
		m := feetInchesRegex.FindStringSubmatch(text)
		if m == nil {
			return 0
		}
		var ft float64
		if m[1] != "" {
			v, _ := strconv.ParseFloat(m[1], 64)
			ft = v
		}
		if m[2] != "" {
			v, _ := strconv.ParseFloat(m[2], 64)
			ft += v / 12.0
		}
		return ft
	}

	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			return -1
		}
		return r
	}, text)
	cleaned = strip.Replace(cleaned)
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, ",", "."))

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return v
}

// Parse converts text to meters. Unparsable text yields 0 and an unknown
// unit leaves the value unconverted.
func Parse(text string) float64 {
	unit := Prefix(text)
	value := number(text, unit)
	if fac, ok := factors[unit]; ok {
		return value * fac
	}
	return value
}

// Parser memoises Parse results; tag values such as "3" or "10 m" repeat
// across thousands of buildings.
type Parser struct {
	cache *lru.Cache[string, float64]
}

// NewParser creates a parser with an LRU cache of the given size
func NewParser(size int) (*Parser, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, float64](size)
	if err != nil {
		return nil, err
	}
	return &Parser{cache: cache}, nil
}

// Meters converts text to meters
func (p *Parser) Meters(text string) float64 {
	if p == nil || p.cache == nil {
		return Parse(text)
	}
	if v, ok := p.cache.Get(text); ok {
		return v
	}
	v := Parse(text)
	p.cache.Add(text, v)
	return v
}

// Len returns the number of memoised values
func (p *Parser) Len() int {
	if p == nil || p.cache == nil {
		return 0
	}
	return p.cache.Len()
}
