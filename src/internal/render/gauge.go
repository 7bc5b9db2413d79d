package render

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// gaugeRadius is the radius of the SVG circle drawn by index.css.
const gaugeRadius = 80

// Tier is the color class of a gauge.
type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Circle is a ring gauge: Per is the stroke-dashoffset of the circle,
// Color the CSS variable for its tier and Inner the centered label.
type Circle struct {
	Per   float64
	Tier  Tier
	Color string
	Inner string
}

// Gauge maps a 0..1 ratio onto a ring gauge.
func Gauge(ratio float64) Circle {
	perimeter := 3.14 * gaugeRadius
	tier := TierLow
	switch {
	case ratio >= 0.9:
		tier = TierHigh
	case ratio >= 0.8:
		tier = TierMedium
	}
	return Circle{
		Per:   perimeter - perimeter*ratio,
		Tier:  tier,
		Color: "var(--" + string(tier) + "-color)",
		Inner: strconv.FormatFloat(math.Ceil(ratio*100), 'f', -1, 64) + "%",
	}
}

// Offset formats Per for the style attribute.
func (c Circle) Offset() string {
	return strconv.FormatFloat(c.Per, 'f', -1, 64)
}

// FormatDuration renders d as days, hours and rounded minutes.
func FormatDuration(d time.Duration, locale string) string {
	const day = 24 * time.Hour
	days := int64(d / day)
	hours := int64((d % day) / time.Hour)
	minutes := int64(math.Round(float64(d%time.Hour) / float64(time.Minute)))
	if locale == "zh-cn" {
		return fmt.Sprintf("%d天%d小时%d分", days, hours, minutes)
	}
	return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
}
