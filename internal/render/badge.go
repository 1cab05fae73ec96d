package render

// Badge is the display token of an active-state value
type Badge struct {
	Label string `json:"label" yaml:"label"`
	Class string `json:"class" yaml:"class"`
}

// Badge tokens. Every active-state value maps to exactly one of these.
var (
	BadgeActive   = Badge{Label: "active", Class: "success"}
	BadgeInactive = Badge{Label: "inactive", Class: "secondary"}
	BadgeRetry    = Badge{Label: "retry", Class: "warning"}
	BadgeUnknown  = Badge{Label: "unknown", Class: "dark"}
)

// StatusBadge maps an active-state value to its badge. Values other than
// true, false and "retry" fall back to BadgeUnknown.
func StatusBadge(v interface{}) Badge {
	switch x := v.(type) {
	case bool:
		if x {
			return BadgeActive
		}
		return BadgeInactive
	case string:
		if x == "retry" {
			return BadgeRetry
		}
	case interface{ Value() interface{} }:
		return StatusBadge(x.Value())
	}
	return BadgeUnknown
}

// marker is the plain-text prefix of a badge
func (b Badge) marker() string {
	switch b.Class {
	case BadgeActive.Class:
		return "[+]"
	case BadgeInactive.Class:
		return "[-]"
	case BadgeRetry.Class:
		return "[~]"
	default:
		return "[?]"
	}
}

// Text is the plain-text form of the badge
func (b Badge) Text() string {
	return b.marker() + " " + b.Label
}
