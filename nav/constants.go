package nav

import "strings"

// TransportMode represents the mode of transportation
type TransportMode string

const (
	ModeDriving         TransportMode = "driving"
	ModeCycling         TransportMode = "cycling"
	ModeWalking         TransportMode = "walking"
	ModePublicTransport TransportMode = "public_transport"
)

// DefaultMode is the default transport mode if none is specified
const DefaultMode = ModeDriving

// modeAliases maps the alternative spellings clients send
var modeAliases = map[string]TransportMode{
	"car":     ModeDriving,
	"auto":    ModeDriving,
	"bike":    ModeCycling,
	"biking":  ModeCycling,
	"foot":    ModeWalking,
	"transit": ModePublicTransport,
}

// NormalizedGridSize is the size of the normalized grid for path points
const NormalizedGridSize = 100

// IsValid checks if the transport mode is valid
func (m TransportMode) IsValid() bool {
	switch m {
	case ModeDriving, ModeCycling, ModeWalking, ModePublicTransport:
		return true
	default:
		return false
	}
}

// IsTransit reports whether the mode is planned by the trip planner
func (m TransportMode) IsTransit() bool {
	return m == ModePublicTransport
}

// OSRMProfile returns the OSRM profile name for the mode
func (m TransportMode) OSRMProfile() string {
	switch m {
	case ModeCycling:
		return "bike"
	case ModeWalking:
		return "foot"
	default:
		return "car"
	}
}

// ParseMode parses a mode or one of its aliases. ok is false for unknown
// input, in which case DefaultMode is returned.
func ParseMode(s string) (TransportMode, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultMode, true
	}
	if m := TransportMode(s); m.IsValid() {
		return m, true
	}
	if m, ok := modeAliases[s]; ok {
		return m, true
	}
	return DefaultMode, false
}
