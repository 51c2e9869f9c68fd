// Package directions turns a route's maneuver list into the short,
// spoken-friendly instructions a driver sees two at a time.
package directions

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nwah/vagvisare/i18n"
)

// Step is a single maneuver, either straight from OSRM or synthesized from
// a transit leg (Instruction only).
type Step struct {
	Type        string  `json:"type,omitempty"`
	Modifier    string  `json:"modifier,omitempty"`
	Instruction string  `json:"instruction,omitempty"`
	Name        string  `json:"name,omitempty"`
	Distance    float64 `json:"distance"` // meters
	Duration    float64 `json:"duration,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Lat         float64 `json:"lat,omitempty"`
	Lon         float64 `json:"lon,omitempty"`
}

var distanceWord = regexp.MustCompile(`(?i)\b(meter|m|meters|metres|km|kilometer)\b`)

// FormatStep renders step as one natural-language sentence in lang
func FormatStep(step Step, lang i18n.Language) string {
	dist := int(math.Round(step.Distance))

	if step.Modifier != "" || step.Type != "" {
		mod := step.Modifier
		if mod == "" {
			mod = step.Type
		}
		action := actionFor(mod, lang)
		if dist != 0 {
			return withDistance(action, dist, lang)
		}
		return action
	}

	if step.Instruction != "" {
		if dist != 0 {
			if distanceWord.MatchString(step.Instruction) {
				return step.Instruction
			}
			return withDistance(capitalizeFirst(step.Instruction), dist, lang)
		}
		return capitalizeFirst(step.Instruction)
	}

	return i18n.T(lang, "continue", nil)
}

func actionFor(mod string, lang i18n.Language) string {
	switch mod {
	case "left":
		return i18n.T(lang, "turn_left", nil)
	case "right":
		return i18n.T(lang, "turn_right", nil)
	case "straight":
		return i18n.T(lang, "continue_straight", nil)
	default:
		return capitalizeFirst(mod)
	}
}

func withDistance(action string, dist int, lang i18n.Language) string {
	return i18n.T(lang, "with_distance", i18n.Vars{
		"action": action,
		"dist":   strconv.Itoa(dist),
	})
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// Texts formats every step in order
func Texts(steps []Step, lang i18n.Language) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = FormatStep(s, lang)
	}
	return out
}

// joinSentences joins instructions the way they are read aloud
func joinSentences(texts []string) string {
	var nonEmpty []string
	for _, t := range texts {
		if t != "" {
			nonEmpty = append(nonEmpty, t)
		}
	}
	return strings.Join(nonEmpty, ". ")
}
