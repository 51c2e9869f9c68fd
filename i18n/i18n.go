package i18n

import "strings"

// Language is a two-letter UI language code
type Language string

const (
	Swedish Language = "sv"
	English Language = "en"
)

// DefaultLanguage is used when no language or an unknown one is given
const DefaultLanguage = Swedish

// IsValid checks if the language has a catalog
func (l Language) IsValid() bool {
	_, ok := catalogs[l]
	return ok
}

// ParseLanguage maps a user supplied code to a known language
func ParseLanguage(s string) Language {
	l := Language(strings.ToLower(strings.TrimSpace(s)))
	if len(l) > 2 {
		// accept "sv-SE", "en-US" and friends
		l = l[:2]
	}
	if !l.IsValid() {
		return DefaultLanguage
	}
	return l
}

// SpeechCode returns the BCP 47 tag handed to speech synthesis
func (l Language) SpeechCode() string {
	if l == Swedish {
		return "sv-SE"
	}
	return "en-US"
}

var catalogs = map[Language]map[string]string{
	Swedish: {
		"you_are_here":      "Du är här",
		"location_error":    "Kunde inte hämta din position.",
		"ask_permission":    "Webbplatsen behöver din plats för navigering. Tillåt position?",
		"no_route":          "Ingen rutt hittades.",
		"no_place":          "Ingen plats hittades.",
		"search_error":      "Fel vid sökning.",
		"routing_error":     "Fel vid ruttberäkning.",
		"resrobot_error":    "Kunde inte planera kollektivtrafikresa.",
		"directions_title":  "Vägbeskrivning",
		"start_route":       "Starta rutt",
		"cancel_route":      "Avbryt rutt",
		"saved_settings":    "Inställningar sparade",
		"bad_request":       "Ogiltig begäran.",
		"not_found":         "Hittades inte.",
		"superseded":        "Avbröts av en nyare begäran.",
		"turn_left":         "Sväng vänster",
		"turn_right":        "Sväng höger",
		"continue_straight": "Fortsätt rakt fram",
		"continue":          "Fortsätt",
		"with_distance":     "{action} om {dist} meter",
		"walk":              "Gå",
		"walk_distance":     "Gå {dist} m",
		"transit_leg":       "{name} från {origin} → {dest}",
		"vehicle":           "Fordon",
	},
	English: {
		"you_are_here":      "You are here",
		"location_error":    "Could not fetch your position.",
		"ask_permission":    "The site needs your location for navigation. Allow location?",
		"no_route":          "No route found.",
		"no_place":          "No place found.",
		"search_error":      "Search failed.",
		"routing_error":     "Routing failed.",
		"resrobot_error":    "Could not plan transit trip.",
		"directions_title":  "Directions",
		"start_route":       "Start route",
		"cancel_route":      "Cancel route",
		"saved_settings":    "Settings saved",
		"bad_request":       "Invalid request.",
		"not_found":         "Not found.",
		"superseded":        "Replaced by a newer request.",
		"turn_left":         "Turn left",
		"turn_right":        "Turn right",
		"continue_straight": "Continue straight",
		"continue":          "Continue",
		"with_distance":     "{action} in {dist} meters",
		"walk":              "Walk",
		"walk_distance":     "Walk {dist} m",
		"transit_leg":       "{name} from {origin} → {dest}",
		"vehicle":           "Vehicle",
	},
}

// Vars holds placeholder values for T
type Vars map[string]string

// T translates key into lang, substituting {name} placeholders from vars.
// Unknown keys are returned as-is.
func T(lang Language, key string, vars Vars) string {
	s, ok := catalogs[lang][key]
	if !ok {
		return key
	}
	if len(vars) == 0 {
		return s
	}
	// one pass, so values containing placeholders are left alone
	pairs := make([]string, 0, 2*len(vars))
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

// Keys lists every key in the default catalog
func Keys() []string {
	keys := make([]string, 0, len(catalogs[DefaultLanguage]))
	for k := range catalogs[DefaultLanguage] {
		keys = append(keys, k)
	}
	return keys
}
