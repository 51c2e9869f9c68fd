// Package settings holds the per-client preferences and their persistence.
package settings

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/nav"
)

// Theme selects the tile layer and page colours
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Storage keys. Values are stored as flat strings.
const (
	KeyLanguage        = "language"
	KeyTheme           = "theme"
	KeyMode            = "mode"
	KeyFollow          = "follow"
	KeyMobile          = "mobile"
	KeyTransitProducts = "transit_products"
	KeyTransitMaxWalk  = "transit_maxwalk"
)

const (
	defaultTransitProducts = "511"
	defaultTransitMaxWalk  = 200
)

// ErrInvalid is returned for an update carrying an unknown enum value
var ErrInvalid = errors.New("invalid setting")

// Settings are the user preferences
type Settings struct {
	Language        i18n.Language     `json:"language"`
	Theme           Theme             `json:"theme"`
	Mode            nav.TransportMode `json:"mode"`
	Follow          bool              `json:"follow"`
	Mobile          bool              `json:"mobile"`
	TransitProducts string            `json:"transit_products"`
	TransitMaxWalk  int               `json:"transit_maxwalk"`
}

// Defaults returns the settings of a client that never saved any
func Defaults() Settings {
	return Settings{
		Language:        i18n.DefaultLanguage,
		Theme:           ThemeLight,
		Mode:            nav.DefaultMode,
		TransitProducts: defaultTransitProducts,
		TransitMaxWalk:  defaultTransitMaxWalk,
	}
}

// FromMap reads stored values, falling back to the default for every key
// that is missing or unreadable.
func FromMap(m map[string]string) Settings {
	s := Defaults()
	if v := m[KeyLanguage]; v != "" {
		s.Language = i18n.ParseLanguage(v)
	}
	if v := Theme(m[KeyTheme]); v == ThemeLight || v == ThemeDark {
		s.Theme = v
	}
	if mode, ok := nav.ParseMode(m[KeyMode]); ok {
		s.Mode = mode
	}
	s.Follow = m[KeyFollow] == "true"
	s.Mobile = m[KeyMobile] == "true"
	if v := m[KeyTransitProducts]; v != "" {
		s.TransitProducts = v
	}
	if n, err := strconv.Atoi(m[KeyTransitMaxWalk]); err == nil {
		s.TransitMaxWalk = n
	}
	return s
}

// ToMap flattens s into its stored form
func (s Settings) ToMap() map[string]string {
	return map[string]string{
		KeyLanguage:        string(s.Language),
		KeyTheme:           string(s.Theme),
		KeyMode:            string(s.Mode),
		KeyFollow:          strconv.FormatBool(s.Follow),
		KeyMobile:          strconv.FormatBool(s.Mobile),
		KeyTransitProducts: s.TransitProducts,
		KeyTransitMaxWalk:  strconv.Itoa(s.TransitMaxWalk),
	}
}

// Update is a partial change; nil fields keep the current value
type Update struct {
	Language        *string `json:"language,omitempty"`
	Theme           *string `json:"theme,omitempty"`
	Mode            *string `json:"mode,omitempty"`
	Follow          *bool   `json:"follow,omitempty"`
	Mobile          *bool   `json:"mobile,omitempty"`
	TransitProducts *string `json:"transit_products,omitempty"`
	TransitMaxWalk  *string `json:"transit_maxwalk,omitempty"`
}

// Apply returns s with u applied. An empty transit products value or a max
// walk that is not a positive integer keeps the current value.
func (s Settings) Apply(u Update) (Settings, error) {
	if u.Language != nil {
		lang := i18n.Language(strings.ToLower(strings.TrimSpace(*u.Language)))
		if !lang.IsValid() {
			return s, fmt.Errorf("%w: language %q", ErrInvalid, *u.Language)
		}
		s.Language = lang
	}
	if u.Theme != nil {
		theme := Theme(strings.ToLower(strings.TrimSpace(*u.Theme)))
		if theme != ThemeLight && theme != ThemeDark {
			return s, fmt.Errorf("%w: theme %q", ErrInvalid, *u.Theme)
		}
		s.Theme = theme
	}
	if u.Mode != nil {
		mode, ok := nav.ParseMode(*u.Mode)
		if !ok {
			return s, fmt.Errorf("%w: mode %q", ErrInvalid, *u.Mode)
		}
		s.Mode = mode
	}
	if u.Follow != nil {
		s.Follow = *u.Follow
	}
	if u.Mobile != nil {
		s.Mobile = *u.Mobile
	}
	if u.TransitProducts != nil {
		if v := strings.TrimSpace(*u.TransitProducts); v != "" {
			s.TransitProducts = v
		}
	}
	if u.TransitMaxWalk != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(*u.TransitMaxWalk)); err == nil && n > 0 {
			s.TransitMaxWalk = n
		}
	}
	return s, nil
}

// RouteRequest fills the per-user parts of a routing request
func (s Settings) RouteRequest(req nav.RouteRequest) nav.RouteRequest {
	req.Mode = s.Mode
	req.Language = s.Language
	req.TransitProducts = s.TransitProducts
	req.TransitMaxWalk = s.TransitMaxWalk
	return req
}
