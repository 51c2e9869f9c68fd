package directions

import "github.com/nwah/vagvisare/i18n"

// TurnWindow is how many upcoming steps are shown and spoken at once
const TurnWindow = 2

// Window pages through a step list TurnWindow steps at a time. It is not
// safe for concurrent use.
type Window struct {
	steps []Step
	index int
}

// NewWindow starts a window at the first step
func NewWindow(steps []Step) *Window {
	return &Window{steps: steps}
}

// Len returns the number of steps in the route
func (w *Window) Len() int { return len(w.steps) }

// Index returns the first visible step
func (w *Window) Index() int { return w.index }

// Steps returns the full step list
func (w *Window) Steps() []Step { return w.steps }

// clamp keeps index within [0, max(0, n-TurnWindow)]
func (w *Window) clamp() {
	if w.index < 0 {
		w.index = 0
	}
	if upper := max(0, len(w.steps)-TurnWindow); w.index > upper {
		w.index = upper
	}
}

// Next advances by a full window, stopping so the last window is full
func (w *Window) Next() {
	if len(w.steps) == 0 {
		return
	}
	w.index = min(w.index+TurnWindow, len(w.steps)-TurnWindow)
	w.clamp()
}

// Prev goes back by a full window
func (w *Window) Prev() {
	if len(w.steps) == 0 {
		return
	}
	w.index = max(w.index-TurnWindow, 0)
	w.clamp()
}

// Reset jumps back to the first step
func (w *Window) Reset() {
	w.index = 0
}

// Visible returns the steps currently in view
func (w *Window) Visible() []Step {
	w.clamp()
	if len(w.steps) == 0 {
		return nil
	}
	end := min(w.index+TurnWindow, len(w.steps))
	return w.steps[w.index:end]
}

// Page is the client-facing snapshot of a window
type Page struct {
	Index   int      `json:"index"`
	Total   int      `json:"total"`
	Steps   []Step   `json:"steps"`
	Texts   []string `json:"texts"`
	HasPrev bool     `json:"has_prev"`
	HasNext bool     `json:"has_next"`
}

// Page renders the visible steps in lang
func (w *Window) Page(lang i18n.Language) Page {
	visible := w.Visible()
	return Page{
		Index:   w.index,
		Total:   len(w.steps),
		Steps:   visible,
		Texts:   Texts(visible, lang),
		HasPrev: w.index > 0,
		HasNext: w.index+TurnWindow < len(w.steps),
	}
}
