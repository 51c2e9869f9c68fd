package directions

import "github.com/nwah/vagvisare/i18n"

// Utterance is a sentence for the client's speech synthesizer. A new
// utterance always replaces whatever is currently being spoken.
type Utterance struct {
	Text   string `json:"text"`
	Lang   string `json:"lang"`
	Cancel bool   `json:"cancel"`
}

// Narrate builds the utterance for the visible part of w, or nil when
// there is nothing to say.
func Narrate(w *Window, lang i18n.Language) *Utterance {
	if w == nil {
		return nil
	}
	visible := w.Visible()
	if len(visible) == 0 {
		return nil
	}
	text := joinSentences(Texts(visible, lang))
	if text == "" {
		return nil
	}
	return &Utterance{
		Text:   text,
		Lang:   lang.SpeechCode(),
		Cancel: true,
	}
}
