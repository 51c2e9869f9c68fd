package directions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwah/vagvisare/i18n"
)

func TestFormatStepManeuver(t *testing.T) {
	tests := []struct {
		name string
		step Step
		lang i18n.Language
		want string
	}{
		{"left with distance sv", Step{Type: "turn", Modifier: "left", Distance: 120.4}, i18n.Swedish, "Sväng vänster om 120 meter"},
		{"right with distance en", Step{Type: "turn", Modifier: "right", Distance: 87.6}, i18n.English, "Turn right in 88 meters"},
		{"straight no distance", Step{Type: "continue", Modifier: "straight"}, i18n.English, "Continue straight"},
		{"type only", Step{Type: "depart", Distance: 10}, i18n.English, "Depart in 10 meters"},
		{"unknown modifier", Step{Type: "turn", Modifier: "slight left"}, i18n.Swedish, "Slight left"},
		{"rounds to zero", Step{Type: "arrive", Distance: 0.4}, i18n.English, "Arrive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStep(tt.step, tt.lang))
		})
	}
}

func TestFormatStepInstruction(t *testing.T) {
	tests := []struct {
		name string
		step Step
		lang i18n.Language
		want string
	}{
		{"keeps existing distance", Step{Instruction: "Gå 200 m", Distance: 200}, i18n.Swedish, "Gå 200 m"},
		{"keeps km", Step{Instruction: "drive 3 km north", Distance: 3000}, i18n.English, "drive 3 km north"},
		{"appends distance", Step{Instruction: "take the ferry", Distance: 950}, i18n.English, "Take the ferry in 950 meters"},
		{"appends distance sv", Step{Instruction: "buss 4 från Odenplan → Slussen", Distance: 2400}, i18n.Swedish, "Buss 4 från Odenplan → Slussen om 2400 meter"},
		{"no distance", Step{Instruction: "ändhållplats"}, i18n.Swedish, "Ändhållplats"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatStep(tt.step, tt.lang))
		})
	}
}

func TestFormatStepFallback(t *testing.T) {
	assert.Equal(t, "Fortsätt", FormatStep(Step{}, i18n.Swedish))
	assert.Equal(t, "Continue", FormatStep(Step{Distance: 40}, i18n.English))
}

func steps(n int) []Step {
	out := make([]Step, n)
	for i := range out {
		out[i] = Step{Type: "turn", Modifier: "left", Distance: float64((i + 1) * 100)}
	}
	return out
}

func TestWindowPaging(t *testing.T) {
	w := NewWindow(steps(5))
	assert.Equal(t, 0, w.Index())
	assert.Len(t, w.Visible(), 2)

	w.Next()
	assert.Equal(t, 2, w.Index())

	// 4 would leave a single visible step, so the last page is kept full
	w.Next()
	assert.Equal(t, 3, w.Index())
	assert.Len(t, w.Visible(), 2)

	w.Next()
	assert.Equal(t, 3, w.Index())

	w.Prev()
	assert.Equal(t, 1, w.Index())
	w.Prev()
	assert.Equal(t, 0, w.Index())
	w.Prev()
	assert.Equal(t, 0, w.Index())
}

func TestWindowShortRoutes(t *testing.T) {
	w := NewWindow(steps(1))
	w.Next()
	assert.Equal(t, 0, w.Index())
	assert.Len(t, w.Visible(), 1)

	empty := NewWindow(nil)
	empty.Next()
	empty.Prev()
	assert.Equal(t, 0, empty.Index())
	assert.Empty(t, empty.Visible())
}

func TestWindowPage(t *testing.T) {
	w := NewWindow(steps(3))
	p := w.Page(i18n.English)
	assert.Equal(t, 0, p.Index)
	assert.Equal(t, 3, p.Total)
	assert.False(t, p.HasPrev)
	assert.True(t, p.HasNext)
	assert.Equal(t, []string{"Turn left in 100 meters", "Turn left in 200 meters"}, p.Texts)

	w.Next()
	p = w.Page(i18n.English)
	assert.Equal(t, 1, p.Index)
	assert.True(t, p.HasPrev)
	assert.False(t, p.HasNext)
}

func TestNarrate(t *testing.T) {
	w := NewWindow(steps(3))
	u := Narrate(w, i18n.Swedish)
	require.NotNil(t, u)
	assert.Equal(t, "sv-SE", u.Lang)
	assert.Equal(t, "Sväng vänster om 100 meter. Sväng vänster om 200 meter", u.Text)
	assert.True(t, u.Cancel)

	w.Next()
	u = Narrate(w, i18n.English)
	require.NotNil(t, u)
	assert.Equal(t, "en-US", u.Lang)
	assert.Equal(t, "Turn left in 200 meters. Turn left in 300 meters", u.Text)

	assert.Nil(t, Narrate(NewWindow(nil), i18n.English))
	assert.Nil(t, Narrate(nil, i18n.English))
}
