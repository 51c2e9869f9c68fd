package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwah/vagvisare/i18n"
	"github.com/nwah/vagvisare/nav"
)

func ptr[T any](v T) *T { return &v }

func TestDefaults(t *testing.T) {
	s := Defaults()
	assert.Equal(t, i18n.Swedish, s.Language)
	assert.Equal(t, ThemeLight, s.Theme)
	assert.Equal(t, nav.ModeDriving, s.Mode)
	assert.False(t, s.Follow)
	assert.False(t, s.Mobile)
	assert.Equal(t, "511", s.TransitProducts)
	assert.Equal(t, 200, s.TransitMaxWalk)
}

func TestFromMap(t *testing.T) {
	s := FromMap(map[string]string{
		KeyLanguage:       "en",
		KeyTheme:          "dark",
		KeyMode:           "transit",
		KeyFollow:         "true",
		KeyMobile:         "yes",
		KeyTransitMaxWalk: "abc",
	})
	assert.Equal(t, i18n.English, s.Language)
	assert.Equal(t, ThemeDark, s.Theme)
	assert.Equal(t, nav.ModePublicTransport, s.Mode)
	assert.True(t, s.Follow)
	assert.False(t, s.Mobile, "only the string true enables a flag")
	assert.Equal(t, "511", s.TransitProducts)
	assert.Equal(t, 200, s.TransitMaxWalk)

	assert.Equal(t, Defaults(), FromMap(nil))
	assert.Equal(t, Defaults(), FromMap(map[string]string{KeyTheme: "sepia", KeyMode: "boat"}))
}

func TestToMapRoundTrip(t *testing.T) {
	s := Settings{
		Language: i18n.English, Theme: ThemeDark, Mode: nav.ModeWalking,
		Follow: true, TransitProducts: "64", TransitMaxWalk: 450,
	}
	m := s.ToMap()
	assert.Equal(t, "true", m[KeyFollow])
	assert.Equal(t, "false", m[KeyMobile])
	assert.Equal(t, "450", m[KeyTransitMaxWalk])
	assert.Equal(t, s, FromMap(m))
}

func TestApply(t *testing.T) {
	s, err := Defaults().Apply(Update{
		Language:        ptr("EN"),
		Theme:           ptr("dark"),
		Mode:            ptr("bike"),
		Follow:          ptr(true),
		TransitProducts: ptr("  "),
		TransitMaxWalk:  ptr("x"),
	})
	require.NoError(t, err)
	assert.Equal(t, i18n.English, s.Language)
	assert.Equal(t, ThemeDark, s.Theme)
	assert.Equal(t, nav.ModeCycling, s.Mode)
	assert.True(t, s.Follow)
	assert.False(t, s.Mobile)
	assert.Equal(t, "511", s.TransitProducts, "empty products keep current")
	assert.Equal(t, 200, s.TransitMaxWalk, "unparseable max walk keeps current")

	s, err = s.Apply(Update{TransitProducts: ptr("64"), TransitMaxWalk: ptr("500")})
	require.NoError(t, err)
	assert.Equal(t, "64", s.TransitProducts)
	assert.Equal(t, 500, s.TransitMaxWalk)
}

func TestApplyRejectsInvalid(t *testing.T) {
	for _, u := range []Update{
		{Language: ptr("de")},
		{Theme: ptr("sepia")},
		{Mode: ptr("boat")},
	} {
		_, err := Defaults().Apply(u)
		assert.ErrorIs(t, err, ErrInvalid)
	}
}

func TestRouteRequest(t *testing.T) {
	s := Defaults()
	s.Mode = nav.ModePublicTransport
	req := s.RouteRequest(nav.RouteRequest{FromLat: 1, ToLat: 2})
	assert.Equal(t, nav.ModePublicTransport, req.Mode)
	assert.Equal(t, i18n.Swedish, req.Language)
	assert.Equal(t, "511", req.TransitProducts)
	assert.Equal(t, 200, req.TransitMaxWalk)
	assert.Equal(t, 2.0, req.ToLat)
}

func TestStore(t *testing.T) {
	store, err := OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	s, err := store.Load(ctx, "phone")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)

	s.Theme = ThemeDark
	s.Follow = true
	require.NoError(t, store.Save(ctx, "phone", s))

	got, err := store.Load(ctx, "phone")
	require.NoError(t, err)
	assert.Equal(t, s, got)

	// other clients are unaffected
	other, err := store.Load(ctx, "tablet")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), other)

	// saving again overwrites in place
	s.Theme = ThemeLight
	require.NoError(t, store.Save(ctx, "phone", s))
	got, err = store.Load(ctx, "phone")
	require.NoError(t, err)
	assert.Equal(t, ThemeLight, got.Theme)
}

func TestStoreUpdate(t *testing.T) {
	store, err := OpenMemory()
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	s, err := store.Update(ctx, "c1", Update{Language: ptr("en"), Mobile: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, i18n.English, s.Language)
	assert.True(t, s.Mobile)

	_, err = store.Update(ctx, "c1", Update{Theme: ptr("sepia")})
	require.ErrorIs(t, err, ErrInvalid)

	got, err := store.Load(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestOpenFile(t *testing.T) {
	path := t.TempDir() + "/data/settings.db"
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), "c", Defaults()))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Load(context.Background(), "c")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), got)
}
