package telemetry

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, *clock.Mock) {
	t.Helper()
	clk := clock.NewMock()
	return NewDefaultStore(time.Second, WithClock(clk)), clk
}

func TestStore_SimpleSmoothing(t *testing.T) {
	s, clk := newMockStore(t)

	require.NoError(t, s.Set(SOG, 4))
	assert.Equal(t, 4.0, s.Smoothed(SOG))

	clk.Add(250 * time.Millisecond)
	require.NoError(t, s.Set(SOG, 8))
	assert.Equal(t, 8.0, s.Get(SOG))
	assert.InDelta(t, 5.0, s.Smoothed(SOG), 1e-9)

	// Longer than the response time takes the new value outright.
	clk.Add(5 * time.Second)
	require.NoError(t, s.Set(SOG, 2))
	assert.InDelta(t, 2.0, s.Smoothed(SOG), 1e-9)
}

func TestStore_CompassWrapSmoothing(t *testing.T) {
	s, clk := newMockStore(t)

	require.NoError(t, s.Set(COG, 350))
	clk.Add(500 * time.Millisecond)
	require.NoError(t, s.Set(COG, 10))

	got := s.Smoothed(COG)
	assert.Less(t, angleDiff(got, 0), 1e-6, "smoothed %v", got)
	assert.GreaterOrEqual(t, got, 0.0)
	assert.Less(t, got, 360.0)
	assert.Equal(t, 10.0, s.Get(COG))

	// A naive average would have landed on 180.
	assert.Greater(t, angleDiff(got, 180), 170.0)
}

func TestStore_BoatAngleSmoothingAcrossStern(t *testing.T) {
	s, clk := newMockStore(t)

	require.NoError(t, s.Set(AWA, 170))
	clk.Add(500 * time.Millisecond)
	require.NoError(t, s.Set(AWA, -170))

	got := s.Smoothed(AWA)
	assert.InDelta(t, 180, abs(got), 1e-6)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestStore_CompanionsTrackSinCos(t *testing.T) {
	s, _ := newMockStore(t)
	require.NoError(t, s.Set(HDG, 90))
	assert.InDelta(t, 1, s.Get(hdgSin), 1e-12)
	assert.InDelta(t, 0, s.Get(hdgCos), 1e-12)
}

func TestStore_UnsmoothedKinds(t *testing.T) {
	s, clk := newMockStore(t)
	require.NoError(t, s.Set(Lat, 48.1))
	clk.Add(100 * time.Millisecond)
	require.NoError(t, s.Set(Lat, 48.2))
	assert.Equal(t, 48.2, s.Smoothed(Lat))

	require.NoError(t, s.Set(COGWP, 359))
	clk.Add(100 * time.Millisecond)
	require.NoError(t, s.Set(COGWP, 1))
	assert.Equal(t, 1.0, s.Smoothed(COGWP))
}

func TestStore_OutOfRange(t *testing.T) {
	s := NewStore(3)
	require.Error(t, s.Set(3, 1))
	require.Error(t, s.Set(-1, 1))
	assert.Zero(t, s.Get(7))
	_, ok := s.Channel(9)
	assert.False(t, ok)

	// A compound kind needs room for its companions.
	require.Error(t, s.Declare(1, "X", "", "", CompassAngleSin, 0))
	require.NoError(t, s.Declare(0, "X", "", "", CompassAngleSin, 0))
}

func TestStore_DeclareResetsCompanions(t *testing.T) {
	s := NewStore(3)
	require.NoError(t, s.Set(1, 5))
	require.NoError(t, s.Declare(0, "Dir", "%.0f", "deg", CompassAngleSin, 2*time.Second))

	c, ok := s.Channel(1)
	require.True(t, ok)
	assert.Zero(t, c.Latest)
	assert.Equal(t, 2*time.Second, c.Response)

	c, _ = s.Channel(0)
	assert.Equal(t, "Dir", c.Label)
	assert.Equal(t, CompassAngleSin, c.Kind)
}

func TestStore_LookupAndFormat(t *testing.T) {
	s, _ := newMockStore(t)

	id, ok := s.Lookup("Depth")
	require.True(t, ok)
	assert.Equal(t, Depth, id)
	_, ok = s.Lookup("nope")
	assert.False(t, ok)
	_, ok = s.Lookup("")
	assert.False(t, ok)

	require.NoError(t, s.Set(Depth, 12.34))
	assert.Equal(t, "  12.3 m", s.Format(Depth))

	require.NoError(t, s.Set(User0, 1.5))
	assert.Equal(t, "1.5", s.Format(User0))
	assert.Empty(t, s.Format(NumChannels))
}

func TestDefaultStore_Labels(t *testing.T) {
	s := NewDefaultStore(0)
	assert.Equal(t, int(NumChannels), s.Len())
	for _, d := range defaultChannels {
		c, ok := s.Channel(d.id)
		require.True(t, ok)
		assert.Equal(t, d.label, c.Label)
		assert.Equal(t, DefaultResponse, c.Response)
	}
	id, ok := s.Lookup("HDT")
	require.True(t, ok)
	assert.Equal(t, HDT, id)
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "compass_sin", CompassAngleSin.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.True(t, BoatAngleSin.Compound())
	assert.False(t, BoatAngle.Compound())
}

func TestHistory_Spacing(t *testing.T) {
	s, clk := newMockStore(t)
	h, err := s.AttachHistory(SOG, 10, 10, 0, 20*time.Second)
	require.NoError(t, err)
	require.Same(t, h, s.History(SOG))

	require.NoError(t, s.Set(SOG, 1.26))
	assert.Equal(t, 1, h.Len())

	clk.Add(10 * time.Second)
	require.NoError(t, s.Set(SOG, 1.26))
	assert.Equal(t, 1, h.Len())

	clk.Add(10 * time.Second)
	require.NoError(t, s.Set(SOG, 1.26))
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, clk.Now(), h.LastSample())

	raw := h.Raw()
	require.Len(t, raw, 10)
	assert.Equal(t, []int16{13, 13}, raw[8:])
	assert.Equal(t, []float64{1.3, 1.3}, h.Values())
}

func TestHistory_RingWraps(t *testing.T) {
	s, clk := newMockStore(t)
	h, err := s.AttachHistory(Depth, 3, 1, 0, time.Second)
	require.NoError(t, err)
	require.Equal(t, MinHistorySize, h.Cap())

	for i := 1; i <= 12; i++ {
		require.NoError(t, s.Set(Depth, float64(i)))
		clk.Add(5 * time.Second)
	}
	assert.Equal(t, MinHistorySize, h.Len())
	assert.Equal(t, []float64{3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, h.Values())
}

func TestHistory_OffsetAndClamp(t *testing.T) {
	s, _ := newMockStore(t)
	h, err := s.AttachHistory(Barometer, 10, 1, 100000, time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Set(Barometer, 101325))
	assert.Equal(t, []float64{101325}, h.Values())

	h, err = s.AttachHistory(TempAir, 10, 1000, 0, time.Second)
	require.NoError(t, err)
	require.NoError(t, s.Set(TempAir, 100))
	assert.Equal(t, int16(32767), h.Raw()[9])

	s.DetachHistory(TempAir)
	assert.Nil(t, s.History(TempAir))
}
