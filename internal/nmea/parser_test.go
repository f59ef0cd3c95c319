package nmea

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"gpslink/internal/telemetry"
)

func newTestParser(t *testing.T) (*Parser, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	store := telemetry.NewDefaultStore(telemetry.DefaultResponse, telemetry.WithClock(mock))
	return NewParser(store, WithParserClock(mock)), mock
}

func TestParse_GGA(t *testing.T) {
	p, _ := newTestParser(t)
	h, err := p.Parse([]byte(ggaLine))
	require.NoError(t, err)
	require.Equal(t, "GGA", h.Type)

	r := p.Record()
	assert.Equal(t, TimeOfDay{Hour: 12, Minute: 35, Second: 19}, r.Time)
	assert.InDelta(t, 48.1173, r.Latitude.Degrees, 1e-9)
	assert.InDelta(t, 11.516667, r.Longitude.Degrees, 1e-6)
	assert.Equal(t, byte('E'), r.Longitude.Hemisphere)
	assert.Equal(t, 1, r.FixQuality)
	assert.True(t, r.Fix)
	assert.Equal(t, 8, r.Satellites)
	assert.Equal(t, 0.9, r.HDOP)
	assert.Equal(t, 545.4, r.Altitude)
	assert.Equal(t, 46.9, r.GeoidHeight)

	assert.Equal(t, 0.9, p.Store().Get(telemetry.HDOP))
	assert.InDelta(t, 48.1173, p.Store().Get(telemetry.Lat), 1e-9)
	assert.Equal(t, "GP", p.LastSource())
	assert.Equal(t, "GGA", p.LastSentence())
}

func TestParse_RMC(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse(sentence("GPRMC,123519.250,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W"))
	require.NoError(t, err)

	r := p.Record()
	assert.Equal(t, 250, r.Time.Millisecond)
	assert.True(t, r.Fix)
	assert.Equal(t, 22.4, r.Speed)
	assert.Equal(t, 84.4, r.Course)
	assert.Equal(t, Date{Day: 23, Month: 3, Year: 94}, r.Date)
	assert.Equal(t, 3.1, r.MagVariation)
	assert.Equal(t, byte('W'), r.MagVariationDir)
	assert.Equal(t, 22.4, p.Store().Get(telemetry.SOG))
	assert.InDelta(t, 84.4, p.Store().Smoothed(telemetry.COG), 1e-9)
}

func TestParse_RMCBadStatusCommitsNothing(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse([]byte(ggaLine))
	require.NoError(t, err)
	before := p.Record()

	_, err = p.Parse(sentence("GPRMC,000001,X,0100.000,S,00100.000,W,1.0,2.0,010100,,"))
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	require.ErrorIs(t, err, ErrBadFix)
	require.Equal(t, "RMC", de.Type)

	// Time was decoded before the status but must not have been committed.
	require.Equal(t, before, p.Record())
	require.Equal(t, "GGA", p.LastSentence())
}

func TestParse_BadCoordinateFailsSentence(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse(sentence("GPGGA,123519,9200.0000,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	require.ErrorIs(t, err, ErrOutOfRange)
	require.Zero(t, p.Record().Latitude)
	require.Zero(t, p.Store().Get(telemetry.HDOP))

	_, err = p.Parse(sentence("GPGGA,123519,4807.038,E,01131.000,E,1,08,0.9,545.4,M,46.9,M,,"))
	require.ErrorIs(t, err, ErrBadHemisphere)
}

func TestParse_EmptyFieldsLeaveRecordUntouched(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse([]byte(ggaLine))
	require.NoError(t, err)

	_, err = p.Parse(sentence("GPGGA,,,,,,,,,,,,,,"))
	require.NoError(t, err)
	r := p.Record()
	assert.InDelta(t, 48.1173, r.Latitude.Degrees, 1e-9)
	assert.Equal(t, 8, r.Satellites)
}

func TestParse_GLLAndGSA(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse(sentence("GPGLL,4916.45,N,12311.12,W,225444,V"))
	require.NoError(t, err)
	r := p.Record()
	assert.InDelta(t, 49.274167, r.Latitude.Degrees, 1e-6)
	assert.InDelta(t, -123.185333, r.Longitude.Degrees, 1e-6)
	assert.Equal(t, 22, r.Time.Hour)
	assert.False(t, r.Fix)

	_, err = p.Parse(sentence("GPGSA,A,3,04,05,,09,12,,,24,,,,,2.5,1.3,2.1"))
	require.NoError(t, err)
	r = p.Record()
	assert.Equal(t, 3, r.FixQuality3D)
	assert.Equal(t, 2.5, r.PDOP)
	assert.Equal(t, 1.3, r.HDOP)
	assert.Equal(t, 2.1, r.VDOP)
}

func TestParse_Antenna(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse([]byte("$PGTOP,11,3*6F\r\n"))
	require.NoError(t, err)
	require.Equal(t, 3, p.Record().Antenna)

	_, err = p.Parse(sentence("PCD,11,2"))
	require.NoError(t, err)
	require.Equal(t, 2, p.Record().Antenna)
}

func TestParse_TXT(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse(sentence("GPTXT,01,01,02,ANTSTATUS=OPEN"))
	require.NoError(t, err)
	r := p.Record()
	assert.Equal(t, 1, r.TxtTotal)
	assert.Equal(t, 2, r.TxtID)
	assert.Equal(t, "ANTSTATUS=OPEN", r.Txt)
}

func TestParse_KnownButUnparsed(t *testing.T) {
	p, _ := newTestParser(t)
	_, err := p.Parse(sentence("GPGSV,3,1,11,03,03,111,00"))
	require.Error(t, err)
	require.True(t, IsRecognized(err))
	require.Empty(t, p.LastSentence())
}

func TestParse_Wind(t *testing.T) {
	p, _ := newTestParser(t)
	s := p.Store()

	_, err := p.Parse(sentence("WIMWV,270,R,10.0,N,A"))
	require.NoError(t, err)
	assert.Equal(t, -90.0, s.Get(telemetry.AWA))
	assert.Equal(t, 10.0, s.Get(telemetry.AWS))

	_, err = p.Parse(sentence("WIMWV,45,T,10.0,M,A"))
	require.NoError(t, err)
	assert.Equal(t, 45.0, s.Get(telemetry.TWA))
	assert.InDelta(t, 19.438, s.Get(telemetry.TWS), 1e-3)

	// Invalid status is ignored rather than an error.
	_, err = p.Parse(sentence("WIMWV,10,T,99.0,N,V"))
	require.NoError(t, err)
	assert.Equal(t, 45.0, s.Get(telemetry.TWA))

	_, err = p.Parse(sentence("WIVWR,30,L,5.0,N,,,,"))
	require.NoError(t, err)
	assert.Equal(t, -30.0, s.Get(telemetry.AWA))
	assert.Equal(t, 5.0, s.Get(telemetry.AWS))
}

func TestParse_InstrumentSentences(t *testing.T) {
	mock := clock.NewMock()
	store := telemetry.NewDefaultStore(telemetry.DefaultResponse, telemetry.WithClock(mock))
	p := NewParser(store, WithParserClock(mock), WithDepthToTransducer(0.5))

	_, err := p.Parse(sentence("IIDBT,32.8,f,10.0,M,5.5,F"))
	require.NoError(t, err)
	assert.Equal(t, 10.5, store.Get(telemetry.Depth))

	_, err = p.Parse(sentence("IIHDM,123.4,M"))
	require.NoError(t, err)
	assert.Equal(t, 123.4, store.Get(telemetry.HDG))

	_, err = p.Parse(sentence("IIHDT,200.0,T"))
	require.NoError(t, err)
	assert.Equal(t, 200.0, store.Get(telemetry.HDT))

	_, err = p.Parse(sentence("WIMDA,29.92,I,1.013,B,68.0,F,15.0,C,55,"))
	require.NoError(t, err)
	assert.InDelta(t, 101300, store.Get(telemetry.Barometer), 1e-6)
	assert.InDelta(t, 20.0, store.Get(telemetry.TempAir), 1e-9)
	assert.Equal(t, 15.0, store.Get(telemetry.TempWater))
	assert.Equal(t, 55.0, store.Get(telemetry.Humidity))

	_, err = p.Parse(sentence("IIMTW,50.0,F"))
	require.NoError(t, err)
	assert.InDelta(t, 10.0, store.Get(telemetry.TempWater), 1e-9)

	_, err = p.Parse(sentence("IIVHW,10.0,T,12.0,M,6.5,N,12.0,K"))
	require.NoError(t, err)
	assert.Equal(t, 10.0, store.Get(telemetry.HDT))
	assert.Equal(t, 12.0, store.Get(telemetry.HDG))
	assert.Equal(t, 6.5, store.Get(telemetry.VTW))

	_, err = p.Parse(sentence("IIVLW,1234.5,N,12.25,N"))
	require.NoError(t, err)
	assert.Equal(t, 1234.5, store.Get(telemetry.Log))
	assert.Equal(t, 12.25, store.Get(telemetry.LogR))

	_, err = p.Parse(sentence("IIVPW,4.2,N,,M"))
	require.NoError(t, err)
	assert.Equal(t, 4.2, store.Get(telemetry.VMG))

	_, err = p.Parse(sentence("GPWCV,3.3,N,WP1"))
	require.NoError(t, err)
	assert.Equal(t, 3.3, store.Get(telemetry.VMGWP))

	_, err = p.Parse(sentence("GPXTE,A,A,0.67,L,N"))
	require.NoError(t, err)
	assert.Equal(t, -0.67, store.Get(telemetry.XTE))
}

func TestParse_RMB(t *testing.T) {
	p, _ := newTestParser(t)
	s := p.Store()
	_, err := p.Parse(sentence("GPRMB,A,0.66,L,003,004,4917.24,N,12309.57,W,001.3,052.5,000.5,V"))
	require.NoError(t, err)
	r := p.Record()
	assert.Equal(t, "003", r.ToWaypoint)
	assert.Equal(t, "004", r.FromWaypoint)
	assert.Equal(t, -0.66, s.Get(telemetry.XTE))
	assert.InDelta(t, 49.287333, s.Get(telemetry.LatWP), 1e-6)
	assert.InDelta(t, -123.1595, s.Get(telemetry.LonWP), 1e-6)
	assert.Equal(t, 1.3, s.Get(telemetry.DistWP))
	assert.Equal(t, 52.5, s.Get(telemetry.COGWP))
	assert.Equal(t, 0.5, s.Get(telemetry.VMGWP))

	_, err = p.Parse(sentence("GPRMB,A,0.66,L,005,006,4917.24,Q,12309.57,W,001.3,052.5,000.5,V"))
	require.ErrorIs(t, err, ErrBadHemisphere)
	assert.Equal(t, "003", p.Record().ToWaypoint)
}

func TestParse_RMBSwappedAxes(t *testing.T) {
	p, _ := newTestParser(t)
	for _, body := range []string{
		"GPRMB,A,0.66,L,003,004,4917.24,E,00830.00,N,001.3,052.5,000.5,V",
		"GPRMB,A,0.66,L,003,004,4917.24,N,00830.00,S,001.3,052.5,000.5,V",
	} {
		_, err := p.Parse(sentence(body))
		require.ErrorIs(t, err, ErrBadHemisphere, body)
	}
	assert.Equal(t, 0.0, p.Store().Get(telemetry.LatWP))
	assert.Equal(t, 0.0, p.Store().Get(telemetry.LonWP))
	assert.Empty(t, p.Record().ToWaypoint)
}

func TestParse_SecondsSince(t *testing.T) {
	p, mock := newTestParser(t)
	require.Equal(t, -1.0, p.SecondsSinceFix())

	_, err := p.Parse([]byte(ggaLine))
	require.NoError(t, err)
	mock.Add(3 * time.Second)
	assert.InDelta(t, 3.0, p.SecondsSinceFix(), 1e-9)
	assert.InDelta(t, 3.0, p.SecondsSinceTime(), 1e-9)
	assert.Equal(t, -1.0, p.SecondsSinceDate())
	assert.Equal(t, mock.Now().Add(-3*time.Second), p.LastUpdate())
}

func TestParseAt_UsesSentTime(t *testing.T) {
	p, mock := newTestParser(t)
	sent := mock.Now()
	mock.Add(2 * time.Second)
	_, err := p.ParseAt([]byte(ggaLine), sent)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, p.SecondsSinceFix(), 1e-9)
}

func TestBuild_Unsupported(t *testing.T) {
	_, err := Build("GP", "GSV", Record{}, telemetry.NewDefaultStore(0), BuildOptions{})
	require.Error(t, err)
}

func TestBuild_InstrumentSentencesParseBack(t *testing.T) {
	src := telemetry.NewDefaultStore(0)
	require.NoError(t, src.Set(telemetry.HDG, 91))
	require.NoError(t, src.Set(telemetry.HDT, 95))
	require.NoError(t, src.Set(telemetry.AWA, -40))
	require.NoError(t, src.Set(telemetry.AWS, 12))
	require.NoError(t, src.Set(telemetry.Depth, 7.5))

	p, _ := newTestParser(t)
	for _, tc := range []struct {
		typ string
		ref byte
	}{{"HDM", 0}, {"HDT", 0}, {"MWV", 'R'}, {"DBT", 0}} {
		s, err := Build("II", tc.typ, Record{}, src, BuildOptions{Ref: tc.ref})
		require.NoError(t, err)
		_, err = p.Parse([]byte(s))
		require.NoError(t, err, "sentence %q", s)
	}
	dst := p.Store()
	assert.InDelta(t, 91, dst.Get(telemetry.HDG), 1e-6)
	assert.InDelta(t, 95, dst.Get(telemetry.HDT), 1e-6)
	assert.InDelta(t, -40, dst.Get(telemetry.AWA), 1e-6)
	assert.InDelta(t, 12, dst.Get(telemetry.AWS), 1e-6)
	assert.InDelta(t, 7.5, dst.Get(telemetry.Depth), 1e-6)
}

func TestBuild_PropertyCoordinateRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lat := rapid.Float64Range(-90, 90).Draw(t, "lat")
		lon := rapid.Float64Range(-180, 180).Draw(t, "lon")
		typ := rapid.SampledFrom([]string{"GGA", "GLL", "RMC"}).Draw(t, "type")

		rec := Record{Latitude: EncodeCoord(lat, true), Longitude: EncodeCoord(lon, false)}
		s, err := Build("GP", typ, rec, nil, BuildOptions{})
		if err != nil {
			t.Fatalf("build: %v", err)
		}

		p := NewParser(nil)
		if _, err := p.Parse([]byte(s)); err != nil {
			t.Fatalf("parse %q: %v", s, err)
		}
		got := p.Record()
		if math.Abs(got.Latitude.Degrees-lat) > 1e-5 || math.Abs(got.Longitude.Degrees-lon) > 1e-5 {
			t.Fatalf("%q: got %f,%f want %f,%f", s, got.Latitude.Degrees, got.Longitude.Degrees, lat, lon)
		}
	})
}
