package replay

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSleeper struct {
	slept []time.Duration
}

func (fs *fakeSleeper) Sleep(d time.Duration) {
	fs.slept = append(fs.slept, d)
}

func TestReaderReadAll(t *testing.T) {
	in := strings.NewReader(`
# comment

START
0, 2447
10, 50 47
`)
	recs, err := NewReader(in).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].IsStart())
	assert.Equal(t, []byte("$G"), recs[1].Data)
	assert.Equal(t, 10*time.Nanosecond, recs[2].At)
	assert.Equal(t, []byte("PG"), recs[2].Data)
}

func TestReaderReadAll_Invalid(t *testing.T) {
	for _, in := range []string{
		"not-a-valid-line\n",
		"10,\n",
		"-5,00\n",
		"x,00\n",
		"0,zz\n",
	} {
		_, err := NewReader(strings.NewReader(in)).ReadAll()
		assert.Error(t, err, "input %q", in)
	}
	_, err := NewReader(strings.NewReader("START\n0,00\nbad\n")).ReadAll()
	require.ErrorContains(t, err, "line 3")
}

func TestPlay_RespectsTimingAndStart(t *testing.T) {
	var got []string
	fs := &fakeSleeper{}
	recs := []Record{
		{At: time.Second},
		{At: time.Second, Data: []byte("a")},
		{At: time.Second + 100*time.Millisecond, Data: []byte("b")},
		{At: 2 * time.Second},
		{At: 2*time.Second + 50*time.Millisecond, Data: []byte("c")},
	}
	err := Play(recs, 2, false, fs, func(d []byte) error {
		got = append(got, string(d))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, fs.slept)
}

func TestPlay_Errors(t *testing.T) {
	cb := func([]byte) error { return nil }
	recs := []Record{{Data: []byte("x")}}
	assert.Error(t, Play(recs, 0, false, nil, cb))
	assert.Error(t, Play(recs, 1, false, nil, nil))
	assert.Error(t, Play(nil, 1, false, nil, cb))

	boom := errors.New("boom")
	assert.ErrorIs(t, Play(recs, 1, false, nil, func([]byte) error { return boom }), boom)
}

func TestPlay_LoopStopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := Play([]Record{{Data: []byte("x")}}, 1, true, &fakeSleeper{}, func([]byte) error {
		n++
		if n == 5 {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, 5, n)
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.log")
	clk := clock.NewMock()
	w, err := CreateWriter(path, clk)
	require.NoError(t, err)

	chunks := []string{"$GPGGA,1235", "19,4807.038,N*47\r\n", "$PMTK010,002*2D\r\n"}
	for _, c := range chunks {
		n, err := w.Write([]byte(c))
		require.NoError(t, err)
		require.Equal(t, len(c), n)
		clk.Add(250 * time.Millisecond)
	}
	n, err := w.Write(nil)
	require.NoError(t, err)
	require.Zero(t, n)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("late"))
	require.Error(t, err)

	recs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	assert.True(t, recs[0].IsStart())
	assert.Equal(t, 500*time.Millisecond, recs[3].At)

	var out []string
	fs := &fakeSleeper{}
	require.NoError(t, Play(recs, 1, false, fs, func(d []byte) error {
		out = append(out, string(d))
		return nil
	}))
	assert.Equal(t, chunks, out)
	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, fs.slept)
}
