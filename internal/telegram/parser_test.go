package telegram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tina/internal/eew"
)

func testDictionaries() *Dictionaries {
	return NewDictionaries(
		map[string]string{"287": "宮城県沖", "123": "奈良県"},
		map[string]string{"100": "東京都", "200": "大阪府"},
	)
}

// blank builds a filler buffer of n bytes of spaces, long enough to hold
// every fixed-offset field a test needs to set explicitly.
func blank(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return b
}

func set(b []byte, offset int, s string) {
	copy(b[offset:], s)
}

func baseNonCancelTelegram() []byte {
	b := blank(140)
	set(b, 0, "36")                // LowAccuracy
	set(b, 3, "03")                // Tokyo
	set(b, 6, "00")                // Normal
	set(b, 9, "130804122905")      // issued_at
	set(b, 24, "1")                // not split
	set(b, 26, "130804122849")     // occurred_at
	set(b, 39, "ND20130804122902") // id (16 chars)
	set(b, 59, "0")                // Normal status
	set(b, 60, "01")               // number
	set(b, 86, "287")              // epicenter code
	set(b, 90, "N380")             // lat
	set(b, 95, "E1420")            // lon
	set(b, 101, "010")             // depth
	set(b, 105, "59")              // magnitude
	set(b, 108, "04")              // max intensity
	set(b, 113, "/")               // epicenter accuracy unknown
	set(b, 114, "/")               // depth accuracy unknown
	set(b, 115, "/")               // magnitude accuracy unknown
	set(b, 121, "0")               // epicenter category land
	set(b, 122, "0")               // warning status forecast
	set(b, 123, "0")               // plum off
	set(b, 129, "0")               // intensity change same
	set(b, 130, "0")               // change reason nothing
	return b
}

func TestParseCancel(t *testing.T) {
	b := blank(140)
	set(b, 0, "39")                // Cancel
	set(b, 3, "03")                // Tokyo
	set(b, 6, "10")                // Cancel kind
	set(b, 9, "120108133217")      // issued_at
	set(b, 24, "1")
	set(b, 26, "120108133154")     // occurred_at
	set(b, 39, "ND20120108133201")
	set(b, 59, "0")
	set(b, 60, "03")

	ev, err := Parse(b, testDictionaries())
	require.NoError(t, err)
	assert.Equal(t, eew.IssuePatternCancel, ev.IssuePattern)
	assert.Equal(t, eew.SourceTokyo, ev.Source)
	assert.Equal(t, eew.KindCancel, ev.Kind)
	assert.Equal(t, "ND20120108133201", ev.ID)
	assert.Equal(t, eew.StatusNormal, ev.Status)
	assert.EqualValues(t, 3, ev.Number)
	assert.Nil(t, ev.Detail)
	assert.Equal(t, time.Date(2012, 1, 8, 4, 32, 17, 0, time.UTC), ev.IssuedAt)
	assert.Equal(t, time.Date(2012, 1, 8, 4, 31, 54, 0, time.UTC), ev.OccurredAt)
}

func TestParseNormalWithoutEBI(t *testing.T) {
	b := baseNonCancelTelegram()

	ev, err := Parse(b, testDictionaries())
	require.NoError(t, err)
	require.NotNil(t, ev.Detail)
	assert.Equal(t, eew.IssuePatternLowAccuracy, ev.IssuePattern)
	assert.Equal(t, "宮城県沖", ev.Detail.EpicenterName)
	assert.InDelta(t, 38.0, ev.Detail.Latitude, 1e-6)
	assert.InDelta(t, 142.0, ev.Detail.Longitude, 1e-6)
	require.NotNil(t, ev.Detail.Depth)
	assert.InDelta(t, 10.0, *ev.Detail.Depth, 1e-6)
	require.NotNil(t, ev.Detail.Magnitude)
	assert.InDelta(t, 5.9, *ev.Detail.Magnitude, 1e-6)
	require.NotNil(t, ev.Detail.MaximumIntensity)
	assert.Equal(t, eew.IntensityFour, *ev.Detail.MaximumIntensity)
}

func TestParseSouthWestSigns(t *testing.T) {
	b := baseNonCancelTelegram()
	set(b, 90, "S380")
	set(b, 95, "W1420")

	ev, err := Parse(b, testDictionaries())
	require.NoError(t, err)
	assert.InDelta(t, -38.0, ev.Detail.Latitude, 1e-6)
	assert.InDelta(t, -142.0, ev.Detail.Longitude, 1e-6)
}

func TestParseAbsentOptionalFields(t *testing.T) {
	b := baseNonCancelTelegram()
	set(b, 101, "///")
	set(b, 105, "//")
	set(b, 108, "//")

	ev, err := Parse(b, testDictionaries())
	require.NoError(t, err)
	assert.Nil(t, ev.Detail.Depth)
	assert.Nil(t, ev.Detail.Magnitude)
	assert.Nil(t, ev.Detail.MaximumIntensity)
}

func TestParseEBI(t *testing.T) {
	b := blank(200)
	copy(b, baseNonCancelTelegram())
	set(b, 135, "EBI")

	// record 1: area "100", left=03, right=// -> (minimum=Three, maximum=nil)
	rec1 := blank(ebiRecordLen)
	set(rec1, 1, "100")
	set(rec1, 6, "03")
	set(rec1, 8, "//")
	set(rec1, 11, "//////")
	set(rec1, 18, "0")
	set(rec1, 19, "0")
	copy(b[138:], rec1)

	// record 2: area "200", left=04 right=02 -> (minimum=Two, maximum=Four)
	rec2 := blank(ebiRecordLen)
	set(rec2, 1, "200")
	set(rec2, 6, "04")
	set(rec2, 8, "02")
	set(rec2, 11, "133210")
	set(rec2, 18, "1")
	set(rec2, 19, "1")
	copy(b[158:], rec2)

	// terminator record
	term := blank(ebiRecordLen)
	set(term, 1, "9999=")
	copy(b[178:], term)

	ev, err := Parse(b, testDictionaries())
	require.NoError(t, err)
	require.Len(t, ev.Detail.AreaInfo, 2)

	a1 := ev.Detail.AreaInfo[0]
	assert.Equal(t, "東京都", a1.AreaName)
	assert.Equal(t, eew.IntensityThree, a1.MinimumIntensity)
	assert.Nil(t, a1.MaximumIntensity)
	assert.Nil(t, a1.ReachAt)

	a2 := ev.Detail.AreaInfo[1]
	assert.Equal(t, "大阪府", a2.AreaName)
	assert.Equal(t, eew.IntensityTwo, a2.MinimumIntensity)
	require.NotNil(t, a2.MaximumIntensity)
	assert.Equal(t, eew.IntensityFour, *a2.MaximumIntensity)
	require.NotNil(t, a2.ReachAt)
}

func TestParseEBIMissingTerminatorIsPrematureEOS(t *testing.T) {
	b := blank(160)
	copy(b, baseNonCancelTelegram())
	set(b, 135, "EBI")
	rec := blank(ebiRecordLen)
	set(rec, 1, "100")
	set(rec, 6, "03")
	set(rec, 8, "//")
	set(rec, 11, "//////")
	set(rec, 18, "0")
	set(rec, 19, "0")
	copy(b[138:], rec)
	// no terminator follows, buffer ends right after the one record

	_, err := Parse(b, testDictionaries())
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrPrematureEOS, pe.Kind)
}

func TestParseTooShort(t *testing.T) {
	_, err := Parse(blank(50), testDictionaries())
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrTooShort, pe.Kind)
}

func TestParseInvalidPattern(t *testing.T) {
	b := baseNonCancelTelegram()
	set(b, 0, "99")
	_, err := Parse(b, testDictionaries())
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrInvalidPattern, pe.Kind)
}

func TestParseUnknownEpicenterCode(t *testing.T) {
	b := baseNonCancelTelegram()
	set(b, 86, "999")
	_, err := Parse(b, testDictionaries())
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrUnknownEpicenterCode, pe.Kind)
}

func TestParseSplitTelegramRejected(t *testing.T) {
	b := baseNonCancelTelegram()
	set(b, 24, "2")
	_, err := Parse(b, testDictionaries())
	require.Error(t, err)
	pe, ok := err.(*ParseError)
	require.True(t, ok)
	assert.Equal(t, ErrSplit, pe.Kind)
}
