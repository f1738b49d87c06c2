package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuffix_CompactDate(t *testing.T) {
	t.Parallel()

	key, ok := ParseSuffix("20250923")
	require.True(t, ok)
	assert.Equal(t, KindDate, key.Kind)
	assert.Equal(t, []int{2025, 9, 23, 0, 0}, key.Parts)
}

func TestParseSuffix_CompactDateWithLetter(t *testing.T) {
	t.Parallel()

	key, ok := ParseSuffix("20250923b")
	require.True(t, ok)
	assert.Equal(t, []int{2025, 9, 23, 2, 0}, key.Parts)
}

func TestParseSuffix_CompactDateWithSubNumber(t *testing.T) {
	t.Parallel()

	key, ok := ParseSuffix("20250909_1")
	require.True(t, ok)
	assert.Equal(t, []int{2025, 9, 9, 0, 1}, key.Parts)
}

func TestParseSuffix_ShortDate(t *testing.T) {
	t.Parallel()

	key, ok := ParseSuffix("250507")
	require.True(t, ok)
	assert.Equal(t, KindDate, key.Kind)
	assert.Equal(t, []int{2025, 5, 7, 0, 0}, key.Parts)
}

func TestParseSuffix_SeparatorDates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		suffix string
		parts  []int
	}{
		// First segment above 12 forces YY-MM-DD.
		{"22-08-01", []int{2022, 8, 1, 0, 0}},
		// Second segment above 12 forces MM-DD-YY.
		{"02-27-21", []int{2021, 2, 27, 0, 0}},
		{"8-14-21", []int{2021, 8, 14, 0, 0}},
		// Third segment above 23 reads as a day, YY-MM-DD.
		{"03-04-28", []int{2003, 4, 28, 0, 0}},
		// Ambiguous, defaults to MM-DD-YY.
		{"03-04-21", []int{2021, 3, 4, 0, 0}},
		// Underscore separators behave the same.
		{"22_08_01", []int{2022, 8, 1, 0, 0}},
		// Four-digit year in third position.
		{"02-27-2021", []int{2021, 2, 27, 0, 0}},
	}

	for _, tt := range tests {
		key, ok := ParseSuffix(tt.suffix)
		require.True(t, ok, "suffix %q should parse", tt.suffix)
		assert.Equal(t, KindDate, key.Kind, tt.suffix)
		assert.Equal(t, tt.parts, key.Parts, tt.suffix)
	}
}

func TestParseSuffix_SeparatorDateInvalidMonth(t *testing.T) {
	t.Parallel()

	// 13-25-21: first segment forces YY-MM-DD, but month 25 is invalid.
	_, ok := ParseSuffix("13-25-21")
	assert.False(t, ok)
}

func TestParseSuffix_Sequence(t *testing.T) {
	t.Parallel()

	key, ok := ParseSuffix("0035")
	require.True(t, ok)
	assert.Equal(t, KindSequence, key.Kind)
	assert.Equal(t, []int{35}, key.Parts)
}

func TestParseSuffix_TwoDigitNumberRejected(t *testing.T) {
	t.Parallel()

	// Two digits is too short for a sequence and not a valid date.
	_, ok := ParseSuffix("35")
	assert.False(t, ok)
}

func TestParseSuffix_DottedVersion(t *testing.T) {
	t.Parallel()

	key, ok := ParseSuffix("2.3.1")
	require.True(t, ok)
	assert.Equal(t, KindVersion, key.Kind)
	assert.Equal(t, []int{2, 3, 1}, key.Parts)
}

func TestParseSuffix_VPrefix(t *testing.T) {
	t.Parallel()

	for _, suffix := range []string{"v10", "V10"} {
		key, ok := ParseSuffix(suffix)
		require.True(t, ok, suffix)
		assert.Equal(t, KindVersion, key.Kind)
		assert.Equal(t, []int{10}, key.Parts)
	}
}

func TestParseSuffix_Garbage(t *testing.T) {
	t.Parallel()

	for _, suffix := range []string{"final", "backup2", "v1.2b", "2025-13-40", ""} {
		_, ok := ParseSuffix(suffix)
		assert.False(t, ok, "suffix %q should not parse", suffix)
	}
}

func TestKey_Less_CrossKind(t *testing.T) {
	t.Parallel()

	ver, _ := ParseSuffix("v2")
	seq, _ := ParseSuffix("0001")
	date, _ := ParseSuffix("20200101")

	assert.True(t, ver.Less(seq))
	assert.True(t, seq.Less(date))
	assert.False(t, date.Less(ver))
}

func TestKey_Less_WithinDates(t *testing.T) {
	t.Parallel()

	plain, _ := ParseSuffix("20250923")
	lettered, _ := ParseSuffix("20250923b")
	sub, _ := ParseSuffix("20250923_1")

	// A letterless snapshot precedes its lettered siblings on the same day.
	assert.True(t, plain.Less(lettered))
	// letter ordinal 0 with sub-number 1 still follows the plain snapshot.
	assert.True(t, plain.Less(sub))
	assert.True(t, sub.Less(lettered))
}

func TestKey_Less_VersionPrefix(t *testing.T) {
	t.Parallel()

	short, _ := ParseSuffix("1.0")
	long, _ := ParseSuffix("1.0.1")

	// The shorter version tuple sorts first.
	assert.True(t, short.Less(long))
	assert.False(t, long.Less(short))
}
