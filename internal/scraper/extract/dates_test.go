package extract

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func TestParseDeadlineFormatInvariance(t *testing.T) {
	want := time.Date(2025, time.September, 8, 23, 59, 59, 0, time.UTC)

	inputs := []string{
		"8 September 2025",
		"2025-09-08",
		"September 8, 2025",
		"Sep 8, 2025",
		"08/09/2025",
		"8th September 2025",
		"Deadline: 8 September 2025",
	}

	for _, input := range inputs {
		got := ParseDeadline(input, testNow)
		require.NotNil(t, got, "input %q", input)
		assert.Equal(t, want, *got, "input %q", input)
	}
}

func TestParseDeadlineDayFirstNumeric(t *testing.T) {
	got := ParseDeadline("25/12/2025", testNow)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.December, 25, 23, 59, 59, 0, time.UTC), *got)
}

func TestParseDeadlineEndOfDay(t *testing.T) {
	got := ParseDeadline("2025-07-01", testNow)
	require.NotNil(t, got)
	assert.Equal(t, 23, got.Hour())
	assert.Equal(t, 59, got.Minute())
	assert.Equal(t, 59, got.Second())
}

func TestParseDeadlineSanityWindow(t *testing.T) {
	assert.Nil(t, ParseDeadline("2020-01-01", testNow), "far past rejected")
	assert.Nil(t, ParseDeadline("2030-01-01", testNow), "far future rejected")

	// A deadline a few months back is kept so the posting can be marked
	// expired instead of silently dropped.
	recent := ParseDeadline("2025-01-10", testNow)
	require.NotNil(t, recent)
}

func TestParseDeadlineMonthWithoutYear(t *testing.T) {
	// March has passed relative to testNow, so it resolves to next year.
	got := ParseDeadline("15 March", testNow)
	require.NotNil(t, got)
	assert.Equal(t, 2026, got.Year())
	assert.Equal(t, time.March, got.Month())

	// September is still ahead, so it stays in the current year.
	got = ParseDeadline("1 September", testNow)
	require.NotNil(t, got)
	assert.Equal(t, 2025, got.Year())
}

func TestParseDeadlineGarbage(t *testing.T) {
	assert.Nil(t, ParseDeadline("", testNow))
	assert.Nil(t, ParseDeadline("apply as soon as possible", testNow))
	assert.Nil(t, ParseDeadline("N/A", testNow))
}

func TestFindDeadlineInText(t *testing.T) {
	text := "We are hiring a backend engineer. Applications close on 20 August 2025. Send your CV."
	got := FindDeadlineInText(text, testNow)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.August, 20, 23, 59, 59, 0, time.UTC), *got)
}

func TestFindDeadlineInTextNoKeyword(t *testing.T) {
	text := "The company was founded on 20 August 2001 and has grown ever since."
	assert.Nil(t, FindDeadlineInText(text, testNow))
}

func TestFindDeadlineIgnoresDistantDate(t *testing.T) {
	// Date beyond the lookahead window past the keyword must not be picked up.
	long := "Deadline: " + strings.Repeat("x", 100) + " 20 August 2025"
	assert.Nil(t, FindDeadlineInText(long, testNow))
}

func TestParsePostedDateAbsolute(t *testing.T) {
	got := ParsePostedDate("12 June 2025", testNow)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC), *got)
}

func TestParsePostedDateRelative(t *testing.T) {
	got := ParsePostedDate("2 days ago", testNow)
	require.NotNil(t, got)
	assert.Equal(t, testNow.Add(-48*time.Hour), *got)

	got = ParsePostedDate("posted 3 hours ago", testNow)
	require.NotNil(t, got)
	assert.Equal(t, testNow.Add(-3*time.Hour), *got)
}

func TestParsePostedDateTodayAndYesterday(t *testing.T) {
	for _, text := range []string{"Today", "Posted today", "just now"} {
		got := ParsePostedDate(text, testNow)
		require.NotNil(t, got, "text %q", text)
		assert.Equal(t, testNow, *got, "text %q", text)
	}

	got := ParsePostedDate("Yesterday", testNow)
	require.NotNil(t, got)
	assert.Equal(t, testNow.Add(-24*time.Hour), *got)
}

func TestParsePostedDateStripsFeaturedBadge(t *testing.T) {
	got := ParsePostedDate("Featured 12 June 2025", testNow)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.June, 12, 0, 0, 0, 0, time.UTC), *got)
}

func TestParsePostedDateRejectsFuture(t *testing.T) {
	assert.Nil(t, ParsePostedDate("1 January 2026", testNow))
}

func TestParseDeadlineDatetimeAttribute(t *testing.T) {
	got := ParseDeadline("2025-09-08T00:00:00", testNow)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, time.September, 8, 23, 59, 59, 0, time.UTC), *got)
}
