package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"jobharvest/pkg/utils"
)

// dateLayouts are the explicit formats tried against candidate date text.
// Numeric slash/dash dates on the supported boards are day-first.
var dateLayouts = []string{
	"2 January 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
}

// monthDayLayouts match dates that omit the year.
var monthDayLayouts = []string{
	"2 January",
	"January 2",
	"2 Jan",
	"Jan 2",
}

var (
	deadlineKeywords = regexp.MustCompile(`(?i)(?:deadline|closing date|apply (?:by|before)|applications? close[sd]?|expires?(?: on)?|not later than)[:\s]*`)

	// dateToken matches a plausible date chunk following a keyword.
	dateToken = regexp.MustCompile(`(?i)(\d{1,2}[\s/.-](?:\d{1,2}|[A-Za-z]+)[\s/.,-]*\d{2,4}|[A-Za-z]+\s+\d{1,2},?\s*\d{0,4}|\d{4}-\d{2}-\d{2})`)

	relativeDate = regexp.MustCompile(`(?i)(\d+)\s+(minute|hour|day|week|month)s?\s+ago`)

	ordinalSuffix = regexp.MustCompile(`(?i)(\d{1,2})(st|nd|rd|th)`)

	// postedLabel strips board badges like "Featured" that prefix listing
	// dates.
	postedLabel = regexp.MustCompile(`(?i)^(?:featured|posted(?: on)?|published|date posted)[:\s]*`)
)

// ParseDeadline turns free-form deadline text into a concrete timestamp at
// 23:59:59 local time. Dates outside a sanity window of one year back to two
// years ahead of now are rejected. A month and day without a year resolve to
// their next future occurrence.
func ParseDeadline(text string, now time.Time) *time.Time {
	candidate := normalizeDateText(text)
	if candidate == "" {
		return nil
	}

	if t, ok := parseAbsolute(candidate, now.Location()); ok {
		deadline := utils.EndOfDay(t)
		if withinSanityWindow(deadline, now) {
			return &deadline
		}
		return nil
	}

	if t, ok := parseMonthDay(candidate, now); ok {
		deadline := utils.EndOfDay(t)
		return &deadline
	}

	return nil
}

// FindDeadlineInText scans page text for a deadline keyword followed by a
// date. Used when no deadline selector matched.
func FindDeadlineInText(text string, now time.Time) *time.Time {
	loc := deadlineKeywords.FindStringIndex(text)
	if loc == nil {
		return nil
	}

	// Only look just past the keyword; a date three paragraphs later is
	// probably unrelated.
	tail := text[loc[1]:]
	if len(tail) > 80 {
		tail = tail[:80]
	}

	m := dateToken.FindString(tail)
	if m == "" {
		return nil
	}
	return ParseDeadline(m, now)
}

// ParsePostedDate parses posting date text, including relative phrasing like
// "3 days ago". Future posted dates are rejected.
func ParsePostedDate(text string, now time.Time) *time.Time {
	text = postedLabel.ReplaceAllString(strings.TrimSpace(text), "")

	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "today") || strings.Contains(lowered, "just now") {
		t := now
		return &t
	}
	if strings.Contains(lowered, "yesterday") {
		t := now.Add(-24 * time.Hour)
		return &t
	}

	if m := relativeDate.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		var d time.Duration
		switch strings.ToLower(m[2]) {
		case "minute":
			d = time.Duration(n) * time.Minute
		case "hour":
			d = time.Duration(n) * time.Hour
		case "day":
			d = time.Duration(n) * 24 * time.Hour
		case "week":
			d = time.Duration(n) * 7 * 24 * time.Hour
		case "month":
			d = time.Duration(n) * 30 * 24 * time.Hour
		}
		t := now.Add(-d)
		return &t
	}

	candidate := normalizeDateText(text)
	if candidate == "" {
		return nil
	}

	if t, ok := parseAbsolute(candidate, now.Location()); ok {
		if t.After(now.Add(24 * time.Hour)) {
			return nil
		}
		return &t
	}
	return nil
}

func parseAbsolute(candidate string, loc *time.Location) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, candidate, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseMonthDay resolves a year-less date to its next future occurrence.
func parseMonthDay(candidate string, now time.Time) (time.Time, bool) {
	for _, layout := range monthDayLayouts {
		t, err := time.ParseInLocation(layout, candidate, now.Location())
		if err != nil {
			continue
		}
		resolved := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
		if utils.EndOfDay(resolved).Before(now) {
			resolved = resolved.AddDate(1, 0, 0)
		}
		return resolved, true
	}
	return time.Time{}, false
}

func withinSanityWindow(t, now time.Time) bool {
	return t.After(now.AddDate(-1, 0, 0)) && t.Before(now.AddDate(2, 0, 0))
}

// normalizeDateText strips labels, ordinals and noise so the layouts can
// match.
func normalizeDateText(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}

	s = deadlineKeywords.ReplaceAllString(s, "")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, ",", ", ")
	s = utils.CollapseWhitespace(s)
	s = strings.Trim(s, " .:;")

	// "2025-09-08T00:00:00" from datetime attributes.
	if i := strings.IndexAny(s, "T"); i == 10 && strings.Count(s[:10], "-") == 2 {
		s = s[:10]
	}

	// Fix double spaces introduced by comma normalization.
	s = utils.CollapseWhitespace(s)
	return s
}
