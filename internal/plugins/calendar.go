package plugins

import (
	"fmt"
	"regexp"
	"time"
)

// CalendarPlugin answers date and time queries from the local clock. An empty
// result means the query did not match any date/time pattern.
type CalendarPlugin struct {
	now func() time.Time
}

// NewCalendarPlugin constructs the calendar plugin.
func NewCalendarPlugin() *CalendarPlugin {
	return &CalendarPlugin{now: time.Now}
}

// NewCalendarPluginWithClock constructs a calendar plugin with a fixed clock,
// for tests.
func NewCalendarPluginWithClock(now func() time.Time) *CalendarPlugin {
	return &CalendarPlugin{now: now}
}

const (
	dateLayout = "Monday, January 2, 2006"
	timeLayout = "3:04:05 PM MST"
)

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what(?:'s| is)? (?:the )?(?:current |today'?s? )?date`),
	regexp.MustCompile(`(?i)what (?:day|date) is (?:it|today)`),
	regexp.MustCompile(`(?i)today'?s date`),
	regexp.MustCompile(`(?i)what day of the week is it`),
	regexp.MustCompile(`(?i)tell me (?:the )?(?:current )?date`),
	regexp.MustCompile(`(?i)show (?:me )?(?:the )?date`),
}

var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)what(?:'s| is)? (?:the )?(?:current )?time`),
	regexp.MustCompile(`(?i)what time is it`),
	regexp.MustCompile(`(?i)tell me (?:the )?(?:current )?time`),
	regexp.MustCompile(`(?i)show (?:me )?(?:the )?time`),
	regexp.MustCompile(`(?i)current time`),
	regexp.MustCompile(`(?i)time now`),
	regexp.MustCompile(`(?i)local time`),
	regexp.MustCompile(`(?i)(?:get|check)(?: the)? time`),
}

var dateTimePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)current date(?:\s+and|\s+&)?\s+time`),
	regexp.MustCompile(`(?i)date(?:\s+and|\s+&)?\s+time`),
	regexp.MustCompile(`(?i)time(?:\s+and|\s+&)?\s+date`),
	regexp.MustCompile(`(?i)tell me (?:the )?date and time`),
}

var (
	genericTime = regexp.MustCompile(`(?i)time`)
	genericDate = regexp.MustCompile(`(?i)date|day|calendar`)
)

// Answer formats the current date/time for a matching query. Specific
// patterns win over generic keyword matches; combined date-and-time is checked
// first because it is the most specific.
func (p *CalendarPlugin) Answer(query string) string {
	now := p.now()

	if matchAny(dateTimePatterns, query) {
		return fmt.Sprintf("Current date and time: %s at %s",
			now.Format(dateLayout), now.Format(timeLayout))
	}
	if matchAny(timePatterns, query) {
		return fmt.Sprintf("The current time is %s", now.Format(timeLayout))
	}
	if matchAny(datePatterns, query) {
		return fmt.Sprintf("Today is %s", now.Format(dateLayout))
	}
	if genericTime.MatchString(query) {
		return fmt.Sprintf("The current time is %s", now.Format(timeLayout))
	}
	if genericDate.MatchString(query) {
		return fmt.Sprintf("Today is %s and the time is %s",
			now.Format(dateLayout), now.Format(timeLayout))
	}

	return ""
}

func matchAny(patterns []*regexp.Regexp, query string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(query) {
			return true
		}
	}
	return false
}
