package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"tend-cli/internal/model"
)

var (
	reEveryUnit = regexp.MustCompile(`(?i)\bevery\s+(day|week|month|year|hour|minute)\b`)
	reEveryN    = regexp.MustCompile(`(?i)\bevery\s+(\d+)\s+(minutes?|hours?)\b`)
	reAdverb    = regexp.MustCompile(`(?i)\b(daily|weekly|monthly|yearly|annually|hourly)\b`)
	reEveryWday = regexp.MustCompile(`(?i)\bevery\s+(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
)

var unitFreq = map[string]model.Frequency{
	"day":    model.FreqDaily,
	"week":   model.FreqWeekly,
	"month":  model.FreqMonthly,
	"year":   model.FreqYearly,
	"hour":   model.FreqHourly,
	"minute": model.FreqMinutely,
}

var adverbFreq = map[string]model.Frequency{
	"daily":    model.FreqDaily,
	"weekly":   model.FreqWeekly,
	"monthly":  model.FreqMonthly,
	"yearly":   model.FreqYearly,
	"annually": model.FreqYearly,
	"hourly":   model.FreqHourly,
}

// ParseRecurrence extracts a recurrence rule from free text, or reports false
// when the text carries none. The matched text is preserved on the result so
// quick-add can strip it from the title.
func ParseRecurrence(now time.Time, text string) (model.Recurrence, bool) {
	rec, ok := findRecurrence(text)
	if !ok {
		return model.Recurrence{}, false
	}

	// An "at <time>" mention attaches as the recurrence's time of day.
	if tm, ok := findTime(text); ok {
		h := inferHour(now, now.AddDate(0, 0, 1), tm.hour, tm.minute, tm.meridiem)
		rec.TimeOfDay = fmt.Sprintf("%02d:%02d", h, tm.minute)
		rec.Text = strings.TrimSpace(rec.Text + " " + tm.text)
	}
	return rec, true
}

func findRecurrence(text string) (model.Recurrence, bool) {
	if loc := reEveryN.FindStringSubmatchIndex(text); loc != nil {
		sub := reEveryN.FindStringSubmatch(text)
		n, _ := strconv.Atoi(sub[1])
		if n < 1 {
			n = 1
		}
		freq := model.FreqMinutely
		if strings.HasPrefix(strings.ToLower(sub[2]), "hour") {
			freq = model.FreqHourly
		}
		return model.Recurrence{Frequency: freq, Interval: n, Text: text[loc[0]:loc[1]]}, true
	}
	if loc := reEveryWday.FindStringSubmatchIndex(text); loc != nil {
		// Weekday-specific repetition is weekly; the weekday survives in Text.
		return model.Recurrence{Frequency: model.FreqWeekly, Text: text[loc[0]:loc[1]]}, true
	}
	if loc := reEveryUnit.FindStringSubmatchIndex(text); loc != nil {
		sub := reEveryUnit.FindStringSubmatch(text)
		freq := unitFreq[strings.ToLower(sub[1])]
		rec := model.Recurrence{Frequency: freq, Text: text[loc[0]:loc[1]]}
		if freq.IntervalBased() {
			rec.Interval = 1
		}
		return rec, true
	}
	if loc := reAdverb.FindStringIndex(text); loc != nil {
		word := strings.ToLower(text[loc[0]:loc[1]])
		freq := adverbFreq[word]
		rec := model.Recurrence{Frequency: freq, Text: text[loc[0]:loc[1]]}
		if freq.IntervalBased() {
			rec.Interval = 1
		}
		return rec, true
	}
	return model.Recurrence{}, false
}
