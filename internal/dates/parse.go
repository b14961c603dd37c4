package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Match is one date mention extracted from free text.
type Match struct {
	Text string    // the matched substring(s)
	Date time.Time // resolved point in time
}

// Hour used when a day is mentioned without a time.
const defaultHour = 9

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	reRelDay   = regexp.MustCompile(`(?i)\b(today|tonight|tomorrow)\b`)
	reWeekday  = regexp.MustCompile(`(?i)\b(?:(next|this)\s+)?(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)
	reInN      = regexp.MustCompile(`(?i)\bin\s+(\d+)\s+(day|days|week|weeks)\b`)
	reMonthDay = regexp.MustCompile(`(?i)\b(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
	reISODate  = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

	reAtTime    = regexp.MustCompile(`(?i)\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	reClockTime = regexp.MustCompile(`(?i)\b(\d{1,2}):(\d{2})\s*(am|pm)?\b`)
	reBareMerid = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	reNamedTime = regexp.MustCompile(`(?i)\b(noon|midnight)\b`)
)

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

type dayMatch struct {
	text  string
	start int
	date  time.Time // midnight of the resolved day
}

type timeMatch struct {
	text     string
	start    int
	hour     int
	minute   int
	meridiem string // "am", "pm", or ""
}

// inferHour applies the ambiguous-hour rule: 1-7 default to PM, 8-11 default
// to AM unless that time already passed today (then PM), 12 defaults to noon.
func inferHour(now time.Time, day time.Time, hour, minute int, meridiem string) int {
	switch meridiem {
	case "am":
		if hour == 12 {
			return 0
		}
		return hour
	case "pm":
		if hour == 12 {
			return 12
		}
		return hour + 12
	}
	switch {
	case hour == 12:
		return 12
	case hour >= 1 && hour <= 7:
		return hour + 12
	case hour >= 8 && hour <= 11:
		sameDay := midnight(day).Equal(midnight(now))
		candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, now.Location())
		if sameDay && !candidate.After(now) {
			return hour + 12
		}
		return hour
	default:
		return hour
	}
}

func findDay(now time.Time, text string) (dayMatch, bool) {
	type candidate struct {
		m  dayMatch
		ok bool
	}
	var best candidate

	consider := func(m dayMatch) {
		if !best.ok || m.start < best.m.start {
			best = candidate{m: m, ok: true}
		}
	}

	if loc := reRelDay.FindStringIndex(text); loc != nil {
		word := strings.ToLower(text[loc[0]:loc[1]])
		d := midnight(now)
		if word == "tomorrow" {
			d = d.AddDate(0, 0, 1)
		}
		consider(dayMatch{text: text[loc[0]:loc[1]], start: loc[0], date: d})
	}
	if loc := reWeekday.FindStringSubmatchIndex(text); loc != nil {
		sub := reWeekday.FindStringSubmatch(text)
		wd := weekdays[strings.ToLower(sub[2])]
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			// A bare weekday name that matches today means next week;
			// "this <weekday>" means today.
			if !strings.EqualFold(sub[1], "this") {
				ahead = 7
			}
		}
		if strings.EqualFold(sub[1], "next") && ahead < 7 {
			ahead += 7
		}
		consider(dayMatch{text: text[loc[0]:loc[1]], start: loc[0], date: midnight(now).AddDate(0, 0, ahead)})
	}
	if loc := reInN.FindStringSubmatchIndex(text); loc != nil {
		sub := reInN.FindStringSubmatch(text)
		n, _ := strconv.Atoi(sub[1])
		if strings.HasPrefix(strings.ToLower(sub[2]), "week") {
			n *= 7
		}
		consider(dayMatch{text: text[loc[0]:loc[1]], start: loc[0], date: midnight(now).AddDate(0, 0, n)})
	}
	if loc := reMonthDay.FindStringSubmatchIndex(text); loc != nil {
		sub := reMonthDay.FindStringSubmatch(text)
		month := months[strings.ToLower(sub[1])]
		day, _ := strconv.Atoi(sub[2])
		year := now.Year()
		d := time.Date(year, month, clampDay(year, month, day), 0, 0, 0, 0, now.Location())
		if d.Before(midnight(now)) {
			year++
			d = time.Date(year, month, clampDay(year, month, day), 0, 0, 0, 0, now.Location())
		}
		consider(dayMatch{text: text[loc[0]:loc[1]], start: loc[0], date: d})
	}
	if loc := reISODate.FindStringSubmatchIndex(text); loc != nil {
		sub := reISODate.FindStringSubmatch(text)
		y, _ := strconv.Atoi(sub[1])
		mo, _ := strconv.Atoi(sub[2])
		d, _ := strconv.Atoi(sub[3])
		if mo >= 1 && mo <= 12 {
			consider(dayMatch{
				text:  text[loc[0]:loc[1]],
				start: loc[0],
				date:  time.Date(y, time.Month(mo), clampDay(y, time.Month(mo), d), 0, 0, 0, 0, now.Location()),
			})
		}
	}

	return best.m, best.ok
}

func findTime(text string) (timeMatch, bool) {
	type candidate struct {
		m  timeMatch
		ok bool
	}
	var best candidate

	consider := func(m timeMatch, valid bool) {
		if !valid {
			return
		}
		if !best.ok || m.start < best.m.start {
			best = candidate{m: m, ok: true}
		}
	}

	if loc := reNamedTime.FindStringIndex(text); loc != nil {
		word := strings.ToLower(text[loc[0]:loc[1]])
		m := timeMatch{text: text[loc[0]:loc[1]], start: loc[0], hour: 12, meridiem: "pm"}
		if word == "midnight" {
			m.hour = 12
			m.meridiem = "am"
		}
		consider(m, true)
	}
	if loc := reAtTime.FindStringSubmatchIndex(text); loc != nil {
		sub := reAtTime.FindStringSubmatch(text)
		h, _ := strconv.Atoi(sub[1])
		mnt := 0
		if sub[2] != "" {
			mnt, _ = strconv.Atoi(sub[2])
		}
		consider(timeMatch{
			text: text[loc[0]:loc[1]], start: loc[0],
			hour: h, minute: mnt, meridiem: strings.ToLower(sub[3]),
		}, h >= 1 && h <= 12 && mnt < 60)
	}
	if loc := reClockTime.FindStringSubmatchIndex(text); loc != nil {
		sub := reClockTime.FindStringSubmatch(text)
		h, _ := strconv.Atoi(sub[1])
		mnt, _ := strconv.Atoi(sub[2])
		m := timeMatch{
			text: text[loc[0]:loc[1]], start: loc[0],
			hour: h, minute: mnt, meridiem: strings.ToLower(sub[3]),
		}
		if h >= 13 && h <= 23 && m.meridiem == "" {
			// 24h clock form; no inference needed.
			m.hour = h - 12
			m.meridiem = "pm"
		}
		consider(m, h >= 0 && h <= 23 && mnt < 60)
	}
	if loc := reBareMerid.FindStringSubmatchIndex(text); loc != nil {
		sub := reBareMerid.FindStringSubmatch(text)
		h, _ := strconv.Atoi(sub[1])
		consider(timeMatch{
			text: text[loc[0]:loc[1]], start: loc[0],
			hour: h, meridiem: strings.ToLower(sub[2]),
		}, h >= 1 && h <= 12)
	}

	return best.m, best.ok
}

// ParseDate extracts a single point in time from free text, or reports false
// when the text carries no date or time mention.
func ParseDate(now time.Time, text string) (time.Time, bool) {
	matches := ParseAll(now, text)
	if len(matches) == 0 {
		return time.Time{}, false
	}
	return matches[0].Date, true
}

// ParseAll extracts every date mention from free text in reading order.
// A day mention and a time mention combine into one match; a time with no
// day resolves against today and rolls forward to tomorrow when already past.
func ParseAll(now time.Time, text string) []Match {
	day, hasDay := findDay(now, text)
	tm, hasTime := findTime(text)

	if !hasDay && !hasTime {
		return nil
	}

	var out []Match
	switch {
	case hasDay && hasTime:
		h := inferHour(now, day.date, tm.hour, tm.minute, tm.meridiem)
		d := day.date.Add(time.Duration(h)*time.Hour + time.Duration(tm.minute)*time.Minute)
		out = append(out, Match{Text: joinSpans(day, tm), Date: d})
	case hasDay:
		out = append(out, Match{Text: day.text, Date: day.date.Add(defaultHour * time.Hour)})
	default:
		h := inferHour(now, now, tm.hour, tm.minute, tm.meridiem)
		d := midnight(now).Add(time.Duration(h)*time.Hour + time.Duration(tm.minute)*time.Minute)
		if !d.After(now) {
			// No explicit day given and the time already passed: tomorrow.
			d = d.AddDate(0, 0, 1)
		}
		out = append(out, Match{Text: tm.text, Date: d})
	}
	return out
}

func daysInMonth(y int, m time.Month) int {
	// Day 0 of next month is the last day of this month.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func clampDay(y int, m time.Month, d int) int {
	if d < 1 {
		return 1
	}
	if max := daysInMonth(y, m); d > max {
		return max
	}
	return d
}

func joinSpans(day dayMatch, tm timeMatch) string {
	if day.start <= tm.start {
		return fmt.Sprintf("%s %s", day.text, tm.text)
	}
	return fmt.Sprintf("%s %s", tm.text, day.text)
}
