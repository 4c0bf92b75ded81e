package fieldformat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Canonical layouts for stored temporal values.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04:05.000000"
	DateTimeLayout = "2006-01-02 15:04:05.000000"
)

// Default display formats.
const (
	defaultDateFormat     = "%B %-d, %Y"
	defaultTimeFormat     = "%-I:%M:%S %p"
	defaultDateTimeFormat = "%B %-d, %Y %-I:%M:%S %p"
)

var (
	fallbackDateLayouts = []string{DateLayout, "2006/01/02", "2006-1-2", "01/02/2006", "1/2/2006", "Jan 2, 2006", "January 2, 2006", "2 Jan 2006"}
	fallbackTimeLayouts = []string{TimeLayout, "15:04:05", "15:04", "3:04:05 PM", "3:04 PM", "3:04:05PM", "3:04PM", "15:04:05.999999999"}
	fallbackDTLayouts   = []string{DateTimeLayout, "2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04", "2006-01-02T15:04", time.RFC3339, time.RFC3339Nano}
)

type dtDirective byte

const (
	dtLiteral dtDirective = iota
	dtDay                 // %d
	dtDayNoPad            // %-d
	dtMonth               // %m
	dtMonthNoPad          // %-m
	dtYear2               // %y
	dtYear4               // %Y
	dtMonthAbbr           // %b
	dtMonthName           // %B
	dtWeekdayAbbr         // %a
	dtWeekdayName         // %A
	dtYearDay             // %j
	dtYearDayNoPad        // %-j
	dtWeekdayNum          // %w
	dtHour                // %H
	dtHourNoPad           // %-H
	dtHour12              // %I
	dtHour12NoPad         // %-I
	dtMinute              // %M
	dtMinuteNoPad         // %-M
	dtSecond              // %S
	dtSecondNoPad         // %-S
	dtMicro               // %f
	dtAMPM                // %p
)

var dateDirectives = map[string]dtDirective{
	"d": dtDay, "-d": dtDayNoPad, "m": dtMonth, "-m": dtMonthNoPad, "y": dtYear2, "Y": dtYear4,
	"b": dtMonthAbbr, "B": dtMonthName, "a": dtWeekdayAbbr, "A": dtWeekdayName,
	"j": dtYearDay, "-j": dtYearDayNoPad, "w": dtWeekdayNum,
}

var timeDirectives = map[string]dtDirective{
	"H": dtHour, "-H": dtHourNoPad, "I": dtHour12, "-I": dtHour12NoPad, "M": dtMinute,
	"-M": dtMinuteNoPad, "S": dtSecond, "-S": dtSecondNoPad, "f": dtMicro, "p": dtAMPM,
}

type dtToken struct {
	directive dtDirective
	literal   string
}

// dateTimeFormat is a compiled strftime-style format.
type dateTimeFormat struct {
	tokens []dtToken
}

func parseDateTimeFormat(spec string, allowDate, allowTime bool) (*dateTimeFormat, error) {
	f := &dateTimeFormat{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			f.tokens = append(f.tokens, dtToken{literal: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(spec); i++ {
		c := spec[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 >= len(spec) {
			return nil, errors.New("format ends with a lone %")
		}
		key := spec[i+1 : i+2]
		if key == "%" {
			lit.WriteByte('%')
			i++
			continue
		}
		if key == "-" {
			if i+2 >= len(spec) {
				return nil, errors.New("format ends with %-")
			}
			key = spec[i+1 : i+3]
		}
		d, isDate := dateDirectives[key]
		if !isDate {
			var isTime bool
			d, isTime = timeDirectives[key]
			if !isTime {
				return nil, fmt.Errorf("unknown directive %%%s", key)
			}
			if !allowTime {
				return nil, fmt.Errorf("time directive %%%s in a date format", key)
			}
		} else if !allowDate {
			return nil, fmt.Errorf("date directive %%%s in a time format", key)
		}
		flush()
		f.tokens = append(f.tokens, dtToken{directive: d})
		i += len(key)
	}
	flush()
	return f, nil
}

func (f *dateTimeFormat) format(t time.Time) string {
	var b strings.Builder
	for _, tok := range f.tokens {
		switch tok.directive {
		case dtLiteral:
			b.WriteString(tok.literal)
		case dtDay:
			fmt.Fprintf(&b, "%02d", t.Day())
		case dtDayNoPad:
			b.WriteString(strconv.Itoa(t.Day()))
		case dtMonth:
			fmt.Fprintf(&b, "%02d", int(t.Month()))
		case dtMonthNoPad:
			b.WriteString(strconv.Itoa(int(t.Month())))
		case dtYear2:
			fmt.Fprintf(&b, "%02d", t.Year()%100)
		case dtYear4:
			fmt.Fprintf(&b, "%04d", t.Year())
		case dtMonthAbbr:
			b.WriteString(t.Month().String()[:3])
		case dtMonthName:
			b.WriteString(t.Month().String())
		case dtWeekdayAbbr:
			b.WriteString(t.Weekday().String()[:3])
		case dtWeekdayName:
			b.WriteString(t.Weekday().String())
		case dtYearDay:
			fmt.Fprintf(&b, "%03d", t.YearDay())
		case dtYearDayNoPad:
			b.WriteString(strconv.Itoa(t.YearDay()))
		case dtWeekdayNum:
			b.WriteString(strconv.Itoa(int(t.Weekday())))
		case dtHour:
			fmt.Fprintf(&b, "%02d", t.Hour())
		case dtHourNoPad:
			b.WriteString(strconv.Itoa(t.Hour()))
		case dtHour12:
			fmt.Fprintf(&b, "%02d", hour12(t.Hour()))
		case dtHour12NoPad:
			b.WriteString(strconv.Itoa(hour12(t.Hour())))
		case dtMinute:
			fmt.Fprintf(&b, "%02d", t.Minute())
		case dtMinuteNoPad:
			b.WriteString(strconv.Itoa(t.Minute()))
		case dtSecond:
			fmt.Fprintf(&b, "%02d", t.Second())
		case dtSecondNoPad:
			b.WriteString(strconv.Itoa(t.Second()))
		case dtMicro:
			fmt.Fprintf(&b, "%06d", t.Nanosecond()/1000)
		case dtAMPM:
			if t.Hour() < 12 {
				b.WriteString("AM")
			} else {
				b.WriteString("PM")
			}
		}
	}
	return b.String()
}

func hour12(h int) int {
	h %= 12
	if h == 0 {
		return 12
	}
	return h
}

// dtFields collects parsed components; -1 means unset.
type dtFields struct {
	year, month, day, yday int
	hour, hour12, minute   int
	second, micro          int
	pm                     int
}

// parse reads input laid out per the format. Components the format lacks
// default to 1900-01-01 00:00:00.
func (f *dateTimeFormat) parse(input string) (time.Time, bool) {
	fl := dtFields{year: -1, month: -1, day: -1, yday: -1, hour: -1, hour12: -1, minute: -1, second: -1, micro: -1, pm: -1}
	s := strings.TrimSpace(input)
	for _, tok := range f.tokens {
		var ok bool
		switch tok.directive {
		case dtLiteral:
			s, ok = matchLiteral(s, tok.literal)
		case dtDay, dtDayNoPad:
			fl.day, s, ok = readInt(s, 2)
		case dtMonth, dtMonthNoPad:
			fl.month, s, ok = readInt(s, 2)
		case dtYear2:
			var y int
			y, s, ok = readInt(s, 2)
			if y < 69 {
				fl.year = 2000 + y
			} else {
				fl.year = 1900 + y
			}
		case dtYear4:
			fl.year, s, ok = readInt(s, 4)
		case dtMonthAbbr, dtMonthName:
			fl.month, s, ok = readName(s, monthNames)
		case dtWeekdayAbbr, dtWeekdayName:
			_, s, ok = readName(s, weekdayNames)
		case dtYearDay, dtYearDayNoPad:
			fl.yday, s, ok = readInt(s, 3)
		case dtWeekdayNum:
			_, s, ok = readInt(s, 1)
		case dtHour, dtHourNoPad:
			fl.hour, s, ok = readInt(s, 2)
		case dtHour12, dtHour12NoPad:
			fl.hour12, s, ok = readInt(s, 2)
		case dtMinute, dtMinuteNoPad:
			fl.minute, s, ok = readInt(s, 2)
		case dtSecond, dtSecondNoPad:
			fl.second, s, ok = readInt(s, 2)
		case dtMicro:
			fl.micro, s, ok = readMicro(s)
		case dtAMPM:
			s, ok = readAMPM(s, &fl.pm)
		}
		if !ok {
			return time.Time{}, false
		}
	}
	if strings.TrimSpace(s) != "" {
		return time.Time{}, false
	}
	return fl.build()
}

func (fl dtFields) build() (time.Time, bool) {
	year, month, day := 1900, 1, 1
	if fl.year >= 0 {
		year = fl.year
	}
	if fl.month >= 0 {
		month = fl.month
	}
	if fl.day >= 0 {
		day = fl.day
	}
	hour := 0
	switch {
	case fl.hour >= 0:
		hour = fl.hour
	case fl.hour12 >= 0:
		if fl.hour12 < 1 || fl.hour12 > 12 {
			return time.Time{}, false
		}
		hour = fl.hour12 % 12
		if fl.pm == 1 {
			hour += 12
		}
	}
	minute, second, micro := max(fl.minute, 0), max(fl.second, 0), max(fl.micro, 0)
	if month < 1 || month > 12 || day < 1 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, false
	}
	var t time.Time
	if fl.yday >= 0 && fl.month < 0 && fl.day < 0 {
		t = time.Date(year, 1, 1, hour, minute, second, micro*1000, time.UTC).AddDate(0, 0, fl.yday-1)
		if fl.yday < 1 || t.Year() != year {
			return time.Time{}, false
		}
		return t, true
	}
	t = time.Date(year, time.Month(month), day, hour, minute, second, micro*1000, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

var monthNames = []string{"january", "february", "march", "april", "may", "june", "july",
	"august", "september", "october", "november", "december"}

var weekdayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func readInt(s string, maxDigits int) (int, string, bool) {
	n := 0
	for n < len(s) && n < maxDigits && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, s, false
	}
	v, err := strconv.Atoi(s[:n])
	if err != nil {
		return 0, s, false
	}
	return v, s[n:], true
}

func readMicro(s string) (int, string, bool) {
	n := 0
	for n < len(s) && n < 6 && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	if n == 0 {
		return 0, s, false
	}
	digits := s[:n] + strings.Repeat("0", 6-n)
	v, err := strconv.Atoi(digits)
	return v, s[n:], err == nil
}

// readName matches a full name or its three letter abbreviation, returning a
// one-based index.
func readName(s string, names []string) (int, string, bool) {
	lower := strings.ToLower(s)
	for i, name := range names {
		if strings.HasPrefix(lower, name) {
			return i + 1, s[len(name):], true
		}
	}
	for i, name := range names {
		if strings.HasPrefix(lower, name[:3]) {
			return i + 1, s[3:], true
		}
	}
	return 0, s, false
}

func readAMPM(s string, pm *int) (string, bool) {
	lower := strings.ToLower(s)
	for _, cand := range []struct {
		text string
		pm   int
	}{{"a.m.", 0}, {"p.m.", 1}, {"am", 0}, {"pm", 1}, {"a", 0}, {"p", 1}} {
		if strings.HasPrefix(lower, cand.text) {
			*pm = cand.pm
			return s[len(cand.text):], true
		}
	}
	return s, false
}

// matchLiteral consumes lit from s. Whitespace in lit matches any run of
// whitespace (including none); letters match case-insensitively.
func matchLiteral(s, lit string) (string, bool) {
	for _, r := range lit {
		if unicode.IsSpace(r) {
			s = strings.TrimLeftFunc(s, unicode.IsSpace)
			continue
		}
		if s == "" {
			return s, false
		}
		got := []rune(s)[0]
		if unicode.ToLower(got) != unicode.ToLower(r) {
			return s, false
		}
		s = s[len(string(got)):]
	}
	return s, true
}

// parseTemporal tries the field's own format, then the fallback layouts.
func parseTemporal(f *dateTimeFormat, input string, fallbacks []string) (time.Time, bool) {
	if t, ok := f.parse(input); ok {
		return t, true
	}
	s := strings.TrimSpace(input)
	for _, layout := range fallbacks {
		if t, err := time.Parse(layout, s); err == nil {
			return normalizeTemporal(t), true
		}
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return normalizeTemporal(t), true
		}
	}
	return time.Time{}, false
}

// normalizeTemporal moves t to UTC wall time and puts bare times on 1900-01-01.
func normalizeTemporal(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/1000*1000, time.UTC)
	if t.Year() == 0 {
		t = t.AddDate(1900, 0, 0)
	}
	return t
}

// ParseCanonicalDate reads a stored Date value.
func ParseCanonicalDate(v string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, v)
	return t, err == nil
}

// ParseCanonicalTime reads a stored Time value; the date part is 1900-01-01.
func ParseCanonicalTime(v string) (time.Time, bool) {
	t, err := time.Parse(TimeLayout, v)
	if err != nil {
		return time.Time{}, false
	}
	return normalizeTemporal(t), true
}

// ParseCanonicalDateTime reads a stored DateTime value.
func ParseCanonicalDateTime(v string) (time.Time, bool) {
	t, err := time.Parse(DateTimeLayout, v)
	return t, err == nil
}
