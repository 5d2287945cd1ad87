package header

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNames maps a zero-based month index (month number minus one) to its
// three-letter name.
var monthNames = [12]string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

var dayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var daysPerMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// sumOfDays is the cumulative day count at the start of each month for a
// non-leap year.
var sumOfDays = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

// Three date formats, sniffed in order, mirroring parse_rfc1123_date's
// sscanf cascade: RFC 1123, RFC 850, and ANSI C asctime.
var (
	reRFC1123 = regexp.MustCompile(`^\s*[a-zA-Z]+,\s*(\d{1,2})\s+([a-zA-Z]{3})\s+(\d{4})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})`)
	reRFC850  = regexp.MustCompile(`^\s*[a-zA-Z]+,\s*(\d{1,2})-([a-zA-Z]{3})-(\d{2,4})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})`)
	reAsctime = regexp.MustCompile(`^\s*[a-zA-Z]+\s+([a-zA-Z]{3})\s+(\d{1,2})\s+(\d{1,2}):(\d{1,2}):(\d{1,2})\s+(\d{4})`)
)

func monthNumber(name string) int {
	for i, m := range monthNames {
		if strings.EqualFold(m, name) {
			return i + 1
		}
	}
	return 0
}

func leapDays(y1, y2 int) int {
	y1--
	y2--
	return (y2/4 - y1/4) - (y2/100 - y1/100) + (y2/400 - y1/400)
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func normalizeYear(year int) int {
	if year < 70 && year >= 0 {
		year += 2000
	} else if year >= 70 && year <= 99 {
		year += 1900
	}
	if year < 1970 {
		year = 1970
	}
	return year
}

// ParseDate parses an RFC 1123, RFC 850, or asctime date and returns it as
// a UTC time. The second return value is false if none of the three
// formats matched or the resulting calendar date is invalid; callers
// should treat that as "absent" (e.g. a session cookie with no expiry).
func ParseDate(s string) (time.Time, bool) {
	var day, year, hour, min, sec int
	var mname string
	var err error

	switch {
	case reRFC1123.MatchString(s):
		m := reRFC1123.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		mname = m[2]
		year, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
		sec, _ = strconv.Atoi(m[6])
	case reRFC850.MatchString(s):
		m := reRFC850.FindStringSubmatch(s)
		day, _ = strconv.Atoi(m[1])
		mname = m[2]
		year, _ = strconv.Atoi(m[3])
		hour, _ = strconv.Atoi(m[4])
		min, _ = strconv.Atoi(m[5])
		sec, _ = strconv.Atoi(m[6])
	case reAsctime.MatchString(s):
		m := reAsctime.FindStringSubmatch(s)
		mname = m[1]
		day, _ = strconv.Atoi(m[2])
		hour, _ = strconv.Atoi(m[3])
		min, _ = strconv.Atoi(m[4])
		sec, _ = strconv.Atoi(m[5])
		year, _ = strconv.Atoi(m[6])
	default:
		return time.Time{}, false
	}
	_ = err

	mon := monthNumber(mname)
	year = normalizeYear(year)

	leapYear := isLeapYear(year)
	leapMonth := 0
	if mon == 2 && leapYear {
		leapMonth = 1
	}

	if mon < 1 || mon > 12 || day < 1 || day > daysPerMonth[mon-1]+leapMonth ||
		hour < 0 || hour > 23 || min < 0 || min > 60 || sec < 0 || sec > 60 {
		return time.Time{}, false
	}

	days := 365*(year-1970) + leapDays(1970, year)
	days += sumOfDays[mon-1]
	if mon > 2 && leapYear {
		days++
	}
	days += day - 1

	secs := int64((days*24+hour)*60+min)*60 + int64(sec)
	return time.Unix(secs, 0).UTC(), true
}

// FormatDate renders t in the strict RFC 1123 form used by HTTP
// (e.g. "Wed, 09 Jun 2021 10:18:14 GMT"), independent of locale.
func FormatDate(t time.Time) string {
	t = t.UTC()
	return dayNames[int(t.Weekday())] + ", " +
		pad2(t.Day()) + " " + monthNames[int(t.Month())-1] + " " + strconv.Itoa(t.Year()) + " " +
		pad2(t.Hour()) + ":" + pad2(t.Minute()) + ":" + pad2(t.Second()) + " GMT"
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
