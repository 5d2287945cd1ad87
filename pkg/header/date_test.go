package header

import (
	"testing"
	"time"
)

func TestParseDateRFC1123(t *testing.T) {
	got, ok := ParseDate("Wed, 09 Jun 2021 10:18:14 GMT")
	if !ok {
		t.Fatal("ok = false, want true")
	}
	want := time.Date(2021, 6, 9, 10, 18, 14, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDateRFC850(t *testing.T) {
	got, ok := ParseDate("Wednesday, 09-Jun-21 10:18:14 GMT")
	if !ok {
		t.Fatal("ok = false, want true")
	}
	want := time.Date(2021, 6, 9, 10, 18, 14, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDateAsctime(t *testing.T) {
	got, ok := ParseDate("Wed Jun  9 10:18:14 2021")
	if !ok {
		t.Fatal("ok = false, want true")
	}
	want := time.Date(2021, 6, 9, 10, 18, 14, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParseDateTwoDigitYearPivot(t *testing.T) {
	// 2-digit years below 70 roll into the 2000s, 70-99 into the 1900s,
	// mirroring the reference parser's pivot.
	got, ok := ParseDate("Sunday, 01-Jan-50 00:00:00 GMT")
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if got.Year() != 2050 {
		t.Errorf("year = %d, want 2050", got.Year())
	}

	got, ok = ParseDate("Friday, 01-Jan-99 00:00:00 GMT")
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if got.Year() != 1999 {
		t.Errorf("year = %d, want 1999", got.Year())
	}
}

func TestParseDateInvalidFormat(t *testing.T) {
	_, ok := ParseDate("not a date at all")
	if ok {
		t.Error("ok = true, want false for unrecognized input")
	}
}

func TestParseDateInvalidCalendarDate(t *testing.T) {
	_, ok := ParseDate("Wed, 31 Feb 2021 10:18:14 GMT")
	if ok {
		t.Error("ok = true, want false for an invalid calendar date")
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	want := time.Date(2021, 6, 9, 10, 18, 14, 0, time.UTC)
	s := FormatDate(want)
	if s != "Wed, 09 Jun 2021 10:18:14 GMT" {
		t.Errorf("FormatDate() = %q, want %q", s, "Wed, 09 Jun 2021 10:18:14 GMT")
	}
	got, ok := ParseDate(s)
	if !ok {
		t.Fatal("ParseDate(FormatDate(t)) ok = false")
	}
	if !got.Equal(want) {
		t.Errorf("round trip = %v, want %v", got, want)
	}
}
