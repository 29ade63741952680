package helpers

import (
	"time"

	ptime "github.com/yaa110/go-persian-calendar"
)

// FormatJalaliDate converts Gregorian date to Jalali format Y/m/d
// Example: 2025-10-30 -> 1404/08/08
func FormatJalaliDate(t time.Time) string {
	pt := ptime.New(t)
	return pt.Format("yyyy/MM/dd")
}

// FormatJalaliDateTime converts Gregorian datetime to Jalali format Y/m/d H:m:s
func FormatJalaliDateTime(t time.Time) string {
	pt := ptime.New(t)
	return pt.Format("yyyy/MM/dd HH:mm:ss")
}

// NowJalaliDateTime returns current datetime formatted in Jalali
func NowJalaliDateTime() string {
	return FormatJalaliDateTime(time.Now())
}
