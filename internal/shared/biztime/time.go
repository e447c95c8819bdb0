// Package biztime centralizes time handling. All storage and transport use
// UTC; implicit local timezones are prohibited.
package biztime

import "time"

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FromUnixMillis converts a vendor millisecond epoch timestamp to UTC time.
// App Store payloads carry dates this way.
func FromUnixMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// ToUnixMillis converts a time to a millisecond epoch timestamp.
func ToUnixMillis(t time.Time) int64 {
	return t.UnixMilli()
}
