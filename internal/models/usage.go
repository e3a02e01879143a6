package models

// UsageRecord is the live per-key daily counter. Day is a calendar date in
// the configured quota timezone, formatted YYYY-MM-DD. When the current day
// differs from the stored one the record is logically reset (count restarts
// at 0) before being read or incremented; prior days are not kept.
type UsageRecord struct {
	KeyHash string `json:"-"`
	Day     string `json:"day"`
	Count   int    `json:"count"`
}
