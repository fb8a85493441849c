package models

import "time"

// ReportExport points at an uploaded report and a time-limited download link
type ReportExport struct {
	Day         time.Time `json:"day"`
	ObjectName  string    `json:"object_name"`
	Rows        int       `json:"rows"`
	URL         string    `json:"url"`
	ExpiresAt   time.Time `json:"expires_at"`
	GeneratedAt time.Time `json:"generated_at"`
}
