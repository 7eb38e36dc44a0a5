package models

import "time"

// AccessLog records one completed proxy request.
type AccessLog struct {
	ID             int64     `json:"id"`
	Endpoint       string    `json:"endpoint"`
	Method         string    `json:"method"`
	StatusCode     int       `json:"status_code"`
	ClientID       string    `json:"client_id"`
	ResponseTimeMs int       `json:"response_time_ms"`
	RequestSize    int64     `json:"request_size"`
	ResponseSize   int64     `json:"response_size"`
	Timestamp      time.Time `json:"timestamp"`
}

// DailyUsage aggregates access-log rows per calendar day.
type DailyUsage struct {
	Day      string `json:"day"`
	Requests int64  `json:"requests"`
	Errors   int64  `json:"errors"`
}
