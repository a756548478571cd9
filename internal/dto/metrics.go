package dto

import "time"

// MetricsSnapshot summarises process counters for the JSON metrics endpoint.
type MetricsSnapshot struct {
	StudentsImported         uint64    `json:"studentsImported"`
	ImportFailures           uint64    `json:"importFailures"`
	Exports                  uint64    `json:"exports"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	DBQueryCount             uint64    `json:"dbQueryCount"`
	AverageDBQueryDurationMs float64   `json:"averageDbQueryDurationMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
