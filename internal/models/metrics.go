package models

import "time"

// SystemMetrics is a lightweight snapshot of process instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	SlotResolutions          uint64    `json:"slot_resolutions"`
	BookingsCreated          uint64    `json:"bookings_created"`
	BookingConflicts         uint64    `json:"booking_conflicts"`
	NotificationsWritten     uint64    `json:"notifications_written"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
