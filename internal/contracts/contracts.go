package contracts

import "time"

// StoredEvent is the persistence shape of one scheduled placement. The
// backend keeps absolute start/end; duration is derived on load.
type StoredEvent struct {
	EventID   string    `json:"event_id"`
	SourceKey string    `json:"source_key"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Color     string    `json:"color"`
}

// MediaItem is one entry of the media catalog consumed by drop placements
// and by the automation planner.
type MediaItem struct {
	MediaID         string    `json:"media_id"`
	SourceKey       string    `json:"source_key"`
	FileName        string    `json:"file_name"`
	DurationSeconds int64     `json:"duration_seconds"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// SchedulePublished is emitted on the PLAYOUT stream after a successful save
// so the stream runner can pick up the new day schedule.
type SchedulePublished struct {
	Day        string    `json:"day"`
	EventCount int       `json:"event_count"`
	SavedAt    time.Time `json:"saved_at"`
}
