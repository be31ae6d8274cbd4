// Package models defines the typed records held in the local store and the
// items carried by the mutation queue.
package models

import (
	"encoding/json"
	"time"
)

// SyncStatus reports whether a cached record matches the remote system.
type SyncStatus string

const (
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusPending SyncStatus = "pending"
	SyncStatusError   SyncStatus = "error"
)

// ScheduleStatus is the publication state of a practice schedule entry.
type ScheduleStatus string

const (
	ScheduleStatusDraft     ScheduleStatus = "draft"
	ScheduleStatusPublished ScheduleStatus = "published"
)

// BlockType categorizes a practice block within a lineup.
type BlockType string

const (
	BlockTypeWater BlockType = "water"
	BlockTypeLand  BlockType = "land"
	BlockTypeErg   BlockType = "erg"
)

// Side is the rowing side an athlete is seated on.
type Side string

const (
	SidePort      Side = "port"
	SideStarboard Side = "starboard"
	SideNone      Side = "none"
)

// RegattaSource records where a cached regatta originated.
type RegattaSource string

const (
	RegattaSourceRemoteImport RegattaSource = "remote_import"
	RegattaSourceManual       RegattaSource = "manual"
)

// RaceStatus is the state of a single regatta race.
type RaceStatus string

const (
	RaceStatusScheduled RaceStatus = "scheduled"
	RaceStatusScratched RaceStatus = "scratched"
	RaceStatusCompleted RaceStatus = "completed"
)

// DateLayout is the calendar-day format used for schedule dates. Dates in
// this format compare correctly as strings, which the store's range queries
// rely on.
const DateLayout = "2006-01-02"

// DateOf formats a time as a calendar day in the local zone of t.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// CachedScheduleEntry is a locally cached practice schedule entry.
type CachedScheduleEntry struct {
	ID           string         `json:"id"`
	OwnerGroupID string         `json:"ownerGroupId"`
	SeasonID     string         `json:"seasonId"`
	Name         string         `json:"name"`
	Date         string         `json:"date"` // DateLayout
	StartTime    time.Time      `json:"startTime"`
	EndTime      time.Time      `json:"endTime"`
	Status       ScheduleStatus `json:"status"`
	Notes        string         `json:"notes,omitempty"`
	CachedAt     time.Time      `json:"cachedAt"`
	SyncStatus   SyncStatus     `json:"syncStatus"`
}

// Seat is one seat assignment within a lineup. The seats list is a snapshot
// owned by its lineup entry, not independently queryable.
type Seat struct {
	Position    int    `json:"position"`
	AthleteID   string `json:"athleteId"`
	AthleteName string `json:"athleteName"`
	Side        Side   `json:"side"`
}

// CachedLineupEntry is a locally cached lineup for one practice block.
type CachedLineupEntry struct {
	ID              string     `json:"id"`
	ScheduleEntryID string     `json:"scheduleEntryId"`
	BlockID         string     `json:"blockId"`
	BlockType       BlockType  `json:"blockType"`
	BlockPosition   int        `json:"blockPosition"`
	BoatID          string     `json:"boatId,omitempty"`
	BoatName        string     `json:"boatName,omitempty"`
	Seats           []Seat     `json:"seats"`
	CachedAt        time.Time  `json:"cachedAt"`
	SyncStatus      SyncStatus `json:"syncStatus"`
}

// CachedRegattaEntry is a locally cached regatta.
type CachedRegattaEntry struct {
	ID           string        `json:"id"`
	OwnerGroupID string        `json:"ownerGroupId"`
	Name         string        `json:"name"`
	Location     string        `json:"location,omitempty"`
	Venue        string        `json:"venue,omitempty"`
	Timezone     string        `json:"timezone,omitempty"`
	StartDate    time.Time     `json:"startDate"`
	EndDate      *time.Time    `json:"endDate,omitempty"`
	Source       RegattaSource `json:"source"`
	CachedAt     time.Time     `json:"cachedAt"`
	SyncStatus   SyncStatus    `json:"syncStatus"`
}

// EffectiveEndDate returns the end date, falling back to the start date when
// no end date is set. Cache cleanup ages regattas off this value.
func (r CachedRegattaEntry) EffectiveEndDate() time.Time {
	if r.EndDate != nil {
		return *r.EndDate
	}
	return r.StartDate
}

// CachedRegattaRaceEntry is a single race belonging to a cached regatta.
// A race never outlives its parent regatta.
type CachedRegattaRaceEntry struct {
	ID            string          `json:"id"`
	RegattaID     string          `json:"regattaId"`
	EventName     string          `json:"eventName"`
	ScheduledTime time.Time       `json:"scheduledTime"`
	Status        RaceStatus      `json:"status"`
	Heat          string          `json:"heat,omitempty"`
	Lane          int             `json:"lane,omitempty"`
	Placement     int             `json:"placement,omitempty"`
	Lineup        json.RawMessage `json:"lineup,omitempty"`
	Notifications json.RawMessage `json:"notifications,omitempty"`
}

// FreshnessRecord records when a cache scope was last populated and when it
// should be considered stale.
type FreshnessRecord struct {
	Key         string    `json:"key"`
	LastUpdated time.Time `json:"lastUpdated"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
