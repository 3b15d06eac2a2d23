package types

import "time"

// Habit is a server-side habit record. Records are keyed by
// (UserID, LocalID): the client generates LocalID offline and the
// server reconciles on it, so the surrogate database id never leaves
// the store.
type Habit struct {
	LocalID      string    `json:"localId" db:"local_id"`
	UserID       int       `json:"userId" db:"user_id"`
	Name         string    `json:"name" db:"name"`
	Description  string    `json:"description" db:"description"`
	Icon         string    `json:"icon" db:"icon"`
	Color        string    `json:"color" db:"color"`
	Frequency    string    `json:"frequency" db:"frequency"`
	ReminderTime string    `json:"reminderTime" db:"reminder_time"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	IsDeleted    bool      `json:"isDeleted" db:"is_deleted"`

	// LastSyncedAt is server-assigned on every upsert.
	LastSyncedAt time.Time `json:"lastSyncedAt" db:"last_synced_at"`
}

// HabitLog is a single completion record for a habit. HabitLocalID is
// a weak reference: the referenced habit may not exist server-side.
type HabitLog struct {
	LocalID      string    `json:"localId" db:"local_id"`
	HabitLocalID string    `json:"habitLocalId" db:"habit_local_id"`
	UserID       int       `json:"userId" db:"user_id"`
	Date         string    `json:"date" db:"date"`
	Completed    bool      `json:"completed" db:"completed"`
	Note         string    `json:"note" db:"note"`
	IsDeleted    bool      `json:"isDeleted" db:"is_deleted"`

	// SyncedAt is server-assigned on every upsert.
	SyncedAt time.Time `json:"syncedAt" db:"synced_at"`
}

// HabitUpsert is a habit element as pushed by the client. Mobile
// clients send the natural key as "id"; older payloads send "localId".
// Fields outside this set are dropped on decode.
type HabitUpsert struct {
	ID           string    `json:"id"`
	LocalID      string    `json:"localId"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         string    `json:"icon"`
	Color        string    `json:"color"`
	Frequency    string    `json:"frequency"`
	ReminderTime string    `json:"reminderTime"`
	CreatedAt    time.Time `json:"createdAt"`
	IsDeleted    bool      `json:"isDeleted"`
}

// HabitLogUpsert is a habit log element as pushed by the client. The
// habit reference arrives as "habitId" from mobile clients or
// "habitLocalId" from older payloads.
type HabitLogUpsert struct {
	ID           string `json:"id"`
	LocalID      string `json:"localId"`
	HabitID      string `json:"habitId"`
	HabitLocalID string `json:"habitLocalId"`
	Date         string `json:"date"`
	Completed    bool   `json:"completed"`
	Note         string `json:"note"`
	IsDeleted    bool   `json:"isDeleted"`
}
