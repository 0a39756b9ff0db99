package model

import "time"

// CleanupBuffer is appended to the movie runtime to form a screening's
// end time, and is required again between one screening's end and the
// next screening's start in the same room.
const CleanupBuffer = 15 * time.Minute

// Movie is read-only reference data owned by the catalog.  The booking
// engine only needs its runtime to compute screening end times.
type Movie struct {
    ID              uint64    // movies.id
    Title           string    // movies.title
    DurationMinutes int       // movies.duration_minutes
    CreatedAt       time.Time // movies.created_at
}

// Duration returns the runtime as a time.Duration.
func (m Movie) Duration() time.Duration { return time.Duration(m.DurationMinutes) * time.Minute }

// ScreeningAttrs groups the presentation attributes of a screening.
// They do not take part in any scheduling rule.
type ScreeningAttrs struct {
    Format    string // e.g. "2D", "IMAX"
    Language  string
    Subtitles string
    Is3D      bool
}

// Screening represents a scheduled showing of a movie in a room.  The
// end time is always computed by ScreeningEnd and stored so that
// overlap queries can be answered by the store.
//
// Fields:
//  ID        – primary key identifier.
//  MovieID   – movie being shown.
//  RoomID    – room where the screening takes place.
//  StartTime – when the screening begins.
//  EndTime   – start + runtime + cleanup buffer.
//  Attrs     – presentation attributes.
//  CreatedAt – creation timestamp.
type Screening struct {
    ID        uint64    // screenings.id
    MovieID   uint64    // screenings.movie_id
    RoomID    uint64    // screenings.room_id
    StartTime time.Time // screenings.start_time
    EndTime   time.Time // screenings.end_time
    Attrs     ScreeningAttrs
    CreatedAt time.Time // screenings.created_at
}

// ScreeningEnd computes the end time for a screening of the given
// runtime that begins at start.
func ScreeningEnd(start time.Time, runtime time.Duration) time.Time {
    return start.Add(runtime).Add(CleanupBuffer)
}

// IsBookable reports whether seats can still be reserved at now.
func (s Screening) IsBookable(now time.Time) bool { return now.Before(s.EndTime) }

// HasStarted reports whether the screening has begun at now.
func (s Screening) HasStarted(now time.Time) bool { return !now.Before(s.StartTime) }

// Overlaps uses the open interval test, so touching endpoints do not
// overlap.
func (s Screening) Overlaps(start, end time.Time) bool {
    return s.StartTime.Before(end) && s.EndTime.After(start)
}
