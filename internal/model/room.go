package model

import "time"

// Room represents a physical screening room.  Rooms are numbered
// sequentially and own a fixed grid of seats that is generated once
// when the room is created and never regenerated afterwards.
//
// Fields:
//  ID        – primary key identifier.
//  Number    – sequential, human facing room number.
//  Rows      – number of seat rows in the grid.
//  Columns   – number of seats per row.
//  CreatedAt – creation timestamp.
type Room struct {
    ID        uint64    // rooms.id
    Number    int       // rooms.number
    Rows      int       // rooms.seat_rows
    Columns   int       // rooms.seat_cols
    CreatedAt time.Time // rooms.created_at
}

// Capacity is always derived from the grid and never stored.
func (r Room) Capacity() int { return r.Rows * r.Columns }

// GenerateSeats builds one seat per (row, column) pair in row-major
// order.  Row labels follow RowLabel; columns are numbered from 1.
// The returned seats carry no ID and reference the room by roomID.
func GenerateSeats(roomID uint64, rows, cols int, priceCents int64) []Seat {
    seats := make([]Seat, 0, rows*cols)
    for r := 0; r < rows; r++ {
        label := RowLabel(r)
        for c := 1; c <= cols; c++ {
            seats = append(seats, Seat{
                RoomID:     roomID,
                RowLabel:   label,
                Column:     c,
                PriceCents: priceCents,
            })
        }
    }
    return seats
}

// RowLabel converts a zero-based row index into a spreadsheet style
// label: 0 -> "A", 25 -> "Z", 26 -> "AA", 27 -> "AB" and so on.
func RowLabel(i int) string {
    if i < 0 {
        return ""
    }
    n := i + 1
    var buf []byte
    for n > 0 {
        n--
        buf = append([]byte{byte('A' + n%26)}, buf...)
        n /= 26
    }
    return string(buf)
}

// RowIndex is the inverse of RowLabel.  It returns -1 for labels that
// contain anything other than the letters A-Z (case insensitive).
func RowIndex(label string) int {
    if label == "" {
        return -1
    }
    n := 0
    for _, ch := range label {
        switch {
        case ch >= 'A' && ch <= 'Z':
            n = n*26 + int(ch-'A'+1)
        case ch >= 'a' && ch <= 'z':
            n = n*26 + int(ch-'a'+1)
        default:
            return -1
        }
    }
    return n - 1
}
