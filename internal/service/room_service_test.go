package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-engine/internal/apperr"
)

func TestCreateRoomGeneratesGrid(t *testing.T) {
	f := newFixture(t)
	room, seats := f.room(t, 5, 4)

	assert.Equal(t, 1, room.Number)
	assert.Equal(t, 20, room.Capacity())
	require.Len(t, seats, room.Capacity())

	rows := map[string]int{}
	c3 := 0
	for _, s := range seats {
		rows[s.RowLabel]++
		assert.GreaterOrEqual(t, s.Column, 1)
		assert.LessOrEqual(t, s.Column, 4)
		assert.EqualValues(t, 850, s.PriceCents)
		if s.Label() == "C3" {
			c3++
		}
	}
	assert.Equal(t, map[string]int{"A": 4, "B": 4, "C": 4, "D": 4, "E": 4}, rows)
	assert.Equal(t, 1, c3)
}

func TestCreateRoomBounds(t *testing.T) {
	f := newFixture(t)
	for _, dims := range [][2]int{{0, 4}, {4, 0}, {51, 1}, {1, 51}} {
		_, err := f.rooms.CreateRoom(f.ctx, dims[0], dims[1])
		assert.True(t, apperr.Is(err, apperr.KindInvalid), "dims %v", dims)
		assert.Equal(t, apperr.CodeRoomSizeOutOfBounds, apperr.CodeOf(err))
	}
	room, seats := f.room(t, 50, 50)
	assert.Len(t, seats, 2500)
	assert.Equal(t, "AX50", seats[len(seats)-1].Label())
	assert.Equal(t, 2500, room.Capacity())
}

func TestRoomNumbersAreSequential(t *testing.T) {
	f := newFixture(t)
	r1, _ := f.room(t, 1, 1)
	r2, _ := f.room(t, 2, 2)
	assert.Equal(t, []int{1, 2}, []int{r1.Number, r2.Number})

	deleted, err := f.rooms.DeleteRoomWithHighestNumber(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, r2.ID, deleted.ID)
	_, err = f.rooms.GetRoom(f.ctx, r2.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	r3, _ := f.room(t, 3, 3)
	assert.Equal(t, 2, r3.Number)

	got, err := f.rooms.GetRoomByNumber(f.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, r3.ID, got.ID)
}

func TestDeleteHighestRoom(t *testing.T) {
	f := newFixture(t)
	_, err := f.rooms.DeleteRoomWithHighestNumber(f.ctx)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	b := f.booking(t)
	_, err = f.rooms.DeleteRoomWithHighestNumber(f.ctx)
	assert.Equal(t, apperr.CodeRoomInUse, apperr.CodeOf(err))
	_, err = f.rooms.GetRoom(f.ctx, b.room.ID)
	assert.NoError(t, err)
}

func TestCreateMovieValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.movies.CreateMovie(f.ctx, "  ", 90)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.movies.CreateMovie(f.ctx, "Heat", 0)
	assert.True(t, apperr.Is(err, apperr.KindInvalid))
	_, err = f.movies.GetMovie(f.ctx, 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
