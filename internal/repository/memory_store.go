package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

var (
	_ Store = (*MySQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)

// memState is the arena: one map per table keyed by id.
type memState struct {
	seq          uint64
	users        map[uint64]model.User
	movies       map[uint64]model.Movie
	rooms        map[uint64]model.Room
	seats        map[uint64]model.Seat
	screenings   map[uint64]model.Screening
	reservations map[uint64]model.Reservation // stored without Claims
	claims       map[uint64]model.SeatClaim
	payments     map[uint64]model.Payment
}

func newMemState() *memState {
	return &memState{
		users:        map[uint64]model.User{},
		movies:       map[uint64]model.Movie{},
		rooms:        map[uint64]model.Room{},
		seats:        map[uint64]model.Seat{},
		screenings:   map[uint64]model.Screening{},
		reservations: map[uint64]model.Reservation{},
		claims:       map[uint64]model.SeatClaim{},
		payments:     map[uint64]model.Payment{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *memState) clone() memState {
	return memState{
		seq:          s.seq,
		users:        cloneMap(s.users),
		movies:       cloneMap(s.movies),
		rooms:        cloneMap(s.rooms),
		seats:        cloneMap(s.seats),
		screenings:   cloneMap(s.screenings),
		reservations: cloneMap(s.reservations),
		claims:       cloneMap(s.claims),
		payments:     cloneMap(s.payments),
	}
}

func (s *memState) nextID() uint64 {
	s.seq++
	return s.seq
}

// memQueries implements Queries over memState.  mu is nil inside a
// transaction, where the store lock is already held.
type memQueries struct {
	st  *memState
	mu  *sync.Mutex
	now func() time.Time
}

func (m *memQueries) lock() func() {
	if m.mu == nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// MemoryStore is a Store kept entirely in process.  Transactions are
// serialised by a single mutex and rolled back by restoring a snapshot,
// which makes every InTx call serializable.
type MemoryStore struct {
	memQueries
	mu sync.Mutex
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.memQueries = memQueries{st: newMemState(), mu: &s.mu, now: time.Now}
	return s
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(q Queries) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&memQueries{st: s.st, now: s.now}); err != nil {
		*s.st = snapshot
		return err
	}
	return nil
}

// users

func (m *memQueries) CreateUser(_ context.Context, u *model.User) error {
	defer m.lock()()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, existing := range m.st.users {
		if existing.Email == u.Email {
			return ErrDuplicate
		}
	}
	u.ID = m.st.nextID()
	u.CreatedAt = m.now().UTC()
	m.st.users[u.ID] = *u
	return nil
}

func (m *memQueries) GetUser(_ context.Context, id uint64) (model.User, error) {
	defer m.lock()()
	u, ok := m.st.users[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (m *memQueries) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	defer m.lock()()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range m.st.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, ErrNotFound
}

// movies

func (m *memQueries) CreateMovie(_ context.Context, mv *model.Movie) error {
	defer m.lock()()
	mv.ID = m.st.nextID()
	mv.CreatedAt = m.now().UTC()
	m.st.movies[mv.ID] = *mv
	return nil
}

func (m *memQueries) GetMovie(_ context.Context, id uint64) (model.Movie, error) {
	defer m.lock()()
	mv, ok := m.st.movies[id]
	if !ok {
		return model.Movie{}, ErrNotFound
	}
	return mv, nil
}

// rooms and seats

func (m *memQueries) CreateRoom(_ context.Context, r *model.Room) error {
	defer m.lock()()
	for _, existing := range m.st.rooms {
		if existing.Number == r.Number {
			return ErrDuplicate
		}
	}
	r.ID = m.st.nextID()
	r.CreatedAt = m.now().UTC()
	m.st.rooms[r.ID] = *r
	return nil
}

func (m *memQueries) GetRoom(_ context.Context, id uint64) (model.Room, error) {
	defer m.lock()()
	r, ok := m.st.rooms[id]
	if !ok {
		return model.Room{}, ErrNotFound
	}
	return r, nil
}

func (m *memQueries) GetRoomByNumber(_ context.Context, number int) (model.Room, error) {
	defer m.lock()()
	for _, r := range m.st.rooms {
		if r.Number == number {
			return r, nil
		}
	}
	return model.Room{}, ErrNotFound
}

func (m *memQueries) ListRooms(_ context.Context) ([]model.Room, error) {
	defer m.lock()()
	out := make([]model.Room, 0, len(m.st.rooms))
	for _, r := range m.st.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (m *memQueries) MaxRoomNumber(_ context.Context) (int, error) {
	defer m.lock()()
	highest := 0
	for _, r := range m.st.rooms {
		if r.Number > highest {
			highest = r.Number
		}
	}
	return highest, nil
}

func (m *memQueries) DeleteRoom(_ context.Context, id uint64) error {
	defer m.lock()()
	if _, ok := m.st.rooms[id]; !ok {
		return ErrNotFound
	}
	for _, s := range m.st.screenings {
		if s.RoomID == id {
			return ErrConflict
		}
	}
	for sid, seat := range m.st.seats {
		if seat.RoomID == id {
			delete(m.st.seats, sid)
		}
	}
	delete(m.st.rooms, id)
	return nil
}

func (m *memQueries) LockRoom(_ context.Context, id uint64) error {
	defer m.lock()()
	if _, ok := m.st.rooms[id]; !ok {
		return ErrNotFound
	}
	return nil
}

func (m *memQueries) CreateSeats(_ context.Context, seats []model.Seat) error {
	defer m.lock()()
	now := m.now().UTC()
	for _, s := range seats {
		s.ID = m.st.nextID()
		s.CreatedAt = now
		m.st.seats[s.ID] = s
	}
	return nil
}

func (m *memQueries) GetSeat(_ context.Context, id uint64) (model.Seat, error) {
	defer m.lock()()
	s, ok := m.st.seats[id]
	if !ok {
		return model.Seat{}, ErrNotFound
	}
	return s, nil
}

func (m *memQueries) ListSeatsByRoom(_ context.Context, roomID uint64) ([]model.Seat, error) {
	defer m.lock()()
	var out []model.Seat
	for _, s := range m.st.seats {
		if s.RoomID == roomID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RowLabel != b.RowLabel {
			return model.RowIndex(a.RowLabel) < model.RowIndex(b.RowLabel)
		}
		return a.Column < b.Column
	})
	return out, nil
}

// screenings

func (m *memQueries) CreateScreening(_ context.Context, s *model.Screening) error {
	defer m.lock()()
	s.ID = m.st.nextID()
	s.CreatedAt = m.now().UTC()
	m.st.screenings[s.ID] = *s
	return nil
}

func (m *memQueries) UpdateScreening(_ context.Context, s model.Screening) error {
	defer m.lock()()
	old, ok := m.st.screenings[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = old.CreatedAt
	m.st.screenings[s.ID] = s
	return nil
}

func (m *memQueries) DeleteScreening(_ context.Context, id uint64) error {
	defer m.lock()()
	if _, ok := m.st.screenings[id]; !ok {
		return ErrNotFound
	}
	for _, r := range m.st.reservations {
		if r.ScreeningID == id {
			return ErrConflict
		}
	}
	delete(m.st.screenings, id)
	return nil
}

func (m *memQueries) GetScreening(_ context.Context, id uint64) (model.Screening, error) {
	defer m.lock()()
	s, ok := m.st.screenings[id]
	if !ok {
		return model.Screening{}, ErrNotFound
	}
	return s, nil
}

func (m *memQueries) filterScreenings(keep func(model.Screening) bool) []model.Screening {
	var out []model.Screening
	for _, s := range m.st.screenings {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (m *memQueries) ListScreenings(_ context.Context, f ScreeningFilter) ([]model.Screening, error) {
	defer m.lock()()
	return m.filterScreenings(func(s model.Screening) bool {
		switch {
		case f.MovieID != 0 && s.MovieID != f.MovieID:
			return false
		case f.RoomID != 0 && s.RoomID != f.RoomID:
			return false
		case !f.From.IsZero() && s.StartTime.Before(f.From):
			return false
		case !f.To.IsZero() && s.StartTime.After(f.To):
			return false
		}
		return true
	}), nil
}

func (m *memQueries) FindOverlapping(_ context.Context, roomID uint64, start, end time.Time, excludeID uint64) ([]model.Screening, error) {
	defer m.lock()()
	return m.filterScreenings(func(s model.Screening) bool {
		return s.RoomID == roomID && s.ID != excludeID && s.Overlaps(start, end)
	}), nil
}

func (m *memQueries) NextScreeningFrom(_ context.Context, roomID uint64, from time.Time, excludeID uint64) (model.Screening, error) {
	defer m.lock()()
	next := m.filterScreenings(func(s model.Screening) bool {
		return s.RoomID == roomID && s.ID != excludeID && !s.StartTime.Before(from)
	})
	if len(next) == 0 {
		return model.Screening{}, ErrNotFound
	}
	return next[0], nil
}

func (m *memQueries) LockScreening(_ context.Context, id uint64) error {
	defer m.lock()()
	if _, ok := m.st.screenings[id]; !ok {
		return ErrNotFound
	}
	return nil
}

// reservations

func (m *memQueries) withClaims(r model.Reservation) model.Reservation {
	var claims []model.SeatClaim
	for _, c := range m.st.claims {
		if c.ReservationID == r.ID {
			claims = append(claims, c)
		}
	}
	sort.Slice(claims, func(i, j int) bool { return claims[i].ID < claims[j].ID })
	r.Claims = claims
	return r
}

func (m *memQueries) addClaims(reservationID uint64, seatIDs []uint64) error {
	for _, c := range m.st.claims {
		if c.ReservationID != reservationID {
			continue
		}
		for _, id := range seatIDs {
			if c.SeatID == id {
				return ErrDuplicate
			}
		}
	}
	for _, id := range seatIDs {
		cid := m.st.nextID()
		m.st.claims[cid] = model.SeatClaim{ID: cid, ReservationID: reservationID, SeatID: id}
	}
	return nil
}

func (m *memQueries) CreateReservation(_ context.Context, r *model.Reservation) error {
	defer m.lock()()
	seatIDs := r.SeatIDs()
	r.ID = m.st.nextID()
	r.UpdatedAt = r.CreatedAt
	stored := *r
	stored.Claims = nil
	m.st.reservations[r.ID] = stored
	if err := m.addClaims(r.ID, seatIDs); err != nil {
		return err
	}
	*r = m.withClaims(stored)
	return nil
}

func (m *memQueries) GetReservation(_ context.Context, id uint64) (model.Reservation, error) {
	defer m.lock()()
	r, ok := m.st.reservations[id]
	if !ok {
		return model.Reservation{}, ErrNotFound
	}
	return m.withClaims(r), nil
}

func (m *memQueries) ListReservations(_ context.Context, f ReservationFilter) ([]model.Reservation, error) {
	defer m.lock()()
	var out []model.Reservation
	for _, r := range m.st.reservations {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if f.ScreeningID != 0 && r.ScreeningID != f.ScreeningID {
			continue
		}
		out = append(out, m.withClaims(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memQueries) AddClaims(_ context.Context, reservationID uint64, seatIDs []uint64) error {
	defer m.lock()()
	if _, ok := m.st.reservations[reservationID]; !ok {
		return ErrNotFound
	}
	return m.addClaims(reservationID, seatIDs)
}

func (m *memQueries) RemoveClaims(_ context.Context, reservationID uint64, seatIDs []uint64) (int64, error) {
	defer m.lock()()
	drop := make(map[uint64]bool, len(seatIDs))
	for _, id := range seatIDs {
		drop[id] = true
	}
	var n int64
	for cid, c := range m.st.claims {
		if c.ReservationID == reservationID && drop[c.SeatID] {
			delete(m.st.claims, cid)
			n++
		}
	}
	return n, nil
}

// activeClaims returns the seat ids held by non-cancelled reservations
// of the screening.
func (m *memQueries) activeClaims(screeningID uint64) []uint64 {
	var ids []uint64
	for _, c := range m.st.claims {
		r, ok := m.st.reservations[c.ReservationID]
		if ok && r.ScreeningID == screeningID && r.Status != model.ReservationCancelled {
			ids = append(ids, c.SeatID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *memQueries) ActiveClaimExists(_ context.Context, screeningID, seatID uint64) (bool, error) {
	defer m.lock()()
	for _, id := range m.activeClaims(screeningID) {
		if id == seatID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memQueries) ActiveClaimedSeats(_ context.Context, screeningID uint64) ([]uint64, error) {
	defer m.lock()()
	return m.activeClaims(screeningID), nil
}

func (m *memQueries) CountActiveClaims(_ context.Context, screeningID uint64) (int, error) {
	defer m.lock()()
	return len(m.activeClaims(screeningID)), nil
}

func (m *memQueries) CountReservationsForScreening(_ context.Context, screeningID uint64) (int, error) {
	defer m.lock()()
	n := 0
	for _, r := range m.st.reservations {
		if r.ScreeningID == screeningID {
			n++
		}
	}
	return n, nil
}

func (m *memQueries) TransitionReservation(_ context.Context, id uint64, from, to model.ReservationStatus, at time.Time) (bool, error) {
	defer m.lock()()
	r, ok := m.st.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = at.UTC()
	m.st.reservations[id] = r
	return true, nil
}

func (m *memQueries) ListStalePending(_ context.Context, cutoff time.Time, limit int) ([]model.Reservation, error) {
	defer m.lock()()
	var out []model.Reservation
	for _, r := range m.st.reservations {
		if r.Status == model.ReservationPending && r.CreatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// payments

func (m *memQueries) UpsertPayment(_ context.Context, p *model.Payment) error {
	defer m.lock()()
	now := m.now().UTC()
	for id, existing := range m.st.payments {
		if existing.ReservationID == p.ReservationID {
			p.ID = id
			p.CreatedAt = existing.CreatedAt
			p.UpdatedAt = now
			m.st.payments[id] = *p
			return nil
		}
	}
	if p.SessionID != "" {
		for _, existing := range m.st.payments {
			if existing.SessionID == p.SessionID {
				return ErrDuplicate
			}
		}
	}
	p.ID = m.st.nextID()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.st.payments[p.ID] = *p
	return nil
}

func (m *memQueries) findPayment(match func(model.Payment) bool) (model.Payment, error) {
	var (
		found model.Payment
		ok    bool
	)
	for _, p := range m.st.payments {
		if match(p) && (!ok || p.ID > found.ID) {
			found, ok = p, true
		}
	}
	if !ok {
		return model.Payment{}, ErrNotFound
	}
	return found, nil
}

func (m *memQueries) GetPaymentByReservation(_ context.Context, reservationID uint64) (model.Payment, error) {
	defer m.lock()()
	return m.findPayment(func(p model.Payment) bool { return p.ReservationID == reservationID })
}

func (m *memQueries) GetPaymentBySession(_ context.Context, sessionID string) (model.Payment, error) {
	defer m.lock()()
	if sessionID == "" {
		return model.Payment{}, ErrNotFound
	}
	return m.findPayment(func(p model.Payment) bool { return p.SessionID == sessionID })
}

func (m *memQueries) GetPaymentByIntent(_ context.Context, intentID string) (model.Payment, error) {
	defer m.lock()()
	if intentID == "" {
		return model.Payment{}, ErrNotFound
	}
	return m.findPayment(func(p model.Payment) bool { return p.PaymentIntentID == intentID })
}

func (m *memQueries) SetPaymentIntent(_ context.Context, paymentID uint64, intentID string) error {
	defer m.lock()()
	p, ok := m.st.payments[paymentID]
	if !ok {
		return ErrNotFound
	}
	p.PaymentIntentID = intentID
	p.UpdatedAt = m.now().UTC()
	m.st.payments[paymentID] = p
	return nil
}

func (m *memQueries) TransitionPayment(_ context.Context, id uint64, from, to model.PaymentStatus, at time.Time) (bool, error) {
	defer m.lock()()
	p, ok := m.st.payments[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = at.UTC()
	m.st.payments[id] = p
	return true, nil
}
