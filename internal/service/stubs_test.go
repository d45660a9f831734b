package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/model"

	"gorm.io/gorm"
)

// ── In-memory StationRepository stub ─────────────────────────────────────────

type stubStationRepo struct {
	mu       sync.Mutex
	stations map[uint]*model.Station
	nextID   uint
	updates  int
}

func newStubStationRepo() *stubStationRepo {
	return &stubStationRepo{stations: make(map[uint]*model.Station), nextID: 1}
}

func (r *stubStationRepo) Create(_ context.Context, s *model.Station) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.nextID
	r.nextID++
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	cloned := *s
	cloned.FuelConfig = append([]model.FuelType(nil), s.FuelConfig...)
	r.stations[s.ID] = &cloned
	return nil
}

func (r *stubStationRepo) FindByID(_ context.Context, id uint) (*model.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *s
	cloned.FuelConfig = append([]model.FuelType(nil), s.FuelConfig...)
	return &cloned, nil
}

func (r *stubStationRepo) Exists(_ context.Context, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.stations[id]
	return ok, nil
}

func (r *stubStationRepo) List(_ context.Context) ([]model.Station, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Station, 0, len(r.stations))
	for _, s := range r.stations {
		cloned := *s
		cloned.FuelConfig = append([]model.FuelType(nil), s.FuelConfig...)
		out = append(out, cloned)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubStationRepo) Sample(ctx context.Context, limit int) ([]model.Station, error) {
	all, _ := r.List(ctx)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *stubStationRepo) UpdateFuelConfig(_ context.Context, id uint, fuels []model.FuelType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stations[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.FuelConfig = append([]model.FuelType(nil), fuels...)
	r.updates++
	return nil
}

func (r *stubStationRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.stations)), nil
}

// ── In-memory PriceRepository stub ───────────────────────────────────────────
// Latest* return every matching row; the service is expected to pick.

type stubPriceRepo struct {
	mu      sync.Mutex
	rows    []model.PriceObservation
	nextID  uint
	failAll bool
}

func newStubPriceRepo() *stubPriceRepo { return &stubPriceRepo{nextID: 1} }

func (r *stubPriceRepo) Create(ctx context.Context, o *model.PriceObservation) error {
	rows := []model.PriceObservation{*o}
	if err := r.CreateBatch(ctx, rows); err != nil {
		return err
	}
	o.ID = rows[0].ID
	return nil
}

func (r *stubPriceRepo) CreateBatch(_ context.Context, rows []model.PriceObservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return errors.New("ledger unavailable")
	}
	for i := range rows {
		rows[i].ID = r.nextID
		r.nextID++
		r.rows = append(r.rows, rows[i])
	}
	return nil
}

func (r *stubPriceRepo) ListHistory(_ context.Context, stationID uint, fuelTypeID string, limit int) ([]model.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PriceObservation
	for _, o := range r.rows {
		if o.StationID == stationID && o.FuelTypeID == fuelTypeID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPriceRepo) LatestForStation(_ context.Context, stationID uint) ([]model.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.PriceObservation
	for _, o := range r.rows {
		if o.StationID == stationID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *stubPriceRepo) LatestAll(_ context.Context) ([]model.PriceObservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PriceObservation(nil), r.rows...), nil
}

func (r *stubPriceRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.rows)), nil
}

// ── In-memory UserRepository stub ────────────────────────────────────────────

type stubUserRepo struct {
	mu     sync.Mutex
	users  map[uint]*model.User
	nextID uint
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uint]*model.User), nextID: 1}
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = r.nextID
	r.nextID++
	cloned := *u
	r.users[u.ID] = &cloned
	return nil
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			cloned := *u
			return &cloned, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cloned := *u
	return &cloned, nil
}

func (r *stubUserRepo) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cloned := *u
	r.users[u.ID] = &cloned
	return nil
}

// ── Recording collaborators ──────────────────────────────────────────────────

type recordingSink struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (s *recordingSink) Record(_ context.Context, e AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
}

func (s *recordingSink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Action
	}
	return out
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]model.PriceObservation
}

func (n *recordingNotifier) PricesRecorded(_ context.Context, rows []model.PriceObservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, append([]model.PriceObservation(nil), rows...))
}

// stepClock returns t0, t0+1s, t0+2s, ...
func stepClock(t0 time.Time) func() time.Time {
	var mu sync.Mutex
	next := t0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }
