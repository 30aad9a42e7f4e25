package partogram

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/iMprov00/PartogramDARV2/internal/domain/patient"
)

// -- Fake Clock --

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// -- Mock Repositories --

type mockPatientRepo struct {
	records map[uuid.UUID]*patient.Patient
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{records: make(map[uuid.UUID]*patient.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *patient.Patient) error {
	p.ID = uuid.New()
	m.records[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.records[id]
	if !ok {
		return nil, patient.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *mockPatientRepo) Update(_ context.Context, p *patient.Patient) error {
	if _, ok := m.records[p.ID]; !ok {
		return patient.ErrNotFound
	}
	m.records[p.ID] = p
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.records, id)
	return nil
}

func (m *mockPatientRepo) Search(_ context.Context, filter patient.SearchFilter, limit, offset int) ([]*patient.Patient, int, error) {
	var result []*patient.Patient
	for _, p := range m.records {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Name != "" && !strings.Contains(p.FullName, filter.Name) {
			continue
		}
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].FullName < result[j].FullName })
	return result, len(result), nil
}

func (m *mockPatientRepo) StartLabor(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	p, ok := m.records[id]
	if !ok || p.Status != patient.StatusNotStarted {
		return false, nil
	}
	p.Status = patient.StatusInProgress
	start := at
	p.LaborStart = &start
	return true, nil
}

func (m *mockPatientRepo) Complete(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	p, ok := m.records[id]
	if !ok || p.Status != patient.StatusInProgress {
		return false, nil
	}
	p.Status = patient.StatusCompleted
	end := at
	p.LaborEnd = &end
	return true, nil
}

type mockEntryRepo struct {
	entries []*Entry
}

func newMockEntryRepo() *mockEntryRepo {
	return &mockEntryRepo{}
}

func (m *mockEntryRepo) Create(_ context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, e)
	return nil
}

func (m *mockEntryRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Entry, error) {
	// Newest insertion first, then stable sort by time descending, so
	// ties on time resolve to the most recently created entry.
	var result []*Entry
	for i := len(m.entries) - 1; i >= 0; i-- {
		if m.entries[i].PatientID == patientID {
			result = append(result, m.entries[i])
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Time.After(result[j].Time) })
	return result, nil
}

func (m *mockEntryRepo) ListPage(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	all, err := m.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, 0, err
	}
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *mockEntryRepo) Delete(_ context.Context, patientID, entryID uuid.UUID) error {
	for i, e := range m.entries {
		if e.ID == entryID && e.PatientID == patientID {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

func (m *mockEntryRepo) LatestSnapshots(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	snapshots := make(map[uuid.UUID]Snapshot)
	for _, id := range patientIDs {
		history, _ := m.ListByPatient(ctx, id)
		if len(history) == 0 {
			continue
		}
		snap := Snapshot{LastEntryTime: timePtr(history[0].Time)}
		for _, e := range history {
			if e.CervicalDilation != nil {
				snap.LastDilation = e.CervicalDilation
				break
			}
		}
		snapshots[id] = snap
	}
	return snapshots, nil
}

func passthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockPatientRepo, *mockEntryRepo, *fakeClock) {
	patients := newMockPatientRepo()
	entries := newMockEntryRepo()
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	svc := NewService(entries, patients, clock, passthroughTx, false)
	return svc, patients, entries, clock
}

func admit(t *testing.T, patients *mockPatientRepo) uuid.UUID {
	t.Helper()
	p := &patient.Patient{FullName: "Иванова Мария", Status: patient.StatusNotStarted}
	if err := patients.Create(context.Background(), p); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	return p.ID
}

// -- Tests --

func TestRecordEntry_FirstMeasurementStartsLabor(t *testing.T) {
	svc, patients, _, clock := newTestService()
	id := admit(t, patients)
	t0 := clock.Now()

	state, err := svc.RecordEntry(context.Background(), id, &Entry{CervicalDilation: intPtr(8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, _ := patients.GetByID(context.Background(), id)
	if p.Status != patient.StatusInProgress {
		t.Errorf("expected in_progress, got %q", p.Status)
	}
	if p.LaborStart == nil || !p.LaborStart.Equal(t0) {
		t.Errorf("expected labor_start %v, got %v", t0, p.LaborStart)
	}
	if state.Period != 1 || state.RemainingSeconds != 1800 {
		t.Errorf("expected period 1 with 1800s, got %d / %d", state.Period, state.RemainingSeconds)
	}

	// A second measurement must not move labor_start.
	clock.Advance(5 * time.Minute)
	if _, err := svc.RecordEntry(context.Background(), id, &Entry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ = patients.GetByID(context.Background(), id)
	if !p.LaborStart.Equal(t0) {
		t.Errorf("labor_start changed on second measurement: %v", p.LaborStart)
	}
}

func TestRecordEntry_PeriodTransitionScenario(t *testing.T) {
	svc, patients, _, clock := newTestService()
	id := admit(t, patients)

	state, err := svc.RecordEntry(context.Background(), id, &Entry{CervicalDilation: intPtr(8)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Period != 1 || state.IntervalMinutes != 30 || state.RemainingSeconds != 1800 {
		t.Fatalf("expected period 1 / 30 min / 1800s, got %d / %d / %d",
			state.Period, state.IntervalMinutes, state.RemainingSeconds)
	}

	clock.Advance(31 * time.Minute)
	state, err = svc.RecordEntry(context.Background(), id, &Entry{CervicalDilation: intPtr(10)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Period != 2 || state.IntervalMinutes != 15 || state.RemainingSeconds != 900 {
		t.Errorf("expected period 2 / 15 min / 900s, got %d / %d / %d",
			state.Period, state.IntervalMinutes, state.RemainingSeconds)
	}
}

func TestRecordEntry_CompletedRejected(t *testing.T) {
	svc, patients, entries, _ := newTestService()
	id := admit(t, patients)

	if _, err := svc.RecordEntry(context.Background(), id, &Entry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.CompleteLabor(context.Background(), id); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := len(entries.entries)
	_, err := svc.RecordEntry(context.Background(), id, &Entry{})
	if !errors.Is(err, ErrLaborCompleted) {
		t.Errorf("expected ErrLaborCompleted, got %v", err)
	}
	if len(entries.entries) != before {
		t.Error("no measurement must be persisted after completion")
	}
}

func TestRecordEntry_ValidationRejects(t *testing.T) {
	svc, patients, entries, _ := newTestService()
	id := admit(t, patients)

	tests := []struct {
		name  string
		entry *Entry
	}{
		{"fetal heart rate too high", &Entry{FetalHeartRate: intPtr(300)}},
		{"fetal heart rate zero", &Entry{FetalHeartRate: intPtr(0)}},
		{"pulse too high", &Entry{MaternalPulse: intPtr(200)}},
		{"temperature too low", &Entry{Temperature: floatPtr(34.5)}},
		{"temperature at lower bound", &Entry{Temperature: floatPtr(35.0)}},
		{"temperature at upper bound", &Entry{Temperature: floatPtr(42.0)}},
		{"dilation out of range", &Entry{CervicalDilation: intPtr(11)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordEntry(context.Background(), id, tt.entry)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("expected ValidationError, got %v", err)
			}
		})
	}

	if len(entries.entries) != 0 {
		t.Error("nothing must be persisted on validation failure")
	}
	p, _ := patients.GetByID(context.Background(), id)
	if p.Status != patient.StatusNotStarted {
		t.Errorf("status must stay not_started on validation failure, got %q", p.Status)
	}
}

func TestRecordEntry_BackdatedPolicy(t *testing.T) {
	svc, patients, _, clock := newTestService()
	id := admit(t, patients)

	if _, err := svc.RecordEntry(context.Background(), id, &Entry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(10 * time.Minute)

	backdated := &Entry{Time: clock.Now().Add(-time.Hour)}
	_, err := svc.RecordEntry(context.Background(), id, backdated)
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "time" {
		t.Errorf("expected time validation error, got %v", err)
	}

	// Same insert passes once backdating is allowed by policy.
	svc.allowBackdated = true
	if _, err := svc.RecordEntry(context.Background(), id, backdated); err != nil {
		t.Errorf("expected backdated entry accepted, got %v", err)
	}
}

func TestCompleteLabor_Idempotent(t *testing.T) {
	svc, patients, _, _ := newTestService()
	id := admit(t, patients)

	if _, err := svc.RecordEntry(context.Background(), id, &Entry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := svc.CompleteLabor(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != patient.StatusCompleted {
		t.Errorf("expected completed, got %q", p.Status)
	}

	p, err = svc.CompleteLabor(context.Background(), id)
	if err != nil {
		t.Fatalf("second completion must be a no-op success, got %v", err)
	}
	if p.Status != patient.StatusCompleted {
		t.Errorf("expected completed, got %q", p.Status)
	}
}

func TestCompleteLabor_NotStartedRejected(t *testing.T) {
	svc, patients, _, _ := newTestService()
	id := admit(t, patients)

	_, err := svc.CompleteLabor(context.Background(), id)
	if !errors.Is(err, ErrLaborNotStarted) {
		t.Errorf("expected ErrLaborNotStarted, got %v", err)
	}
}

func TestDeleteEntry_TimerRecomputes(t *testing.T) {
	svc, patients, _, clock := newTestService()
	id := admit(t, patients)
	t0 := clock.Now()

	if _, err := svc.RecordEntry(context.Background(), id, &Entry{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(20 * time.Minute)
	state, err := svc.RecordEntry(context.Background(), id, &Entry{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	latest := *state.LastMeasurementTime

	history, _ := svc.entries.ListByPatient(context.Background(), id)
	if !history[0].Time.Equal(latest) {
		t.Fatalf("setup: expected newest entry to be the anchor")
	}
	if err := svc.DeleteEntry(context.Background(), id, history[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	state2, err := svc.TimerState(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state2.LastMeasurementTime == nil || !state2.LastMeasurementTime.Equal(t0) {
		t.Errorf("expected anchor back on first entry %v, got %v", t0, state2.LastMeasurementTime)
	}

	// Delete the remaining entry: anchor falls back to labor start.
	history, _ = svc.entries.ListByPatient(context.Background(), id)
	if err := svc.DeleteEntry(context.Background(), id, history[0].ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	state3, err := svc.TimerState(context.Background(), id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state3.LastMeasurementTime != nil {
		t.Error("expected no last measurement time after deleting all entries")
	}
	if state3.NextMeasurementTime == nil || !state3.NextMeasurementTime.Equal(t0.Add(30*time.Minute)) {
		t.Errorf("expected next due from labor start, got %v", state3.NextMeasurementTime)
	}
}

func TestDeleteEntry_NotFound(t *testing.T) {
	svc, patients, _, _ := newTestService()
	id := admit(t, patients)

	err := svc.DeleteEntry(context.Background(), id, uuid.New())
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestTimerState_PatientNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.TimerState(context.Background(), uuid.New())
	if !errors.Is(err, patient.ErrNotFound) {
		t.Errorf("expected patient.ErrNotFound, got %v", err)
	}
}

func TestTimerStates_Bulk(t *testing.T) {
	svc, patients, _, clock := newTestService()

	// One patient in each labor phase.
	idle := &patient.Patient{FullName: "А. Ожидает", Status: patient.StatusNotStarted}
	patients.Create(context.Background(), idle)

	active := &patient.Patient{FullName: "Б. В родах", Status: patient.StatusNotStarted}
	patients.Create(context.Background(), active)
	if _, err := svc.RecordEntry(context.Background(), active.ID, &Entry{CervicalDilation: intPtr(10)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(5 * time.Minute)

	states, total, err := svc.TimerStates(context.Background(), patient.SearchFilter{}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || len(states) != 2 {
		t.Fatalf("expected 2 states, got %d (total %d)", len(states), total)
	}

	byID := make(map[uuid.UUID]TimerState)
	for _, st := range states {
		byID[st.PatientID] = st
	}

	if st := byID[idle.ID]; st.RemainingSeconds != 0 || st.Status != patient.StatusNotStarted {
		t.Errorf("unexpected idle state: %+v", st)
	}
	st := byID[active.ID]
	if st.Period != 2 || st.IntervalMinutes != 15 {
		t.Errorf("expected period 2 / 15 min, got %d / %d", st.Period, st.IntervalMinutes)
	}
	if st.RemainingSeconds != 600 {
		t.Errorf("expected 600s remaining, got %d", st.RemainingSeconds)
	}
	if st.StatusColor != "danger" {
		t.Errorf("expected danger color, got %q", st.StatusColor)
	}
}
