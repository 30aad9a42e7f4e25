package partogram

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iMprov00/PartogramDARV2/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

const entryCols = `id, patient_id, time, fetal_heart_rate, decelerations, amniotic_fluid,
	presentation, caput, molding, maternal_pulse, blood_pressure, temperature,
	urination, contraction_frequency, contraction_duration, pushing,
	cervical_dilation, head_descent, oxytocin, medications, iv_fluids, created_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PatientID, &e.Time, &e.FetalHeartRate, &e.Decelerations, &e.AmnioticFluid,
		&e.Presentation, &e.Caput, &e.Molding, &e.MaternalPulse, &e.BloodPressure, &e.Temperature,
		&e.Urination, &e.ContractionFrequency, &e.ContractionDuration, &e.Pushing,
		&e.CervicalDilation, &e.HeadDescent, &e.Oxytocin, &e.Medications, &e.IVFluids, &e.CreatedAt)
	return &e, err
}

func (r *repoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO partogram_entries (id, patient_id, time, fetal_heart_rate, decelerations, amniotic_fluid,
			presentation, caput, molding, maternal_pulse, blood_pressure, temperature,
			urination, contraction_frequency, contraction_duration, pushing,
			cervical_dilation, head_descent, oxytocin, medications, iv_fluids)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING created_at`,
		e.ID, e.PatientID, e.Time, e.FetalHeartRate, e.Decelerations, e.AmnioticFluid,
		e.Presentation, e.Caput, e.Molding, e.MaternalPulse, e.BloodPressure, e.Temperature,
		e.Urination, e.ContractionFrequency, e.ContractionDuration, e.Pushing,
		e.CervicalDilation, e.HeadDescent, e.Oxytocin, e.Medications, e.IVFluids).
		Scan(&e.CreatedAt)
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM partogram_entries
		WHERE patient_id = $1
		ORDER BY time DESC, created_at DESC, id`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repoPG) ListPage(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM partogram_entries WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+entryCols+` FROM partogram_entries
		WHERE patient_id = $1
		ORDER BY time DESC, created_at DESC, id
		LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func (r *repoPG) Delete(ctx context.Context, patientID, entryID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM partogram_entries WHERE id = $1 AND patient_id = $2`, entryID, patientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (r *repoPG) LatestSnapshots(ctx context.Context, patientIDs []uuid.UUID) (map[uuid.UUID]Snapshot, error) {
	snapshots := make(map[uuid.UUID]Snapshot, len(patientIDs))
	if len(patientIDs) == 0 {
		return snapshots, nil
	}

	// One statement, one MVCC snapshot: the latest entry time and the latest
	// recorded dilation always describe the same moment, even while entries
	// are being inserted concurrently.
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT ON (e.patient_id) e.patient_id, e.time,
			(SELECT d.cervical_dilation
			 FROM partogram_entries d
			 WHERE d.patient_id = e.patient_id AND d.cervical_dilation IS NOT NULL
			 ORDER BY d.time DESC, d.created_at DESC, d.id
			 LIMIT 1)
		FROM partogram_entries e
		WHERE e.patient_id = ANY($1)
		ORDER BY e.patient_id, e.time DESC, e.created_at DESC, e.id`, patientIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id uuid.UUID
		var snap Snapshot
		if err := rows.Scan(&id, &snap.LastEntryTime, &snap.LastDilation); err != nil {
			return nil, err
		}
		snapshots[id] = snap
	}
	return snapshots, rows.Err()
}
