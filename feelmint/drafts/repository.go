package drafts

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when no draft exists for a task id.
var ErrNotFound = errors.New("drafts: not found")

type Repository interface {
	// Upsert saves a draft, replacing any existing draft for the same task id.
	Upsert(ctx context.Context, record *Record) error
	Get(ctx context.Context, taskID string) (*Record, error)
	List(ctx context.Context) ([]*Record, error)
	Delete(ctx context.Context, taskID string) error
}

type draftRepository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) Repository {
	return &draftRepository{db: db}
}

func (r *draftRepository) Upsert(ctx context.Context, record *Record) error {
	record.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (task_id) DO UPDATE").
		Set("photo = EXCLUDED.photo").
		Set("photo_mime = EXCLUDED.photo_mime").
		Set("answers = EXCLUDED.answers").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		slog.Error("Failed to save draft",
			slog.String("type", "db"),
			slog.String("task_id", record.TaskID),
			slog.Any("error", err))
	}
	return err
}

func (r *draftRepository) Get(ctx context.Context, taskID string) (*Record, error) {
	record := new(Record)
	err := r.db.NewSelect().
		Model(record).
		Where("task_id = ?", taskID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		slog.Error("Failed to load draft",
			slog.String("type", "db"),
			slog.String("task_id", taskID),
			slog.Any("error", err))
		return nil, err
	}
	return record, nil
}

func (r *draftRepository) List(ctx context.Context) ([]*Record, error) {
	var records []*Record
	err := r.db.NewSelect().
		Model(&records).
		Order("updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *draftRepository) Delete(ctx context.Context, taskID string) error {
	_, err := r.db.NewDelete().
		Model((*Record)(nil)).
		Where("task_id = ?", taskID).
		Exec(ctx)
	return err
}
