package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/mentor-booking-api/internal/models"
)

// AvailabilityRepository stores one weekly template per mentor.
type AvailabilityRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewAvailabilityRepository constructs the repository. logger may be nil.
func NewAvailabilityRepository(db *sqlx.DB, logger *zap.Logger) *AvailabilityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityRepository{db: db, logger: logger}
}

type availabilityRow struct {
	MentorID            string         `db:"mentor_id"`
	SlotDurationMinutes int            `db:"slot_duration_minutes"`
	Windows             types.JSONText `db:"windows"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
}

func (row *availabilityRow) toModel(logger *zap.Logger) *models.AvailabilityTemplate {
	createdAt, updatedAt := row.CreatedAt.UTC(), row.UpdatedAt.UTC()
	return &models.AvailabilityTemplate{
		MentorID:            row.MentorID,
		SlotDurationMinutes: row.SlotDurationMinutes,
		Windows:             decodeWindows(row.MentorID, row.Windows, logger),
		CreatedAt:           &createdAt,
		UpdatedAt:           &updatedAt,
	}
}

// decodeWindows decodes stored windows one at a time. Entries that do not
// decode are logged and skipped so one bad window never hides the rest.
func decodeWindows(mentorID string, raw types.JSONText, logger *zap.Logger) []models.WeeklyWindow {
	windows := []models.WeeklyWindow{}
	if len(raw) == 0 {
		return windows
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn("stored availability windows are not a list", zap.String("mentor_id", mentorID), zap.Error(err))
		return windows
	}
	for i, item := range items {
		var window models.WeeklyWindow
		if err := json.Unmarshal(item, &window); err != nil {
			logger.Warn("skipping undecodable availability window",
				zap.String("mentor_id", mentorID),
				zap.Int("index", i),
				zap.Error(err),
			)
			continue
		}
		windows = append(windows, window)
	}
	return windows
}

const availabilityColumns = `mentor_id, slot_duration_minutes, windows, created_at, updated_at`

// GetByMentor returns the stored template, or sql.ErrNoRows when the mentor never saved one.
func (r *AvailabilityRepository) GetByMentor(ctx context.Context, mentorID string) (*models.AvailabilityTemplate, error) {
	query := r.db.Rebind(`SELECT ` + availabilityColumns + ` FROM availability_templates WHERE mentor_id = ?`)
	var row availabilityRow
	if err := r.db.GetContext(ctx, &row, query, mentorID); err != nil {
		return nil, err
	}
	return row.toModel(r.logger), nil
}

// Upsert replaces the mentor's template wholesale in a single statement and
// returns the stored row.
func (r *AvailabilityRepository) Upsert(ctx context.Context, tpl *models.AvailabilityTemplate) (*models.AvailabilityTemplate, error) {
	windows := tpl.Windows
	if windows == nil {
		windows = []models.WeeklyWindow{}
	}
	payload, err := json.Marshal(windows)
	if err != nil {
		return nil, fmt.Errorf("encode windows: %w", err)
	}

	now := time.Now().UTC()
	query := r.db.Rebind(`INSERT INTO availability_templates (` + availabilityColumns + `)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (mentor_id) DO UPDATE
		SET slot_duration_minutes = EXCLUDED.slot_duration_minutes,
		    windows = EXCLUDED.windows,
		    updated_at = EXCLUDED.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, tpl.MentorID, tpl.SlotDurationMinutes, types.JSONText(payload), now, now); err != nil {
		return nil, fmt.Errorf("upsert availability template: %w", err)
	}

	stored, err := r.GetByMentor(ctx, tpl.MentorID)
	if err != nil {
		return nil, fmt.Errorf("reload availability template: %w", err)
	}
	return stored, nil
}
