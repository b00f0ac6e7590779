package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/pickers-market/internal/model"
)

const pickerColumns = `id, developer_id, alias, description, price, version, image_path, file_path,
	status, download_count, created_at, updated_at`

// CreatePicker сохраняет новый пикер.
func (r *PostgresRepository) CreatePicker(ctx context.Context, p *model.Picker) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO pickers (id, developer_id, alias, description, price, version, image_path, file_path, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING download_count, created_at, updated_at`,
		p.ID, p.DeveloperID, p.Alias, p.Description, p.Price, p.Version, p.ImagePath, p.FilePath, string(p.Status),
	).Scan(&p.DownloadCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create picker: %w", err)
	}
	return nil
}

// GetPicker возвращает пикер по идентификатору. При activeOnly неактивный
// пикер считается отсутствующим.
func (r *PostgresRepository) GetPicker(ctx context.Context, id uuid.UUID, activeOnly bool) (*model.Picker, error) {
	query := `SELECT ` + pickerColumns + ` FROM pickers WHERE id = $1`
	args := []any{id}
	if activeOnly {
		query += ` AND status = $2`
		args = append(args, string(model.PickerStatusActive))
	}

	return scanPicker(r.db.QueryRow(ctx, query, args...))
}

// ListActivePickers возвращает страницу активных пикеров и их общее число.
// Пустой keyword отключает поиск по alias и description.
func (r *PostgresRepository) ListActivePickers(ctx context.Context, keyword string, page model.Page) ([]model.Picker, int64, error) {
	where := `WHERE status = $1`
	args := []any{string(model.PickerStatusActive)}
	if keyword != "" {
		where += ` AND (alias ILIKE $2 OR description ILIKE $2)`
		args = append(args, "%"+keyword+"%")
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM pickers `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pickers: %w", err)
	}

	limitPos := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM pickers %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		pickerColumns, where, limitPos, limitPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select pickers: %w", err)
	}
	defer rows.Close()

	var res []model.Picker
	for rows.Next() {
		p, err := scanPicker(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// DeactivatePicker снимает пикер разработчика с продажи.
func (r *PostgresRepository) DeactivatePicker(ctx context.Context, developerID, pickerID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE pickers SET status = $3, updated_at = now()
		 WHERE id = $1 AND developer_id = $2 AND status = $4`,
		pickerID, developerID, string(model.PickerStatusInactive), string(model.PickerStatusActive),
	)
	if err != nil {
		return fmt.Errorf("deactivate picker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPickerNotFound
	}
	return nil
}

func scanPicker(row pgx.Row) (*model.Picker, error) {
	var (
		p      model.Picker
		status string
	)
	err := row.Scan(&p.ID, &p.DeveloperID, &p.Alias, &p.Description, &p.Price, &p.Version,
		&p.ImagePath, &p.FilePath, &status, &p.DownloadCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPickerNotFound
		}
		return nil, fmt.Errorf("scan picker: %w", err)
	}
	p.Status = model.PickerStatus(status)
	return &p, nil
}
