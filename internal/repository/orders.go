package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/pickers-market/internal/model"
)

// OrderTx операции, доступные внутри транзакции оформления заказа.
type OrderTx interface {
	InsertOrder(ctx context.Context, o *model.Order) error
	DebitBalance(ctx context.Context, userID uuid.UUID, amount int64) error
	CompleteOrder(ctx context.Context, orderID uuid.UUID) error
	IncrementDownloadCount(ctx context.Context, pickerID uuid.UUID) error
}

type orderTx struct {
	tx pgx.Tx
}

// InsertOrder сохраняет строку заказа.
func (t *orderTx) InsertOrder(ctx context.Context, o *model.Order) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO orders (id, buyer_id, picker_id, amount, method, status, external_tx_ref, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		o.ID, o.BuyerID, o.PickerID, o.Amount, string(o.Method), string(o.Status), o.ExternalTxRef, o.CreatedAt, o.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// DebitBalance списывает amount с баланса. Условие в WHERE не даёт балансу
// уйти в минус даже при параллельных покупках: строка пользователя
// блокируется обновлением до конца транзакции.
func (t *orderTx) DebitBalance(ctx context.Context, userID uuid.UUID, amount int64) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE users SET balance = balance - $2 WHERE id = $1 AND balance >= $2`,
		userID, amount,
	)
	if err != nil {
		return fmt.Errorf("debit balance: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrInsufficientBalance
	}
	return nil
}

// CompleteOrder переводит заказ в статус completed.
func (t *orderTx) CompleteOrder(ctx context.Context, orderID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`,
		orderID, string(model.OrderStatusCompleted),
	)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrOrderNotFound
	}
	return nil
}

// IncrementDownloadCount увеличивает счётчик скачиваний пикера на единицу.
func (t *orderTx) IncrementDownloadCount(ctx context.Context, pickerID uuid.UUID) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE pickers SET download_count = download_count + 1 WHERE id = $1`,
		pickerID,
	)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return ErrPickerNotFound
	}
	return nil
}

const orderViewColumns = `o.id, o.buyer_id, o.picker_id, o.amount, o.method, o.status,
	o.external_tx_ref, o.created_at, o.expires_at, p.alias`

// GetOrder возвращает заказ пользователя вместе с названием пикера.
func (r *PostgresRepository) GetOrder(ctx context.Context, buyerID, orderID uuid.UUID) (*model.OrderView, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+orderViewColumns+`
		 FROM orders o JOIN pickers p ON p.id = o.picker_id
		 WHERE o.id = $1 AND o.buyer_id = $2`,
		orderID, buyerID,
	)

	v, err := scanOrderView(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListOrders возвращает страницу заказов пользователя, новые первыми,
// и общее число заказов. status, если задан, фильтрует по статусу.
func (r *PostgresRepository) ListOrders(ctx context.Context, buyerID uuid.UUID, status *model.OrderStatus, page model.Page) ([]model.OrderView, int64, error) {
	where := `WHERE o.buyer_id = $1`
	args := []any{buyerID}
	if status != nil {
		where += ` AND o.status = $2`
		args = append(args, string(*status))
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders o `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	limitPos := len(args) + 1
	query := fmt.Sprintf(`SELECT %s FROM orders o JOIN pickers p ON p.id = o.picker_id %s
		ORDER BY o.created_at DESC LIMIT $%d OFFSET $%d`,
		orderViewColumns, where, limitPos, limitPos+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.OrderView
	for rows.Next() {
		v, err := scanOrderView(rows)
		if err != nil {
			return nil, 0, err
		}
		res = append(res, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// GetCompletedOrderPicker возвращает пикер завершённого заказа. Пикер
// отдаётся и после снятия с продажи: оплаченный файл остаётся доступен.
func (r *PostgresRepository) GetCompletedOrderPicker(ctx context.Context, orderID uuid.UUID) (*model.Picker, error) {
	row := r.db.QueryRow(ctx,
		`SELECT p.id, p.developer_id, p.alias, p.description, p.price, p.version, p.image_path, p.file_path,
		        p.status, p.download_count, p.created_at, p.updated_at
		 FROM orders o JOIN pickers p ON p.id = o.picker_id
		 WHERE o.id = $1 AND o.status = $2`,
		orderID, string(model.OrderStatusCompleted),
	)
	return scanPicker(row)
}

func scanOrderView(row pgx.Row) (*model.OrderView, error) {
	var (
		v      model.OrderView
		method string
		status string
	)
	err := row.Scan(&v.ID, &v.BuyerID, &v.PickerID, &v.Amount, &method, &status,
		&v.ExternalTxRef, &v.CreatedAt, &v.ExpiresAt, &v.PickerAlias)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	v.Method = model.PaymentMethod(method)
	v.Status = model.OrderStatus(status)
	return &v, nil
}
