package procurement

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/procureflow/procureflow/internal/budget"
	"github.com/procureflow/procureflow/internal/platform/db"
	"github.com/procureflow/procureflow/internal/sequence"
)

// Repository provides PostgreSQL backed persistence for requisitions, line
// items and purchase orders.
type Repository struct {
	pool     *pgxpool.Pool
	counters *sequence.CounterStore
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, counters: sequence.NewCounterStore()}
}

type txRepo struct {
	tx       pgx.Tx
	counters *sequence.CounterStore
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx, counters: r.counters})
	})
}

const requisitionColumns = `id, tenant_id, number, status, department, branch, needed_by_date,
quantity, estimated_cost, total_items, created_by, COALESCE(approved_by, 0), COALESCE(justification, ''), created_at, updated_at`

func scanRequisition(row pgx.Row) (Requisition, error) {
	var req Requisition
	var status string
	err := row.Scan(&req.ID, &req.TenantID, &req.Number, &status, &req.Department, &req.Branch,
		&req.NeededByDate, &req.Quantity, &req.EstimatedCost, &req.TotalItems,
		&req.CreatedBy, &req.ApprovedBy, &req.Justification, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Requisition{}, ErrNotFound
		}
		return Requisition{}, err
	}
	req.Status = Status(status)
	return req, nil
}

// GetRequisition fetches a requisition within the tenant scope.
func (r *Repository) GetRequisition(ctx context.Context, tenantID, id int64) (Requisition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanRequisition(row)
}

// ListRequisitions returns tenant requisitions, hiding drafts that belong to
// other actors.
func (r *Repository) ListRequisitions(ctx context.Context, tenantID, actorID int64, filter ListFilter) ([]Requisition, int, error) {
	where := ` FROM requisitions
WHERE tenant_id=$1
  AND (status NOT IN ('INITIALIZED','SAVED_FOR_LATER') OR created_by=$2)
  AND ($3 = '' OR status=$3)`
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, tenantID, actorID, string(filter.Status)).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requisitionColumns+where+` ORDER BY id DESC LIMIT $4 OFFSET $5`,
		tenantID, actorID, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Requisition
	for rows.Next() {
		req, err := scanRequisition(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

const lineItemColumns = `id, tenant_id, requisition_id, COALESCE(order_id, 0), COALESCE(supplier_id, 0),
item_name, unit_price, pr_quantity, po_quantity, status`

func scanLineItem(row pgx.Row) (LineItem, error) {
	var l LineItem
	var status string
	err := row.Scan(&l.ID, &l.TenantID, &l.RequisitionID, &l.OrderID, &l.SupplierID,
		&l.ItemName, &l.UnitPrice, &l.PRQuantity, &l.POQuantity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LineItem{}, ErrNotFound
		}
		return LineItem{}, err
	}
	l.Status = LineItemStatus(status)
	return l, nil
}

// GetLineItems returns a requisition's lines ordered by id.
func (r *Repository) GetLineItems(ctx context.Context, tenantID, requisitionID int64) ([]LineItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+lineItemColumns+`
FROM line_items WHERE tenant_id=$1 AND requisition_id=$2 ORDER BY id`, tenantID, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UnassignedItemIDs lists lines still missing a supplier assignment.
func (r *Repository) UnassignedItemIDs(ctx context.Context, tenantID, requisitionID int64) ([]int64, error) {
	return unassignedItemIDs(ctx, r.pool, tenantID, requisitionID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// unassignedItemIDs selects ids rather than a bare count: the review and
// approve paths report the offending lines in the error, and the id-only
// projection stays on the index either way.
func unassignedItemIDs(ctx context.Context, q querier, tenantID, requisitionID int64) ([]int64, error) {
	rows, err := q.Query(ctx, `SELECT id FROM line_items
WHERE tenant_id=$1 AND requisition_id=$2 AND supplier_id IS NULL ORDER BY id`, tenantID, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const orderColumns = `id, tenant_id, number, requisition_id, supplier_id, sub_total, delivery_fee, vat, total_amount, status, created_at`

func scanOrder(row pgx.Row) (PurchaseOrder, error) {
	var o PurchaseOrder
	var status string
	err := row.Scan(&o.ID, &o.TenantID, &o.Number, &o.RequisitionID, &o.SupplierID,
		&o.SubTotal, &o.DeliveryFee, &o.VAT, &o.TotalAmount, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	o.Status = OrderStatus(status)
	return o, nil
}

// GetOrder fetches a purchase order within the tenant scope.
func (r *Repository) GetOrder(ctx context.Context, tenantID, id int64) (PurchaseOrder, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanOrder(row)
}

// ListOrders returns orders for a requisition, or every tenant order when
// requisitionID is zero.
func (r *Repository) ListOrders(ctx context.Context, tenantID, requisitionID int64) ([]PurchaseOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM purchase_orders
WHERE tenant_id=$1 AND ($2 = 0 OR requisition_id=$2) ORDER BY id`, tenantID, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []PurchaseOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// StatusSummary counts tenant requisitions per status.
func (r *Repository) StatusSummary(ctx context.Context, tenantID int64) (map[Status]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM requisitions WHERE tenant_id=$1 GROUP BY status`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	summary := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		summary[Status(status)] = count
	}
	return summary, rows.Err()
}

func (tx *txRepo) NextSequence(ctx context.Context, tenantID int64, kind sequence.Kind) (int64, error) {
	return tx.counters.Next(ctx, tx.tx, tenantID, kind)
}

func (tx *txRepo) CreateRequisition(ctx context.Context, req Requisition) (int64, error) {
	var id int64
	var neededBy any
	if !req.NeededByDate.IsZero() {
		neededBy = req.NeededByDate
	}
	err := tx.tx.QueryRow(ctx, `INSERT INTO requisitions
(tenant_id, number, status, department, branch, needed_by_date, quantity, estimated_cost, total_items, created_by, justification, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, 0, 0, $7, $8, NOW(), NOW()) RETURNING id`,
		req.TenantID, req.Number, string(req.Status), req.Department, req.Branch, neededBy, req.CreatedBy, req.Justification).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrNumberCollision
		}
		return 0, err
	}
	return id, nil
}

// LockRequisition fetches the row FOR UPDATE, serialising line mutations and
// the split against concurrent writers.
func (tx *txRepo) LockRequisition(ctx context.Context, tenantID, id int64) (Requisition, error) {
	row := tx.tx.QueryRow(ctx, `SELECT `+requisitionColumns+` FROM requisitions
WHERE id=$1 AND tenant_id=$2 FOR UPDATE`, id, tenantID)
	return scanRequisition(row)
}

// UpdateStatus flips the status only when the row still carries the expected
// value. Zero rows after a successful prior read means a concurrent writer
// won the race.
func (tx *txRepo) UpdateStatus(ctx context.Context, u StatusUpdate) (Requisition, error) {
	row := tx.tx.QueryRow(ctx, `UPDATE requisitions
SET status=$4,
    approved_by=COALESCE($5, approved_by),
    justification=CASE WHEN $6 <> '' THEN $6 ELSE justification END,
    updated_at=NOW()
WHERE id=$1 AND tenant_id=$2 AND status=$3
RETURNING `+requisitionColumns,
		u.ID, u.TenantID, string(u.Expected), string(u.Next), u.ApprovedBy, u.Justification)
	req, err := scanRequisition(row)
	if errors.Is(err, ErrNotFound) {
		return Requisition{}, ErrConflict
	}
	return req, err
}

func (tx *txRepo) GetLineItem(ctx context.Context, tenantID, id int64) (LineItem, error) {
	row := tx.tx.QueryRow(ctx, `SELECT `+lineItemColumns+` FROM line_items WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	return scanLineItem(row)
}

func (tx *txRepo) InsertLineItem(ctx context.Context, item LineItem) (int64, error) {
	var id int64
	var supplierID any
	if item.SupplierID != 0 {
		supplierID = item.SupplierID
	}
	status := item.Status
	if status == "" {
		status = LineItemPending
	}
	err := tx.tx.QueryRow(ctx, `INSERT INTO line_items
(tenant_id, requisition_id, supplier_id, item_name, unit_price, pr_quantity, po_quantity, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		item.TenantID, item.RequisitionID, supplierID, item.ItemName, item.UnitPrice, item.PRQuantity, item.POQuantity, string(status)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateItem
		}
		return 0, err
	}
	return id, nil
}

func (tx *txRepo) UpdateLineItem(ctx context.Context, item LineItem) error {
	var supplierID any
	if item.SupplierID != 0 {
		supplierID = item.SupplierID
	}
	tag, err := tx.tx.Exec(ctx, `UPDATE line_items
SET supplier_id=$3, unit_price=$4, pr_quantity=$5, po_quantity=$6, status=$7
WHERE id=$1 AND tenant_id=$2`,
		item.ID, item.TenantID, supplierID, item.UnitPrice, item.PRQuantity, item.POQuantity, string(item.Status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) DeleteLineItem(ctx context.Context, tenantID, id int64) error {
	tag, err := tx.tx.Exec(ctx, `DELETE FROM line_items WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApplyAggregateDelta moves the requisition aggregates by relative
// increments in one statement. GREATEST clamps at zero so a decrement can
// never drive a drifted header negative.
func (tx *txRepo) ApplyAggregateDelta(ctx context.Context, tenantID, requisitionID int64, delta AggregateDelta) error {
	tag, err := tx.tx.Exec(ctx, `UPDATE requisitions
SET quantity=GREATEST(0, quantity + $3),
    estimated_cost=GREATEST(0, estimated_cost + $4),
    total_items=GREATEST(0, total_items + $5),
    updated_at=NOW()
WHERE id=$1 AND tenant_id=$2`,
		requisitionID, tenantID, delta.Quantity, delta.Cost, delta.Items)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (tx *txRepo) UnassignedItemIDs(ctx context.Context, tenantID, requisitionID int64) ([]int64, error) {
	return unassignedItemIDs(ctx, tx.tx, tenantID, requisitionID)
}

// ReserveBudget places a hold inside the current transaction so the status
// flip and the reservation commit together.
func (tx *txRepo) ReserveBudget(ctx context.Context, tenantID, budgetID int64, amount float64) error {
	_, err := budget.ReserveIn(ctx, tx.tx, tenantID, budgetID, amount)
	return err
}

// SplittableItems returns lines with a supplier assigned and no order yet.
func (tx *txRepo) SplittableItems(ctx context.Context, tenantID, requisitionID int64) ([]LineItem, error) {
	rows, err := tx.tx.Query(ctx, `SELECT `+lineItemColumns+` FROM line_items
WHERE tenant_id=$1 AND requisition_id=$2 AND supplier_id IS NOT NULL AND order_id IS NULL
ORDER BY id`, tenantID, requisitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LineItem
	for rows.Next() {
		item, err := scanLineItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (tx *txRepo) CreateOrder(ctx context.Context, o PurchaseOrder) (int64, error) {
	var id int64
	err := tx.tx.QueryRow(ctx, `INSERT INTO purchase_orders
(tenant_id, number, requisition_id, supplier_id, sub_total, delivery_fee, vat, total_amount, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()) RETURNING id`,
		o.TenantID, o.Number, o.RequisitionID, o.SupplierID, o.SubTotal, o.DeliveryFee, o.VAT, o.TotalAmount, string(o.Status)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrNumberCollision
		}
		return 0, err
	}
	return id, nil
}

// LinkItemsToOrder stamps the order onto unlinked lines only, defaults the
// purchase quantity to the requested quantity where unset, and marks the
// lines ordered.
func (tx *txRepo) LinkItemsToOrder(ctx context.Context, tenantID, orderID int64, itemIDs []int64) (int64, error) {
	tag, err := tx.tx.Exec(ctx, `UPDATE line_items
SET order_id=$2,
    po_quantity=CASE WHEN po_quantity > 0 THEN po_quantity ELSE pr_quantity END,
    status=$4
WHERE tenant_id=$1 AND id=ANY($3) AND order_id IS NULL`,
		tenantID, orderID, itemIDs, string(LineItemOrdered))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
