package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fieldops/wms-backend/internal/models"
)

const workOrderColumns = `id, customer_id, wo_id_xl, city_simplified, product_name,
	status_wo, vendor, region, foto_rumah, foto_fat, foto_cabut_port, foto_ont,
	foto_adapter, foto_kabel_lan, foto_customer, foto_sn, sn_ocr_result,
	approval_status, approval_by, approval_date, approval_notes,
	created_at, updated_at, updated_by`

// WorkOrderFilter restricts a work-order listing. Role scoping is expressed
// through Area/ExcludeScheduled, set by the caller from the user's identity.
type WorkOrderFilter struct {
	Area             string
	ExcludeScheduled bool
	Status           string
	Vendor           string
	City             string
	Skip             int
	Limit            int
}

func (f WorkOrderFilter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}
	if f.Area != "" {
		add("city_simplified = ?", f.Area)
	}
	if f.ExcludeScheduled {
		add("status_wo != ?", models.StatusScheduled)
	}
	if f.Status != "" {
		add("status_wo = ?", f.Status)
	}
	if f.Vendor != "" {
		add("vendor = ?", f.Vendor)
	}
	if f.City != "" {
		add("city_simplified = ?", f.City)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListWorkOrders returns one page plus the total row count after filtering.
func (s *Store) ListWorkOrders(f WorkOrderFilter) ([]models.WorkOrder, int, error) {
	where, args := f.where()

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM work_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count work orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM work_orders%s ORDER BY id OFFSET $%d LIMIT $%d`,
		workOrderColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.Query(query, append(args, f.Skip, f.Limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list work orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectWorkOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FilterOptions returns the distinct status/vendor/city values visible under
// the same scoping as the listing, for client-side filter dropdowns.
func (s *Store) FilterOptions(f WorkOrderFilter) (statuses, vendors, cities []string, err error) {
	scope := WorkOrderFilter{Area: f.Area, ExcludeScheduled: f.ExcludeScheduled}
	where, args := scope.where()

	distinct := func(column string) ([]string, error) {
		rows, err := s.db.Query(
			`SELECT DISTINCT `+column+` FROM work_orders`+where+` ORDER BY 1`, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s options: %w", column, err)
		}
		defer rows.Close()
		var out []string
		for rows.Next() {
			var v sql.NullString
			if err := rows.Scan(&v); err != nil {
				return nil, err
			}
			if v.Valid && v.String != "" {
				out = append(out, v.String)
			}
		}
		return out, rows.Err()
	}

	if statuses, err = distinct("status_wo"); err != nil {
		return nil, nil, nil, err
	}
	if vendors, err = distinct("vendor"); err != nil {
		return nil, nil, nil, err
	}
	if cities, err = distinct("city_simplified"); err != nil {
		return nil, nil, nil, err
	}
	return statuses, vendors, cities, nil
}

func (s *Store) WorkOrderByID(id int) (*models.WorkOrder, error) {
	rows, err := s.db.Query(`SELECT `+workOrderColumns+` FROM work_orders WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get work order: %w", err)
	}
	defer rows.Close()
	orders, err := collectWorkOrders(rows)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (s *Store) UpdateWorkOrderStatus(id int, status, updatedBy string) error {
	res, err := s.db.Exec(
		`UPDATE work_orders SET status_wo = $1, updated_by = $2, updated_at = NOW() WHERE id = $3`,
		status, updatedBy, id)
	if err != nil {
		return fmt.Errorf("failed to update work order: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// pendingApprovalWhere builds the predicate for the approval queue: orders a
// teknisi has already touched (updated_by set) that nobody has reviewed yet,
// scoped by area for admin regional (who also never sees Scheduled).
func pendingApprovalWhere(area string, excludeScheduled bool) (string, []any) {
	conds := []string{
		`updated_by IS NOT NULL`,
		`(approval_status IS NULL OR approval_status = 'pending')`,
	}
	var args []any
	if area != "" {
		args = append(args, area)
		conds = append(conds, fmt.Sprintf("city_simplified = $%d", len(args)))
	}
	if excludeScheduled {
		args = append(args, models.StatusScheduled)
		conds = append(conds, fmt.Sprintf("status_wo != $%d", len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// PendingApproval lists orders awaiting review.
func (s *Store) PendingApproval(area string, excludeScheduled bool, skip, limit int) ([]models.WorkOrder, int, error) {
	where, args := pendingApprovalWhere(area, excludeScheduled)

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM work_orders`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count pending work orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM work_orders%s ORDER BY id OFFSET $%d LIMIT $%d`,
		workOrderColumns, where, len(args)+1, len(args)+2)
	rows, err := s.db.Query(query, append(args, skip, limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending work orders: %w", err)
	}
	defer rows.Close()

	orders, err := collectWorkOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// workOrderStatuses is the fixed set of statuses the dashboard reports on;
// statuses outside this list still count toward the total.
var workOrderStatuses = []string{
	models.StatusScheduled,
	"In Progress",
	"Completed",
	"Full Collected",
	"Not Collected",
	"Partial Collected",
}

type ApprovalStats struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// WorkOrderStats summarizes the orders visible under one caller's scope.
type WorkOrderStats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"status_breakdown"`
	Approval ApprovalStats  `json:"-"`
}

// WorkOrderStatistics computes the dashboard counts under the same scoping as
// the listing: total, per-status breakdown, and approval queue sizes.
func (s *Store) WorkOrderStatistics(area string, excludeScheduled bool) (*WorkOrderStats, error) {
	scope := WorkOrderFilter{Area: area, ExcludeScheduled: excludeScheduled}
	where, args := scope.where()

	stats := &WorkOrderStats{ByStatus: make(map[string]int, len(workOrderStatuses))}
	for _, status := range workOrderStatuses {
		stats.ByStatus[status] = 0
	}

	rows, err := s.db.Query(
		`SELECT status_wo, COUNT(*) FROM work_orders`+where+` GROUP BY status_wo`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count work orders by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status sql.NullString
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats.Total += count
		if status.Valid {
			if _, tracked := stats.ByStatus[status.String]; tracked {
				stats.ByStatus[status.String] = count
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	pendingWhere, pendingArgs := pendingApprovalWhere(area, excludeScheduled)
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM work_orders`+pendingWhere, pendingArgs...,
	).Scan(&stats.Approval.Pending); err != nil {
		return nil, fmt.Errorf("failed to count pending approvals: %w", err)
	}
	if stats.Approval.Approved, err = s.countByApproval(scope, models.ApprovalApproved); err != nil {
		return nil, err
	}
	if stats.Approval.Rejected, err = s.countByApproval(scope, models.ApprovalRejected); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) countByApproval(scope WorkOrderFilter, status string) (int, error) {
	where, args := scope.where()
	args = append(args, status)
	cond := fmt.Sprintf("approval_status = $%d", len(args))
	if where == "" {
		where = " WHERE " + cond
	} else {
		where += " AND " + cond
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM work_orders`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s work orders: %w", status, err)
	}
	return n, nil
}

func (s *Store) SetApproval(id int, action, by string, notes *string, at time.Time) error {
	res, err := s.db.Exec(
		`UPDATE work_orders SET approval_status = $1, approval_by = $2,
		        approval_date = $3, approval_notes = $4, updated_at = NOW()
		 WHERE id = $5`,
		action, by, at, notes, id)
	if err != nil {
		return fmt.Errorf("failed to set approval: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func collectWorkOrders(rows *sql.Rows) ([]models.WorkOrder, error) {
	orders := []models.WorkOrder{}
	for rows.Next() {
		var w models.WorkOrder
		if err := rows.Scan(&w.ID, &w.CustomerID, &w.WoIDXL, &w.CitySimplified,
			&w.ProductName, &w.StatusWO, &w.Vendor, &w.Region,
			&w.FotoRumah, &w.FotoFAT, &w.FotoCabutPort, &w.FotoONT,
			&w.FotoAdapter, &w.FotoKabelLAN, &w.FotoCustomer, &w.FotoSN, &w.SNOCRResult,
			&w.ApprovalStatus, &w.ApprovalBy, &w.ApprovalDate, &w.ApprovalNotes,
			&w.CreatedAt, &w.UpdatedAt, &w.UpdatedBy); err != nil {
			return nil, err
		}
		orders = append(orders, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
