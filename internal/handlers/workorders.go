package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/fieldops/wms-backend/internal/auth"
	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/models"
)

// scopeFilter applies role-based visibility: teknisi see their own area,
// admin regional see their area minus Scheduled orders, admin sees all.
func scopeFilter(claims *auth.Claims) database.WorkOrderFilter {
	switch claims.Role {
	case models.RoleTeknisi:
		return database.WorkOrderFilter{Area: claims.Area}
	case models.RoleAdminRegional:
		return database.WorkOrderFilter{Area: claims.Area, ExcludeScheduled: true}
	}
	return database.WorkOrderFilter{}
}

type listResponse struct {
	TotalRecords  int                `json:"total_records"`
	PageInfo      pageInfo           `json:"page_info"`
	FilterOptions filterOptions      `json:"filter_options"`
	WorkOrders    []models.WorkOrder `json:"work_orders"`
}

type pageInfo struct {
	CurrentPage    int `json:"current_page"`
	RecordsPerPage int `json:"records_per_page"`
	TotalPages     int `json:"total_pages"`
}

type filterOptions struct {
	Status  []string `json:"status"`
	Vendors []string `json:"vendors"`
	Cities  []string `json:"cities"`
}

func ListWorkOrders(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		f := scopeFilter(claims)
		f.Status = r.URL.Query().Get("status")
		f.Vendor = r.URL.Query().Get("vendor")
		f.City = r.URL.Query().Get("city")
		f.Skip, f.Limit = pagination(r, 0, 10, 100)

		orders, total, err := store.ListWorkOrders(f)
		if err != nil {
			slog.Error("failed to list work orders", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		statuses, vendors, cities, err := store.FilterOptions(f)
		if err != nil {
			slog.Error("failed to load filter options", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, listResponse{
			TotalRecords: total,
			PageInfo: pageInfo{
				CurrentPage:    f.Skip/f.Limit + 1,
				RecordsPerPage: f.Limit,
				TotalPages:     (total + f.Limit - 1) / f.Limit,
			},
			FilterOptions: filterOptions{Status: statuses, Vendors: vendors, Cities: cities},
			WorkOrders:    orders,
		})
	}
}

func GetWorkOrder(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		id, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid work order id")
			return
		}

		wo, err := store.WorkOrderByID(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "work order not found")
				return
			}
			slog.Error("failed to get work order", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if claims.Role != models.RoleAdmin && wo.CitySimplified != claims.Area {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}

		writeJSON(w, http.StatusOK, wo)
	}
}

// UpdateWorkOrder lets a teknisi set the work-order status in their area.
func UpdateWorkOrder(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		id, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid work order id")
			return
		}

		var req struct {
			StatusWO string `json:"status_wo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.StatusWO == "" {
			writeError(w, http.StatusBadRequest, "status_wo is required")
			return
		}

		wo, err := store.WorkOrderByID(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "work order not found")
				return
			}
			slog.Error("failed to get work order", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if claims.Role == models.RoleTeknisi && wo.CitySimplified != claims.Area {
			writeError(w, http.StatusForbidden, "access denied")
			return
		}

		if err := store.UpdateWorkOrderStatus(id, req.StatusWO, claims.Username); err != nil {
			slog.Error("failed to update work order", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
	}
}

// GetWorkOrderStatistics reports dashboard counts under the caller's scope.
// Approval queue numbers are only meaningful to reviewers, so teknisi get the
// status breakdown without them.
func GetWorkOrderStatistics(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())
		scope := scopeFilter(claims)

		stats, err := store.WorkOrderStatistics(scope.Area, scope.ExcludeScheduled)
		if err != nil {
			slog.Error("failed to compute work order statistics", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		resp := map[string]interface{}{
			"total_wo":         stats.Total,
			"status_breakdown": stats.ByStatus,
		}
		if claims.Role == models.RoleAdmin || claims.Role == models.RoleAdminRegional {
			resp["approval_stats"] = stats.Approval
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// PendingApproval lists work orders awaiting review for the approval queue.
func PendingApproval(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		area := ""
		excludeScheduled := false
		if claims.Role == models.RoleAdminRegional {
			area = claims.Area
			excludeScheduled = true
		}
		skip, limit := pagination(r, 0, 10, 100)

		orders, total, err := store.PendingApproval(area, excludeScheduled, skip, limit)
		if err != nil {
			slog.Error("failed to list pending approvals", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total_records": total,
			"work_orders":   orders,
		})
	}
}

// approvalDecisionError validates an approve/reject request against the order
// and the reviewer. Returns status 0 when the decision may proceed.
func approvalDecisionError(wo *models.WorkOrder, claims *auth.Claims, action string, notes *string) (int, string) {
	if action != models.ApprovalApproved && action != models.ApprovalRejected {
		return http.StatusBadRequest, "action must be approved or rejected"
	}
	if action == models.ApprovalRejected && (notes == nil || *notes == "") {
		return http.StatusBadRequest, "notes are required when rejecting"
	}
	if claims.Role == models.RoleAdminRegional {
		if wo.CitySimplified != claims.Area {
			return http.StatusForbidden, "access denied"
		}
		if wo.StatusWO != nil && *wo.StatusWO == models.StatusScheduled {
			return http.StatusForbidden, "scheduled work orders cannot be approved"
		}
	}
	if wo.UpdatedBy == nil || *wo.UpdatedBy == "" {
		return http.StatusBadRequest, "work order has not been updated by a teknisi"
	}
	return 0, ""
}

// ApproveWorkOrder records an approve/reject decision. Admin regional can
// only decide orders in their own area, and never Scheduled ones; rejecting
// requires notes, and an order nobody has worked on cannot be decided.
func ApproveWorkOrder(store *database.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.ClaimsFromContext(r.Context())

		id, err := strconv.Atoi(mux.Vars(r)["id"])
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid work order id")
			return
		}

		var req struct {
			Action string  `json:"action"`
			Notes  *string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		wo, err := store.WorkOrderByID(id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				writeError(w, http.StatusNotFound, "work order not found")
				return
			}
			slog.Error("failed to get work order", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if status, msg := approvalDecisionError(wo, claims, req.Action, req.Notes); status != 0 {
			writeError(w, status, msg)
			return
		}

		if err := store.SetApproval(id, req.Action, claims.Username, req.Notes, time.Now()); err != nil {
			slog.Error("failed to set approval", "id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": req.Action})
	}
}
