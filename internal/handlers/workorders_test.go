package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fieldops/wms-backend/internal/auth"
	"github.com/fieldops/wms-backend/internal/database"
	"github.com/fieldops/wms-backend/internal/models"
)

func strptr(s string) *string { return &s }

func TestScopeFilter(t *testing.T) {
	assert.Equal(t,
		database.WorkOrderFilter{Area: "Jakarta Selatan"},
		scopeFilter(&auth.Claims{Role: models.RoleTeknisi, Area: "Jakarta Selatan"}))

	assert.Equal(t,
		database.WorkOrderFilter{Area: "Jakarta Selatan", ExcludeScheduled: true},
		scopeFilter(&auth.Claims{Role: models.RoleAdminRegional, Area: "Jakarta Selatan"}))

	assert.Equal(t,
		database.WorkOrderFilter{},
		scopeFilter(&auth.Claims{Role: models.RoleAdmin}))
}

func TestApprovalDecisionError(t *testing.T) {
	admin := &auth.Claims{Username: "admin1", Role: models.RoleAdmin}
	regional := &auth.Claims{Username: "reg1", Role: models.RoleAdminRegional, Area: "Jakarta Selatan"}

	worked := func() *models.WorkOrder {
		return &models.WorkOrder{
			CitySimplified: "Jakarta Selatan",
			StatusWO:       strptr("Completed"),
			UpdatedBy:      strptr("tek1"),
		}
	}

	tests := []struct {
		name       string
		wo         *models.WorkOrder
		claims     *auth.Claims
		action     string
		notes      *string
		wantStatus int
	}{
		{"approve ok", worked(), regional, models.ApprovalApproved, nil, 0},
		{"reject with notes ok", worked(), regional, models.ApprovalRejected, strptr("photos missing"), 0},
		{"unknown action", worked(), regional, "maybe", nil, http.StatusBadRequest},
		{"reject without notes", worked(), regional, models.ApprovalRejected, nil, http.StatusBadRequest},
		{"reject with empty notes", worked(), regional, models.ApprovalRejected, strptr(""), http.StatusBadRequest},
		{
			"regional outside own area",
			&models.WorkOrder{CitySimplified: "Bandung", StatusWO: strptr("Completed"), UpdatedBy: strptr("tek2")},
			regional, models.ApprovalApproved, nil, http.StatusForbidden,
		},
		{
			"regional on scheduled order",
			&models.WorkOrder{CitySimplified: "Jakarta Selatan", StatusWO: strptr(models.StatusScheduled), UpdatedBy: strptr("tek1")},
			regional, models.ApprovalApproved, nil, http.StatusForbidden,
		},
		{
			"never touched by a teknisi",
			&models.WorkOrder{CitySimplified: "Jakarta Selatan", StatusWO: strptr("Completed")},
			regional, models.ApprovalApproved, nil, http.StatusBadRequest,
		},
		{
			"admin still needs a worked order",
			&models.WorkOrder{CitySimplified: "Bandung", StatusWO: strptr("Completed")},
			admin, models.ApprovalApproved, nil, http.StatusBadRequest,
		},
		{
			"admin may decide any area",
			&models.WorkOrder{CitySimplified: "Bandung", StatusWO: strptr("Completed"), UpdatedBy: strptr("tek2")},
			admin, models.ApprovalApproved, nil, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, msg := approvalDecisionError(tt.wo, tt.claims, tt.action, tt.notes)
			assert.Equal(t, tt.wantStatus, status)
			if tt.wantStatus == 0 {
				assert.Empty(t, msg)
			} else {
				assert.NotEmpty(t, msg)
			}
		})
	}
}
