package models

import "time"

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// StatusScheduled is hidden from admin regional views and cannot be approved.
const StatusScheduled = "Scheduled"

type WorkOrder struct {
	ID             int        `json:"id"`
	CustomerID     string     `json:"customer_id"`
	WoIDXL         string     `json:"wo_id_xl"`
	CitySimplified string     `json:"city_simplified"`
	ProductName    *string    `json:"product_name"`
	StatusWO       *string    `json:"status_wo"`
	Vendor         *string    `json:"vendor"`
	Region         *string    `json:"region"`
	FotoRumah      *string    `json:"foto_rumah"`
	FotoFAT        *string    `json:"foto_fat"`
	FotoCabutPort  *string    `json:"foto_cabut_port"`
	FotoONT        *string    `json:"foto_ont"`
	FotoAdapter    *string    `json:"foto_adapter"`
	FotoKabelLAN   *string    `json:"foto_kabel_lan"`
	FotoCustomer   *string    `json:"foto_customer"`
	FotoSN         *string    `json:"foto_sn"`
	SNOCRResult    *string    `json:"sn_ocr_result"`
	ApprovalStatus *string    `json:"approval_status"`
	ApprovalBy     *string    `json:"approval_by"`
	ApprovalDate   *time.Time `json:"approval_date"`
	ApprovalNotes  *string    `json:"approval_notes"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	UpdatedBy      *string    `json:"updated_by"`
}
