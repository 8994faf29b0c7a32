package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed
// fields. Returns the defaultField if the input is invalid, empty, or not in
// the whitelist. Sort fields go straight into ORDER BY, so everything outside
// the whitelist is rejected.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// ProductSortFields contains allowed sort fields for products
var ProductSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"sku":                true,
	"name":               true,
	"base_uom":           true,
	"average_cost_price": true,
	"selling_price":      true,
	"min_stock_level":    true,
	"is_active":          true,
}

// InventorySortFields contains allowed sort fields for projection rows
var InventorySortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"product_id":   true,
	"warehouse_id": true,
	"quantity":     true,
}

// MovementSortFields contains allowed sort fields for ledger entries
var MovementSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"product_id":   true,
	"warehouse_id": true,
	"type":         true,
	"direction":    true,
	"quantity":     true,
	"reference_id": true,
}

// AdjustmentSortFields contains allowed sort fields for adjustments
var AdjustmentSortFields = map[string]bool{
	"id":                true,
	"created_at":        true,
	"updated_at":        true,
	"adjustment_number": true,
	"warehouse_id":      true,
	"status":            true,
	"adjustment_date":   true,
	"posted_at":         true,
}
