package catalog

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warestock/backend/internal/domain/shared"
)

// Product represents a product/SKU in the catalog. The inventory engine reads
// products for UOM resolution and costing; the only field it writes back is
// AverageCostPrice.
type Product struct {
	shared.BaseEntity
	SKU              string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string          `gorm:"type:varchar(200);not null"`
	Description      string          `gorm:"type:text"`
	BaseUOM          string          `gorm:"type:varchar(20);not null"` // e.g. "pcs", "bottle", "kg"
	AverageCostPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SellingPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	MinStockLevel    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	IsActive         bool            `gorm:"not null;default:true"`
	AlternateUOMs    []AlternateUOM  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// AlternateUOM represents an additional unit a product can be transacted in.
// ConversionFactor is the number of base units per one alternate unit
// (e.g. 1 case = 24 bottles has factor 24).
type AlternateUOM struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_product_alt_uom,priority:1"`
	Name             string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_product_alt_uom,priority:2"`
	ConversionFactor decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SellingPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt        time.Time       `gorm:"not null;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"not null;autoUpdateTime"`
}

// TableName returns the table name for GORM
func (AlternateUOM) TableName() string {
	return "product_alternate_uoms"
}

// NewProduct creates a new product
func NewProduct(sku, name, baseUOM string) (*Product, error) {
	if err := validateSKU(sku); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if err := validateUOMName(baseUOM); err != nil {
		return nil, err
	}

	return &Product{
		BaseEntity:       shared.NewBaseEntity(),
		SKU:              strings.ToUpper(sku),
		Name:             name,
		BaseUOM:          baseUOM,
		AverageCostPrice: decimal.Zero,
		SellingPrice:     decimal.Zero,
		MinStockLevel:    decimal.Zero,
		IsActive:         true,
	}, nil
}

// AddAlternateUOM registers an additional unit for the product.
// Unit names are unique per product, compared case-insensitively.
func (p *Product) AddAlternateUOM(name string, conversionFactor decimal.Decimal, sellingPrice decimal.Decimal) error {
	if err := validateUOMName(name); err != nil {
		return err
	}
	if !conversionFactor.IsPositive() {
		return shared.NewDomainError("INVALID_CONVERSION_FACTOR", "Conversion factor must be positive")
	}
	if sellingPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Selling price cannot be negative")
	}
	key := normalizeUOM(name)
	if key == normalizeUOM(p.BaseUOM) {
		return shared.NewDomainError("DUPLICATE_UOM", "Unit "+name+" is already the base unit of product "+p.Name)
	}
	for _, alt := range p.AlternateUOMs {
		if normalizeUOM(alt.Name) == key {
			return shared.NewDomainError("DUPLICATE_UOM", "Unit "+name+" already exists on product "+p.Name)
		}
	}

	p.AlternateUOMs = append(p.AlternateUOMs, AlternateUOM{
		ID:               uuid.New(),
		ProductID:        p.ID,
		Name:             name,
		ConversionFactor: conversionFactor,
		SellingPrice:     sellingPrice,
	})
	p.UpdatedAt = time.Now()
	return nil
}

// SetAverageCostPrice persists a recomputed moving-average cost (per base unit)
func (p *Product) SetAverageCostPrice(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return shared.NewDomainError("INVALID_COST", "Average cost cannot be negative")
	}
	p.AverageCostPrice = cost
	p.UpdatedAt = time.Now()
	return nil
}

// SetMinStockLevel sets the minimum stock level for alerts
func (p *Product) SetMinStockLevel(minStock decimal.Decimal) error {
	if minStock.IsNegative() {
		return shared.NewDomainError("INVALID_MIN_STOCK", "Minimum stock cannot be negative")
	}
	p.MinStockLevel = minStock
	p.UpdatedAt = time.Now()
	return nil
}

// ResolvedUOM is the outcome of matching a unit name against a product.
type ResolvedUOM struct {
	Name             string
	ConversionFactor decimal.Decimal
	IsBase           bool
}

// ResolveUOM matches a unit name against the product's base UOM and alternate
// UOMs. Matching is case-insensitive and ignores surrounding whitespace.
func (p *Product) ResolveUOM(name string) (ResolvedUOM, error) {
	normalized := normalizeUOM(name)
	if normalized == "" {
		return ResolvedUOM{}, shared.NewDomainError("INVALID_UOM", "UOM is required for product "+p.Name)
	}
	if normalized == normalizeUOM(p.BaseUOM) {
		return ResolvedUOM{Name: p.BaseUOM, ConversionFactor: decimal.NewFromInt(1), IsBase: true}, nil
	}
	for _, alt := range p.AlternateUOMs {
		if normalized == normalizeUOM(alt.Name) {
			return ResolvedUOM{Name: alt.Name, ConversionFactor: alt.ConversionFactor}, nil
		}
	}
	return ResolvedUOM{}, shared.NewDomainError("INVALID_UOM",
		"Unknown UOM "+strings.TrimSpace(name)+" for product "+p.Name)
}

// ConvertToBase converts a quantity expressed in the given UOM to base units
func (p *Product) ConvertToBase(quantity decimal.Decimal, uom string) (decimal.Decimal, error) {
	resolved, err := p.ResolveUOM(uom)
	if err != nil {
		return decimal.Zero, err
	}
	if resolved.IsBase {
		return quantity, nil
	}
	return quantity.Mul(resolved.ConversionFactor), nil
}

// ConvertUnitCostToBase converts a per-unit cost expressed in the given UOM
// to a per-base-unit cost (cost 240 per case of 24 becomes 10 per bottle)
func (p *Product) ConvertUnitCostToBase(unitCost decimal.Decimal, uom string) (decimal.Decimal, error) {
	resolved, err := p.ResolveUOM(uom)
	if err != nil {
		return decimal.Zero, err
	}
	if resolved.IsBase {
		return unitCost, nil
	}
	return unitCost.Div(resolved.ConversionFactor).Round(4), nil
}

// AverageCostInUOM returns the product's average cost per unit of the given UOM
func (p *Product) AverageCostInUOM(uom string) (decimal.Decimal, error) {
	resolved, err := p.ResolveUOM(uom)
	if err != nil {
		return decimal.Zero, err
	}
	if resolved.IsBase {
		return p.AverageCostPrice, nil
	}
	return p.AverageCostPrice.Mul(resolved.ConversionFactor).Round(4), nil
}

// normalizeUOM trims surrounding whitespace and lowercases a unit name
func normalizeUOM(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// validateSKU validates the product SKU
func validateSKU(sku string) error {
	if sku == "" {
		return shared.NewDomainError("INVALID_SKU", "Product SKU cannot be empty")
	}
	if len(sku) > 50 {
		return shared.NewDomainError("INVALID_SKU", "Product SKU cannot exceed 50 characters")
	}
	for _, r := range sku {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_SKU", "Product SKU can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

// validateProductName validates the product name
func validateProductName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

// validateUOMName validates a unit name
func validateUOMName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewDomainError("INVALID_UOM", "Unit name cannot be empty")
	}
	if len(name) > 20 {
		return shared.NewDomainError("INVALID_UOM", "Unit name cannot exceed 20 characters")
	}
	return nil
}
