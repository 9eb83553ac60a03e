package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type FabricOption struct {
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Available bool            `json:"available"`
}

type ColorOption struct {
	Name       string          `json:"name"`
	ExtraPrice decimal.Decimal `json:"extraPrice"`
	Available  bool            `json:"available"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Category    string          `json:"category"`
	BasePrice   decimal.Decimal `json:"basePrice"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	Fabrics     []FabricOption  `json:"fabrics"`
	Colors      []ColorOption   `json:"colors"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Fabric finds a fabric option by name, ignoring case.
func (p *Product) Fabric(name string) (FabricOption, bool) {
	for _, f := range p.Fabrics {
		if strings.EqualFold(f.Name, strings.TrimSpace(name)) {
			return f, true
		}
	}
	return FabricOption{}, false
}

// Color finds a color option by name, ignoring case.
func (p *Product) Color(name string) (ColorOption, bool) {
	for _, c := range p.Colors {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return ColorOption{}, false
}

type ListOptions struct {
	Category string
	Limit    int
	Page     int
}

type ListResult struct {
	Items      []*Product `json:"items"`
	TotalCount int64      `json:"totalCount"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}

type UpdateParams struct {
	Name        *string
	Description *string
	Category    *string
	BasePrice   *decimal.Decimal
	ImageURL    *string
	Fabrics     []FabricOption
	Colors      []ColorOption
}

func (p UpdateParams) empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil && p.BasePrice == nil &&
		p.ImageURL == nil && p.Fabrics == nil && p.Colors == nil
}
