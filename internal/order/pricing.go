package order

import (
	"tailor-be/internal/product"

	"github.com/shopspring/decimal"
)

// Quote is the priced selection for a product.
type Quote struct {
	Fabric    product.FabricOption
	Color     *product.ColorOption
	Breakdown Breakdown
}

// ComputePrice prices quantity units of p in the chosen fabric and optional color.
// unitPrice = basePrice + fabric.price + color.extraPrice, totalCost = unitPrice * quantity.
func ComputePrice(p *product.Product, fabric string, color *string, quantity int) (*Quote, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	f, ok := p.Fabric(fabric)
	if !ok {
		return nil, &OptionError{Kind: "fabric", Name: fabric}
	}
	if !f.Available {
		return nil, &OptionError{Kind: "fabric", Name: f.Name, Exists: true}
	}

	q := &Quote{Fabric: f}
	extra := decimal.Zero
	if color != nil && *color != "" {
		c, ok := p.Color(*color)
		if !ok {
			return nil, &OptionError{Kind: "color", Name: *color}
		}
		if !c.Available {
			return nil, &OptionError{Kind: "color", Name: c.Name, Exists: true}
		}
		q.Color = &c
		extra = c.ExtraPrice
	}

	unit := p.BasePrice.Add(f.Price).Add(extra)
	q.Breakdown = Breakdown{
		BasePrice:       p.BasePrice,
		FabricPrice:     f.Price,
		ColorExtraPrice: extra,
		UnitPrice:       unit,
		Quantity:        quantity,
		TotalCost:       unit.Mul(decimal.NewFromInt(int64(quantity))),
	}
	return q, nil
}

func (q *Quote) apply(o *Order) {
	o.FabricName = q.Fabric.Name
	o.FabricPrice = q.Fabric.Price
	o.ColorName = nil
	if q.Color != nil {
		name := q.Color.Name
		o.ColorName = &name
	}
	o.ColorExtraPrice = q.Breakdown.ColorExtraPrice
	o.Quantity = q.Breakdown.Quantity
	o.UnitPrice = q.Breakdown.UnitPrice
	o.TotalCost = q.Breakdown.TotalCost
}
