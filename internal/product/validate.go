package product

import (
	"fmt"
	"strings"
)

// validate checks the catalog invariants on a complete product.
func validate(p *Product) error {
	fields := map[string]string{}

	if strings.TrimSpace(p.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(p.Category) == "" {
		fields["category"] = "category is required"
	}
	if p.BasePrice.IsNegative() {
		fields["basePrice"] = "basePrice must be greater than or equal to 0"
	}
	if len(p.Fabrics) == 0 {
		fields["fabrics"] = "at least one fabric is required"
	}

	seen := map[string]bool{}
	for i, f := range p.Fabrics {
		key := strings.ToLower(strings.TrimSpace(f.Name))
		switch {
		case key == "":
			fields[fmt.Sprintf("fabrics[%d].name", i)] = "fabric name is required"
		case seen[key]:
			fields[fmt.Sprintf("fabrics[%d].name", i)] = fmt.Sprintf("duplicate fabric %q", f.Name)
		}
		seen[key] = true
		if f.Price.IsNegative() {
			fields[fmt.Sprintf("fabrics[%d].price", i)] = "fabric price must be greater than or equal to 0"
		}
	}

	seen = map[string]bool{}
	for i, c := range p.Colors {
		key := strings.ToLower(strings.TrimSpace(c.Name))
		switch {
		case key == "":
			fields[fmt.Sprintf("colors[%d].name", i)] = "color name is required"
		case seen[key]:
			fields[fmt.Sprintf("colors[%d].name", i)] = fmt.Sprintf("duplicate color %q", c.Name)
		}
		seen[key] = true
		if c.ExtraPrice.IsNegative() {
			fields[fmt.Sprintf("colors[%d].extraPrice", i)] = "color extraPrice must be greater than or equal to 0"
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
