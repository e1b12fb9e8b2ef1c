package products

import (
	"fmt"
	"strings"

	"github.com/pets-things/pets-things/internal/masterdata/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name", shared.ErrRequiredField)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: category_id", shared.ErrRequiredField)
	}
	if p.UnitPrice < 0 {
		return fmt.Errorf("%w: unit_price must not be negative", shared.ErrValidation)
	}
	return nil
}
