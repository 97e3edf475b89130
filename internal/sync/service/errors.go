package service

import (
	"fmt"
	"strings"
)

// MappingError reports order lines with no remote product counterpart.
// The cart is never partially created.
type MappingError struct {
	OrderID int64
	Missing []string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("order %d has unmapped products: %s", e.OrderID, strings.Join(e.Missing, ", "))
}
