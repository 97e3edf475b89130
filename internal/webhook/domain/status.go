package domain

import (
	"strings"

	orderdomain "github.com/ferkcore/topadel/internal/order/domain"
)

// StatusMapper translates a remote payment status into the local order
// state. The second return is false for statuses the mapper does not
// recognize; those annotate the order without changing its state.
type StatusMapper interface {
	Map(rawStatus string) (orderdomain.Status, bool)
}

type tableStatusMapper struct {
	table map[string]orderdomain.Status
}

// NewDefaultStatusMapper builds the stock mapping table.
func NewDefaultStatusMapper() StatusMapper {
	return &tableStatusMapper{table: map[string]orderdomain.Status{
		"approved":   orderdomain.StatusPaid,
		"paid":       orderdomain.StatusPaid,
		"success":    orderdomain.StatusPaid,
		"completed":  orderdomain.StatusPaid,
		"pending":    orderdomain.StatusOnHold,
		"in_process": orderdomain.StatusOnHold,
		"authorized": orderdomain.StatusOnHold,
		"rejected":   orderdomain.StatusFailed,
		"failed":     orderdomain.StatusFailed,
		"canceled":   orderdomain.StatusCancelled,
		"cancelled":  orderdomain.StatusCancelled,
	}}
}

func (m *tableStatusMapper) Map(rawStatus string) (orderdomain.Status, bool) {
	status, ok := m.table[NormalizeStatus(rawStatus)]
	return status, ok
}

// NormalizeStatus is the canonical form statuses are compared and
// deduplicated in.
func NormalizeStatus(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
