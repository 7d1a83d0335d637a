package expenselist

import "spendlog/internal/core"

// Cache namespaces. Every key starts with one of these so a write can drop
// a whole namespace with a prefix delete.
const (
	expensesNamespace  = "expenses/"
	dashboardNamespace = "dashboard/"
)

// AllKey addresses the expense namespace as a whole.
func AllKey() string {
	return expensesNamespace + "all"
}

// ListKey addresses one page, keyed by the full query tuple.
func ListKey(q core.ListQuery) string {
	return expensesNamespace + "list/" + q.Key()
}

func DetailKey(id string) string {
	return expensesNamespace + "detail/" + id
}

func DashboardKey() string {
	return dashboardNamespace + "all"
}
