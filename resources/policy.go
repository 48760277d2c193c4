package resources

import "math"

// Mutation identifies the kind of change that precedes a refetch.
type Mutation int

const (
	MutationCreate Mutation = iota
	MutationUpdate
	MutationDelete
)

func (m Mutation) String() string {
	switch m {
	case MutationCreate:
		return "create"
	case MutationUpdate:
		return "update"
	case MutationDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// RefetchPolicy picks the page to reload after a successful mutation.
// itemsOnPage is the length of the list before the mutation.
type RefetchPolicy interface {
	TargetPage(m Mutation, current Pagination, itemsOnPage int) int
}

// RefetchPolicyFunc adapts a function to RefetchPolicy.
type RefetchPolicyFunc func(m Mutation, current Pagination, itemsOnPage int) int

func (f RefetchPolicyFunc) TargetPage(m Mutation, current Pagination, itemsOnPage int) int {
	return f(m, current, itemsOnPage)
}

// DefaultRefetchPolicy reloads page 1 after a create, the current page after
// an update, and after a delete the current page or the previous one when the
// deleted item was the only one left on a page after the first.
type DefaultRefetchPolicy struct{}

func (DefaultRefetchPolicy) TargetPage(m Mutation, current Pagination, itemsOnPage int) int {
	page := max(current.Page, 1)
	switch m {
	case MutationCreate:
		return 1
	case MutationDelete:
		if itemsOnPage == 1 && page > 1 {
			return page - 1
		}
		return page
	default:
		return page
	}
}

// TotalPages is ceil(count / pageSize).
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int(math.Ceil(float64(count) / float64(pageSize)))
}

// NextOrdering cycles a column through ascending, descending and unordered.
func NextOrdering(current, column string) string {
	switch current {
	case column:
		return "-" + column
	case "-" + column:
		return ""
	default:
		return column
	}
}
