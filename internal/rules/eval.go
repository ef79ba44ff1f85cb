package rules

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Facts is one decrypted transaction as seen by the evaluator. Category is
// nil when the transaction is uncategorized.
type Facts struct {
	Description string
	Bank        string
	Account     string
	Amount      decimal.Decimal
	Date        time.Time
	Category    *string
}

// Evaluate runs the tree against f. Groups and conditions short-circuit as
// soon as the join operator's outcome is decided. The tree is assumed to
// have passed Validate; an out-of-contract condition simply evaluates false.
func (s Structure) Evaluate(f Facts) bool {
	and := s.GroupOperator == JoinAnd
	for _, g := range s.Groups {
		matched := g.evaluate(f)
		if and && !matched {
			return false
		}
		if !and && matched {
			return true
		}
	}
	return and
}

func (g Group) evaluate(f Facts) bool {
	and := g.Operator == JoinAnd
	for _, c := range g.Conditions {
		matched := c.evaluate(f)
		if and && !matched {
			return false
		}
		if !and && matched {
			return true
		}
	}
	return and
}

func (c Condition) evaluate(f Facts) bool {
	switch c.Field {
	case FieldDescription:
		return evalString(f.Description, c.Operator, c.Value)
	case FieldBank:
		return evalString(f.Bank, c.Operator, c.Value)
	case FieldAccount:
		return evalString(f.Account, c.Operator, c.Value)
	case FieldAmount:
		return evalAmount(f.Amount, c.Operator, c.Value)
	case FieldDate:
		return evalDate(f.Date, c.Operator, c.Value)
	case FieldCategory:
		return evalCategory(f.Category, c.Operator, c.Value)
	}
	return false
}

func evalString(have string, op Operator, want string) bool {
	switch op {
	case OpContains:
		return strings.Contains(strings.ToLower(have), strings.ToLower(want))
	case OpEquals:
		return strings.EqualFold(have, want)
	case OpIsEmpty:
		return have == ""
	case OpIsNotEmpty:
		return have != ""
	}
	return false
}

func evalAmount(have decimal.Decimal, op Operator, want string) bool {
	if op == OpIsEmpty {
		return have.IsZero()
	}
	w, err := decimal.NewFromString(want)
	if err != nil {
		return false
	}
	switch op {
	case OpEquals:
		return have.Equal(w)
	case OpGreaterThan:
		return have.GreaterThan(w)
	case OpLessThan:
		return have.LessThan(w)
	}
	return false
}

func evalDate(have time.Time, op Operator, want string) bool {
	w, err := time.Parse(DateLayout, want)
	if err != nil {
		return false
	}
	day := have.Truncate(24 * time.Hour)
	switch op {
	case OpEquals:
		return day.Equal(w)
	case OpBefore:
		return have.Before(w)
	case OpAfter:
		// A date-valued "after" means after the whole day.
		return have.After(w.Add(24*time.Hour - time.Nanosecond))
	}
	return false
}

func evalCategory(have *string, op Operator, want string) bool {
	switch op {
	case OpEquals:
		return have != nil && *have == want
	case OpIsEmpty:
		return have == nil
	case OpIsNotEmpty:
		return have != nil
	}
	return false
}
