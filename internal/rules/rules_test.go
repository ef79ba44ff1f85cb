package rules

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func facts(desc string) Facts {
	return Facts{
		Description: desc,
		Bank:        "Monzo",
		Account:     "Joint",
		Amount:      decimal.NewFromFloat(12.50),
		Date:        time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC),
	}
}

func rideshareRule() Structure {
	return Structure{
		GroupOperator: JoinAnd,
		Groups: []Group{{
			Operator: JoinOr,
			Conditions: []Condition{
				{Field: FieldDescription, Operator: OpContains, Value: "UBER"},
				{Field: FieldDescription, Operator: OpContains, Value: "LYFT"},
			},
		}},
	}
}

func TestEvaluate_ContainsOrGroup(t *testing.T) {
	s := rideshareRule()
	require.NoError(t, s.Validate())

	require.True(t, s.Evaluate(facts("UBER EATS")))
	require.True(t, s.Evaluate(facts("LYFT RIDE 42")))
	require.False(t, s.Evaluate(facts("NETFLIX")))
}

func TestEvaluate_AndGroupShortCircuits(t *testing.T) {
	s := Structure{
		GroupOperator: JoinAnd,
		Groups: []Group{{
			Operator: JoinAnd,
			Conditions: []Condition{
				{Field: FieldDescription, Operator: OpContains, Value: "COFFEE"},
				{Field: FieldAmount, Operator: OpLessThan, Value: "10"},
			},
		}},
	}
	require.NoError(t, s.Validate())

	f := facts("COFFEE SHOP")
	f.Amount = decimal.NewFromInt(4)
	require.True(t, s.Evaluate(f))

	f.Amount = decimal.NewFromInt(40)
	require.False(t, s.Evaluate(f))
	require.False(t, s.Evaluate(facts("GROCERIES")))
}

func TestEvaluate_Operators(t *testing.T) {
	base := facts("ACME PAYROLL")
	cat := "cat-groceries"

	tests := []struct {
		name string
		c    Condition
		f    Facts
		want bool
	}{
		{"equals ignores case", Condition{Field: FieldBank, Operator: OpEquals, Value: "monzo"}, base, true},
		{"contains ignores case", Condition{Field: FieldDescription, Operator: OpContains, Value: "payroll"}, base, true},
		{"string is_empty", Condition{Field: FieldAccount, Operator: OpIsEmpty}, Facts{}, true},
		{"string is_not_empty", Condition{Field: FieldAccount, Operator: OpIsNotEmpty}, base, true},
		{"amount equals", Condition{Field: FieldAmount, Operator: OpEquals, Value: "12.5"}, base, true},
		{"amount greater_than", Condition{Field: FieldAmount, Operator: OpGreaterThan, Value: "12"}, base, true},
		{"amount less_than false", Condition{Field: FieldAmount, Operator: OpLessThan, Value: "12"}, base, false},
		{"date equals", Condition{Field: FieldDate, Operator: OpEquals, Value: "2026-08-15"}, base, true},
		{"date before", Condition{Field: FieldDate, Operator: OpBefore, Value: "2026-09-01"}, base, true},
		{"date after", Condition{Field: FieldDate, Operator: OpAfter, Value: "2026-08-15"}, base, false},
		{"category is_empty", Condition{Field: FieldCategory, Operator: OpIsEmpty}, base, true},
		{"category equals", Condition{Field: FieldCategory, Operator: OpEquals, Value: "cat-groceries"}, Facts{Category: &cat}, true},
		{"category is_not_empty", Condition{Field: FieldCategory, Operator: OpIsNotEmpty}, Facts{Category: &cat}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{tc.c}}}}
			require.NoError(t, s.Validate())
			require.Equal(t, tc.want, s.Evaluate(tc.f))
		})
	}
}

func TestValidate_RejectsBadTrees(t *testing.T) {
	good := Condition{Field: FieldDescription, Operator: OpContains, Value: "x"}

	tests := []struct {
		name string
		s    Structure
	}{
		{"bad group operator", Structure{GroupOperator: "xor", Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{good}}}}},
		{"no groups", Structure{GroupOperator: JoinAnd}},
		{"empty group", Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinOr}}}},
		{"unknown field", Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{{Field: "merchant", Operator: OpEquals, Value: "x"}}}}}},
		{"operator not in field set", Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{{Field: FieldAmount, Operator: OpContains, Value: "x"}}}}}},
		{"missing value", Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{{Field: FieldDescription, Operator: OpEquals}}}}}},
		{"unparseable amount", Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{{Field: FieldAmount, Operator: OpEquals, Value: "ten"}}}}}},
		{"unparseable date", Structure{GroupOperator: JoinAnd, Groups: []Group{{Operator: JoinAnd, Conditions: []Condition{{Field: FieldDate, Operator: OpBefore, Value: "15/08/2026"}}}}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			require.Error(t, err)
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
		})
	}
}

func TestValidate_OperandlessNeedNoValue(t *testing.T) {
	s := Structure{
		GroupOperator: JoinOr,
		Groups: []Group{{
			Operator: JoinAnd,
			Conditions: []Condition{
				{Field: FieldCategory, Operator: OpIsEmpty},
				{Field: FieldDescription, Operator: OpIsNotEmpty},
			},
		}},
	}
	require.NoError(t, s.Validate())
}
