// Package rules implements the automation rule condition tree: a rule is a
// set of groups joined by and/or, each group a set of field/operator/value
// conditions joined by and/or. The tree is validated once at save time and
// evaluated client-side against decrypted transaction facts.
package rules

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Join combines condition or group results.
type Join string

const (
	JoinAnd Join = "and"
	JoinOr  Join = "or"
)

// Field names a transaction attribute a condition can reference.
type Field string

const (
	FieldDescription Field = "description"
	FieldBank        Field = "bank"
	FieldAccount     Field = "account"
	FieldAmount      Field = "amount"
	FieldDate        Field = "date"
	FieldCategory    Field = "category"
)

// Operator is a comparison applied to a field.
type Operator string

const (
	OpContains    Operator = "contains"
	OpEquals      Operator = "equals"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpBefore      Operator = "before"
	OpAfter       Operator = "after"
)

// DateLayout is the wire format for date condition values.
const DateLayout = "2006-01-02"

// fieldOps is the permitted operator set per field, keyed by the field's
// type: string, number, date or nullable-enum.
var fieldOps = map[Field]map[Operator]bool{
	FieldDescription: {OpContains: true, OpEquals: true, OpIsEmpty: true, OpIsNotEmpty: true},
	FieldBank:        {OpContains: true, OpEquals: true, OpIsEmpty: true, OpIsNotEmpty: true},
	FieldAccount:     {OpContains: true, OpEquals: true, OpIsEmpty: true, OpIsNotEmpty: true},
	FieldAmount:      {OpEquals: true, OpGreaterThan: true, OpLessThan: true, OpIsEmpty: true},
	FieldDate:        {OpEquals: true, OpBefore: true, OpAfter: true},
	FieldCategory:    {OpEquals: true, OpIsEmpty: true, OpIsNotEmpty: true},
}

// operandless operators need no value; everything else requires one.
var operandless = map[Operator]bool{OpIsEmpty: true, OpIsNotEmpty: true}

// Condition compares one transaction field against a value.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value,omitempty"`
}

// Group is a set of conditions joined by Operator.
type Group struct {
	Operator   Join        `json:"operator"`
	Conditions []Condition `json:"conditions"`
}

// Structure is the serialized form of a rule's condition tree.
type Structure struct {
	GroupOperator Join    `json:"groupOperator"`
	Groups        []Group `json:"groups"`
}

// ConfigError reports a malformed condition tree. It is raised at rule-save
// time; validated rules never fail evaluation on configuration grounds.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid rule configuration: %s", e.Detail)
}

func configErrorf(format string, args ...any) error {
	return &ConfigError{Detail: fmt.Sprintf(format, args...)}
}

func validJoin(j Join) bool { return j == JoinAnd || j == JoinOr }

// Validate checks the whole tree: known fields, operators drawn from each
// field's permitted set, parseable values, and non-empty groups.
func (s Structure) Validate() error {
	if !validJoin(s.GroupOperator) {
		return configErrorf("unknown group operator %q", s.GroupOperator)
	}
	if len(s.Groups) == 0 {
		return configErrorf("rule has no groups")
	}
	for gi, g := range s.Groups {
		if !validJoin(g.Operator) {
			return configErrorf("group %d: unknown operator %q", gi, g.Operator)
		}
		if len(g.Conditions) == 0 {
			return configErrorf("group %d has no conditions", gi)
		}
		for ci, c := range g.Conditions {
			if err := c.validate(); err != nil {
				return configErrorf("group %d condition %d: %v", gi, ci, err)
			}
		}
	}
	return nil
}

func (c Condition) validate() error {
	ops, ok := fieldOps[c.Field]
	if !ok {
		return fmt.Errorf("unknown field %q", c.Field)
	}
	if !ops[c.Operator] {
		return fmt.Errorf("operator %q not allowed for field %q", c.Operator, c.Field)
	}
	if operandless[c.Operator] {
		return nil
	}
	if c.Value == "" {
		return fmt.Errorf("operator %q requires a value", c.Operator)
	}
	switch c.Field {
	case FieldAmount:
		if _, err := decimal.NewFromString(c.Value); err != nil {
			return fmt.Errorf("amount value %q: %w", c.Value, err)
		}
	case FieldDate:
		if _, err := time.Parse(DateLayout, c.Value); err != nil {
			return fmt.Errorf("date value %q: %w", c.Value, err)
		}
	}
	return nil
}
