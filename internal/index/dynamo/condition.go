package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/xtxerr/seisfetch/internal/errors"
	"github.com/xtxerr/seisfetch/internal/filter"
	"github.com/xtxerr/seisfetch/internal/query"
)

// Condition translates a filter expression into a DynamoDB condition.
// Every node maps one-to-one onto a builder call; nothing is rendered
// as expression text by hand.
func Condition(e filter.Expr) (expression.ConditionBuilder, error) {
	switch n := e.(type) {
	case filter.Eq:
		return expression.Name(n.Attr).Equal(operand(n.Value)), nil
	case filter.Prefix:
		return expression.Name(n.Attr).BeginsWith(n.Prefix), nil
	case filter.Gte:
		return expression.Name(n.Attr).GreaterThanEqual(operand(n.Value)), nil
	case filter.Lte:
		return expression.Name(n.Attr).LessThanEqual(operand(n.Value)), nil
	case filter.Between:
		return expression.Name(n.Attr).Between(operand(n.Lo), operand(n.Hi)), nil
	case filter.And:
		return combine(n.Terms, expression.And)
	case filter.Or:
		return combine(n.Terms, expression.Or)
	default:
		return expression.ConditionBuilder{}, fmt.Errorf("expression %T: %w", e, errors.ErrInvalidFilter)
	}
}

type combinator func(left, right expression.ConditionBuilder, other ...expression.ConditionBuilder) expression.ConditionBuilder

func combine(terms []filter.Expr, join combinator) (expression.ConditionBuilder, error) {
	conds := make([]expression.ConditionBuilder, 0, len(terms))
	for _, t := range terms {
		c, err := Condition(t)
		if err != nil {
			return expression.ConditionBuilder{}, err
		}
		conds = append(conds, c)
	}

	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, fmt.Errorf("empty conjunction or disjunction: %w", errors.ErrInvalidFilter)
	case 1:
		return conds[0], nil
	default:
		return join(conds[0], conds[1], conds[2:]...), nil
	}
}

func operand(v query.Value) expression.ValueBuilder {
	if v.IsNumber() {
		return expression.Value(number(v.Num))
	}
	return expression.Value(v.Str)
}

// number marshals a decimal as a DynamoDB N attribute without passing
// through float64.
type number decimal.Decimal

// MarshalDynamoDBAttributeValue implements attributevalue.Marshaler.
func (n number) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: decimal.Decimal(n).String()}, nil
}

var _ attributevalue.Marshaler = number{}

// attrValue converts a scalar DynamoDB attribute into a query value.
// Non-scalar attributes are reported as absent.
func attrValue(av types.AttributeValue) (query.Value, bool, error) {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return query.String(v.Value), true, nil
	case *types.AttributeValueMemberN:
		d, err := decimal.NewFromString(v.Value)
		if err != nil {
			return query.Value{}, false, fmt.Errorf("number %q: %w", v.Value, err)
		}
		return query.Decimal(d), true, nil
	default:
		return query.Value{}, false, nil
	}
}
