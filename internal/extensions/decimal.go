package extensions

import (
	"fmt"

	"github.com/authz-engine/policy-core/pkg/types"
)

func registerDecimal(r *Registry) {
	r.Register(Function{
		Signature: Signature{Name: "decimal", Style: StyleConstructor, Args: []string{"string"}, Returns: "decimal"},
		Call: func(args []types.Value) (types.Value, error) {
			s, err := argString(args, 0, "decimal")
			if err != nil {
				return nil, err
			}
			d, err := types.ParseDecimal(s)
			if err != nil {
				return nil, fmt.Errorf("`decimal`: %w", err)
			}
			return d, nil
		},
	})
	cmp := func(name string, pred func(int) bool) {
		r.Register(Function{
			Signature: Signature{Name: name, Style: StyleMethod, Args: []string{"decimal", "decimal"}, Returns: "bool"},
			Call: func(args []types.Value) (types.Value, error) {
				left, err := argDecimal(args, 0, name)
				if err != nil {
					return nil, err
				}
				right, err := argDecimal(args, 1, name)
				if err != nil {
					return nil, err
				}
				return types.Boolean(pred(left.Cmp(right))), nil
			},
		})
	}
	cmp("lessThan", func(c int) bool { return c < 0 })
	cmp("lessThanOrEqual", func(c int) bool { return c <= 0 })
	cmp("greaterThan", func(c int) bool { return c > 0 })
	cmp("greaterThanOrEqual", func(c int) bool { return c >= 0 })
}
