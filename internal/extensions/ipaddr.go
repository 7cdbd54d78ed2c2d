package extensions

import (
	"fmt"

	"github.com/authz-engine/policy-core/pkg/types"
)

func registerIPAddr(r *Registry) {
	r.Register(Function{
		Signature: Signature{Name: "ip", Style: StyleConstructor, Args: []string{"string"}, Returns: "ipaddr"},
		Call: func(args []types.Value) (types.Value, error) {
			s, err := argString(args, 0, "ip")
			if err != nil {
				return nil, err
			}
			ip, err := types.ParseIPAddr(s)
			if err != nil {
				return nil, fmt.Errorf("`ip`: %w", err)
			}
			return ip, nil
		},
	})
	ipPredicate := func(name string, pred func(types.IPAddr) bool) {
		r.Register(Function{
			Signature: Signature{Name: name, Style: StyleMethod, Args: []string{"ipaddr"}, Returns: "bool"},
			Call: func(args []types.Value) (types.Value, error) {
				ip, err := argIPAddr(args, 0, name)
				if err != nil {
					return nil, err
				}
				return types.Boolean(pred(ip)), nil
			},
		})
	}
	ipPredicate("isIpv4", types.IPAddr.IsIPv4)
	ipPredicate("isIpv6", types.IPAddr.IsIPv6)
	ipPredicate("isLoopback", types.IPAddr.IsLoopback)
	ipPredicate("isMulticast", types.IPAddr.IsMulticast)
	r.Register(Function{
		Signature: Signature{Name: "isInRange", Style: StyleMethod, Args: []string{"ipaddr", "ipaddr"}, Returns: "bool"},
		Call: func(args []types.Value) (types.Value, error) {
			addr, err := argIPAddr(args, 0, "isInRange")
			if err != nil {
				return nil, err
			}
			network, err := argIPAddr(args, 1, "isInRange")
			if err != nil {
				return nil, err
			}
			return types.Boolean(addr.InRange(network)), nil
		},
	})
}
