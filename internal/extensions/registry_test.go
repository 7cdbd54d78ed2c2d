package extensions

import (
	"strings"
	"testing"

	"github.com/authz-engine/policy-core/pkg/types"
)

func call(t *testing.T, r *Registry, name string, args ...types.Value) types.Value {
	t.Helper()
	fn, ok := r.Lookup(name)
	if !ok {
		t.Fatalf("function %q not registered", name)
	}
	v, err := fn.Call(args)
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestIPConstructor(t *testing.T) {
	r := DefaultRegistry()
	v := call(t, r, "ip", types.String("192.168.0.1"))
	ip, ok := v.(types.IPAddr)
	if !ok {
		t.Fatalf("ip returned %T", v)
	}
	if ip.String() != "192.168.0.1" {
		t.Errorf("got %q", ip.String())
	}
}

func TestIPConstructorRejectsNonString(t *testing.T) {
	r := DefaultRegistry()
	fn, _ := r.Lookup("ip")
	if _, err := fn.Call([]types.Value{types.Long(4)}); err == nil {
		t.Fatal("expected error for ip(4)")
	}
}

func TestIPConstructorRejectsGarbage(t *testing.T) {
	r := DefaultRegistry()
	fn, _ := r.Lookup("ip")
	_, err := fn.Call([]types.Value{types.String("not an ip")})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "`ip`") {
		t.Errorf("error should name the function: %v", err)
	}
}

func TestIPPredicates(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		fn   string
		addr string
		want bool
	}{
		{"isIpv4", "10.0.0.1", true},
		{"isIpv4", "::1", false},
		{"isIpv6", "::1", true},
		{"isIpv6", "10.0.0.1", false},
		{"isLoopback", "127.0.0.1", true},
		{"isLoopback", "10.0.0.1", false},
		{"isMulticast", "224.0.0.1", true},
		{"isMulticast", "10.0.0.1", false},
	}
	for _, tt := range tests {
		ip, err := types.ParseIPAddr(tt.addr)
		if err != nil {
			t.Fatalf("ParseIPAddr(%q): %v", tt.addr, err)
		}
		got := call(t, r, tt.fn, ip)
		if got != types.Boolean(tt.want) {
			t.Errorf("%s(%s) = %v, want %v", tt.fn, tt.addr, got, tt.want)
		}
	}
}

func TestIsInRange(t *testing.T) {
	r := DefaultRegistry()
	addr, _ := types.ParseIPAddr("192.168.1.77")
	network, _ := types.ParseIPAddr("192.168.0.0/16")
	if got := call(t, r, "isInRange", addr, network); got != types.True {
		t.Error("192.168.1.77 should be in 192.168.0.0/16")
	}
	outside, _ := types.ParseIPAddr("10.0.0.1")
	if got := call(t, r, "isInRange", outside, network); got != types.False {
		t.Error("10.0.0.1 should not be in 192.168.0.0/16")
	}
}

func TestDecimalConstructorAndComparisons(t *testing.T) {
	r := DefaultRegistry()
	a := call(t, r, "decimal", types.String("1.25"))
	b := call(t, r, "decimal", types.String("2.5"))
	tests := []struct {
		fn   string
		want bool
	}{
		{"lessThan", true},
		{"lessThanOrEqual", true},
		{"greaterThan", false},
		{"greaterThanOrEqual", false},
	}
	for _, tt := range tests {
		if got := call(t, r, tt.fn, a, b); got != types.Boolean(tt.want) {
			t.Errorf("%s(1.25, 2.5) = %v, want %v", tt.fn, got, tt.want)
		}
	}
	if got := call(t, r, "lessThanOrEqual", a, a); got != types.True {
		t.Error("lessThanOrEqual should hold for equal values")
	}
}

func TestDecimalComparisonRejectsMixedTypes(t *testing.T) {
	r := DefaultRegistry()
	fn, _ := r.Lookup("lessThan")
	d, _ := types.ParseDecimal("1.0")
	if _, err := fn.Call([]types.Value{d, types.Long(2)}); err == nil {
		t.Fatal("expected error comparing decimal with long")
	}
}

func TestSignatures(t *testing.T) {
	r := DefaultRegistry()
	sigs := r.Signatures()
	ip, ok := sigs["ip"]
	if !ok {
		t.Fatal("ip signature missing")
	}
	if ip.Style != StyleConstructor || len(ip.Args) != 1 || ip.Args[0] != "string" || ip.Returns != "ipaddr" {
		t.Errorf("unexpected ip signature: %+v", ip)
	}
	inRange, ok := sigs["isInRange"]
	if !ok {
		t.Fatal("isInRange signature missing")
	}
	if inRange.Style != StyleMethod || len(inRange.Args) != 2 {
		t.Errorf("unexpected isInRange signature: %+v", inRange)
	}
	if _, ok := sigs["unknownFn"]; ok {
		t.Error("unknownFn should not be registered")
	}
}

func TestLookupMiss(t *testing.T) {
	r := DefaultRegistry()
	if _, ok := r.Lookup("frobnicate"); ok {
		t.Error("frobnicate should not resolve")
	}
}
