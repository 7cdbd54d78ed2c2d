package types

import (
	"testing"
)

func TestEqualityAcrossTypes(t *testing.T) {
	values := []Value{True, Long(1), String("1"), NewSet(Long(1)), EmptyRecord(), NewEntityUID("User", "1")}
	for i, a := range values {
		for j, b := range values {
			got := a.Equal(b)
			want := i == j
			if got != want {
				t.Errorf("Equal(%s, %s) = %v, want %v", a.MarshalCedar(), b.MarshalCedar(), got, want)
			}
		}
	}
}

func TestCheckedArithmetic(t *testing.T) {
	const max = Long(1<<63 - 1)
	const min = Long(-1 << 63)

	if v, ok := Long(2).CheckedAdd(Long(3)); !ok || v != 5 {
		t.Errorf("2+3 = %d, %v", v, ok)
	}
	if _, ok := max.CheckedAdd(1); ok {
		t.Error("max+1 should overflow")
	}
	if _, ok := min.CheckedSub(1); ok {
		t.Error("min-1 should overflow")
	}
	if v, ok := Long(-4).CheckedMul(Long(5)); !ok || v != -20 {
		t.Errorf("-4*5 = %d, %v", v, ok)
	}
	if _, ok := max.CheckedMul(2); ok {
		t.Error("max*2 should overflow")
	}
	if _, ok := min.CheckedMul(-1); ok {
		t.Error("min*-1 should overflow")
	}
	if _, ok := min.CheckedNeg(); ok {
		t.Error("-min should overflow")
	}
}

func TestSetDeduplication(t *testing.T) {
	s := NewSet(Long(1), Long(2), Long(1), String("x"))
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	if !s.Contains(Long(2)) || s.Contains(Long(3)) {
		t.Error("Contains gave wrong membership")
	}
}

func TestSetEqualityIgnoresOrder(t *testing.T) {
	a := NewSet(Long(1), Long(2), Long(3))
	b := NewSet(Long(3), Long(1), Long(2))
	if !a.Equal(b) {
		t.Error("sets with the same elements should be equal")
	}
	c := NewSet(Long(1), Long(2))
	if a.Equal(c) {
		t.Error("sets with different cardinality should not be equal")
	}
}

func TestRecordEquality(t *testing.T) {
	a := NewRecord(map[string]Value{"x": Long(1), "y": String("s")})
	b := NewRecord(map[string]Value{"y": String("s"), "x": Long(1)})
	if !a.Equal(b) {
		t.Error("records with the same attributes should be equal")
	}
	c := NewRecord(map[string]Value{"x": Long(1)})
	if a.Equal(c) {
		t.Error("records with different keys should not be equal")
	}
}

func TestParseEntityUID(t *testing.T) {
	tests := []struct {
		input    string
		wantType string
		wantID   string
		wantErr  string
	}{
		{input: `User::"alice"`, wantType: "User", wantID: "alice"},
		{input: `PhotoApp::UserGroup::"janeFriends"`, wantType: "PhotoApp::UserGroup", wantID: "janeFriends"},
		{input: `User::"a\"b"`, wantType: "User", wantID: `a"b`},
		{input: `User:"alice"`, wantErr: "unexpected token `:`"},
		{input: `User`, wantErr: "unexpected end of input, expected `::`"},
		{input: `User::"alice`, wantErr: "unterminated string literal"},
		{input: `User::"alice"x`, wantErr: "unexpected token `x`"},
	}
	for _, tt := range tests {
		uid, err := ParseEntityUID(tt.input)
		if tt.wantErr != "" {
			if err == nil || err.Error() != tt.wantErr {
				t.Errorf("ParseEntityUID(%q) error = %v, want %q", tt.input, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseEntityUID(%q) failed: %v", tt.input, err)
			continue
		}
		if uid.Type != tt.wantType || uid.ID != tt.wantID {
			t.Errorf("ParseEntityUID(%q) = %v, want %s::%q", tt.input, uid, tt.wantType, tt.wantID)
		}
	}
}

func TestEntityUIDRendering(t *testing.T) {
	uid := NewEntityUID("User", "alice")
	if got := uid.String(); got != `User::"alice"` {
		t.Errorf("String = %q", got)
	}
}

func TestDecimal(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"12.34", "12.34"},
		{"12.3400", "12.34"},
		{"-0.5", "-0.5"},
		{"1.0", "1.0"},
		{"-12.0001", "-12.0001"},
	}
	for _, tt := range tests {
		d, err := ParseDecimal(tt.input)
		if err != nil {
			t.Errorf("ParseDecimal(%q) failed: %v", tt.input, err)
			continue
		}
		if got := d.String(); got != tt.want {
			t.Errorf("ParseDecimal(%q).String() = %q, want %q", tt.input, got, tt.want)
		}
	}

	for _, bad := range []string{"12", "1.", "1.12345", "abc.def", "922337203685477.5808"} {
		if _, err := ParseDecimal(bad); err == nil {
			t.Errorf("ParseDecimal(%q) should fail", bad)
		}
	}

	a, _ := ParseDecimal("1.5")
	b, _ := ParseDecimal("2.25")
	if a.Cmp(b) != -1 || b.Cmp(a) != 1 || a.Cmp(a) != 0 {
		t.Error("Cmp ordering is wrong")
	}
}

func TestIPAddr(t *testing.T) {
	host, err := ParseIPAddr("192.168.1.100")
	if err != nil {
		t.Fatalf("ParseIPAddr failed: %v", err)
	}
	network, err := ParseIPAddr("192.168.1.0/24")
	if err != nil {
		t.Fatalf("ParseIPAddr failed: %v", err)
	}
	if !host.IsIPv4() || host.IsIPv6() {
		t.Error("192.168.1.100 should be IPv4")
	}
	if !host.InRange(network) {
		t.Error("host should be in 192.168.1.0/24")
	}
	if network.InRange(host) {
		t.Error("network should not be inside a single host")
	}
	loop, _ := ParseIPAddr("127.0.0.1")
	if !loop.IsLoopback() {
		t.Error("127.0.0.1 should be loopback")
	}
	v6, _ := ParseIPAddr("::1")
	if !v6.IsIPv6() {
		t.Error("::1 should be IPv6")
	}
	if _, err := ParseIPAddr("not-an-ip"); err == nil {
		t.Error("garbage should fail to parse")
	}
}

func TestValueJSONRoundTrip(t *testing.T) {
	ip, _ := ParseIPAddr("10.0.0.1")
	dec, _ := ParseDecimal("3.14")
	original := NewRecord(map[string]Value{
		"flag":   True,
		"count":  Long(42),
		"name":   String("alice"),
		"tags":   NewSet(String("a"), String("b")),
		"owner":  NewEntityUID("User", "alice"),
		"source": ip,
		"score":  dec,
	})

	raw, err := ValueToJSON(original)
	if err != nil {
		t.Fatalf("ValueToJSON failed: %v", err)
	}
	decoded, err := ValueFromJSON(raw)
	if err != nil {
		t.Fatalf("ValueFromJSON failed: %v", err)
	}
	if !original.Equal(decoded) {
		t.Errorf("round trip changed value: %s != %s", original.MarshalCedar(), decoded.MarshalCedar())
	}
}

func TestValueFromJSONRejectsFloats(t *testing.T) {
	if _, err := ValueFromJSON([]byte(`1.5`)); err == nil {
		t.Error("floats should be rejected")
	}
	if _, err := ValueFromJSON([]byte(`null`)); err == nil {
		t.Error("null should be rejected")
	}
}

func TestRecordFromJSON(t *testing.T) {
	r, err := RecordFromJSON([]byte(`{"a": 1}`))
	if err != nil {
		t.Fatalf("RecordFromJSON failed: %v", err)
	}
	if v, ok := r.Get("a"); !ok || !v.Equal(Long(1)) {
		t.Errorf("missing attribute a")
	}

	_, err = RecordFromJSON([]byte(`[]`))
	if err == nil {
		t.Fatal("non-record JSON should fail")
	}
	if got := err.Error(); got != "expression is not a record: `[]`" {
		t.Errorf("error = %q", got)
	}
}
