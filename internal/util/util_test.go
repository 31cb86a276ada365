package util

import "testing"

func TestMaskIdentity(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"ipv4", "203.0.113.7", "203.0.x.x"},
		{"ipv4 padded", "  198.51.100.23  ", "198.51.x.x"},
		{"ipv6", "2001:db8:85a3::8a2e:370:7334", "2001:db8:..."},
		{"opaque long", "some-client-token", "some...oken"},
		{"opaque short", "abcde", "ab...de"},
		{"tiny", "ab", "ab"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := MaskIdentity(tc.in); got != tc.want {
				t.Fatalf("MaskIdentity(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
