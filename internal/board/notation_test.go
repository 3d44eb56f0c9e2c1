package board

import "testing"

func TestSquareNames(t *testing.T) {
	cases := map[string]Square{
		"a8": Sq(0, 0),
		"h8": Sq(0, 7),
		"a1": Sq(7, 0),
		"e2": Sq(6, 4),
		"e4": Sq(4, 4),
	}
	for name, sq := range cases {
		if got := sq.String(); got != name {
			t.Fatalf("%v: got %q want %q", sq, got, name)
		}
		parsed, err := ParseSquare(name)
		if err != nil || parsed != sq {
			t.Fatalf("ParseSquare(%q) = %v, %v", name, parsed, err)
		}
	}
	if got := Sq(8, 0).String(); got != "-" {
		t.Fatalf("invalid square name: %q", got)
	}
}

func TestMoveRoundTripAllPairs(t *testing.T) {
	for from := 0; from < Size*Size; from++ {
		for to := 0; to < Size*Size; to++ {
			m := Move{From: Sq(from/Size, from%Size), To: Sq(to/Size, to%Size)}
			code := m.UCI()
			if len(code) != 4 {
				t.Fatalf("%v: code %q is not 4 characters", m, code)
			}
			back, err := ParseMove(code)
			if err != nil {
				t.Fatalf("ParseMove(%q): %v", code, err)
			}
			if back != m {
				t.Fatalf("round trip %v -> %q -> %v", m, code, back)
			}
		}
	}
}

func TestParseMoveRejects(t *testing.T) {
	for _, in := range []string{"", "e2", "e2e", "e7e8q", "i2e4", "e0e4", "e2e9", "(none)"} {
		if _, err := ParseMove(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	m, err := ParseMove(" E2E4 ")
	if err != nil || m.UCI() != "e2e4" {
		t.Fatalf("case/space handling: %v %v", m, err)
	}
}
