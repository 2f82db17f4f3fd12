package realm

import "testing"

func TestMakePairIsOrderIndependent(t *testing.T) {
	a := MakePair(7, 3)
	b := MakePair(3, 7)
	if a != b {
		t.Fatalf("MakePair(7,3) = %v, MakePair(3,7) = %v", a, b)
	}
	if a.Lo != 3 || a.Hi != 7 {
		t.Errorf("pair = %+v, want Lo=3 Hi=7", a)
	}
	if a.Other(3) != 7 || a.Other(7) != 3 {
		t.Errorf("Other returned wrong partner")
	}
	if !a.Contains(7) || a.Contains(5) {
		t.Errorf("Contains mismatch")
	}
	if a.String() != "3_7" {
		t.Errorf("String = %q, want 3_7", a.String())
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID(" 42 ")
	if err != nil {
		t.Fatalf("ParseID: %v", err)
	}
	if id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
	if _, err := ParseID("forty-two"); err == nil {
		t.Error("expected error for non-numeric id")
	}
}
