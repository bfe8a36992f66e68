package crypto

import "testing"

func TestEncodeAttributeDeterministic(t *testing.T) {
	a := EncodeAttribute("Alice")
	b := EncodeAttribute("Alice")
	if a != b {
		t.Fatalf("EncodeAttribute(%q) not deterministic: %s != %s", "Alice", a, b)
	}
}

func TestEncodeAttributeIntegerPassthrough(t *testing.T) {
	if got := EncodeAttribute("42"); got != "42" {
		t.Fatalf("EncodeAttribute(42) = %s, want 42", got)
	}
}

func TestEncodeAttributeHashedBranch(t *testing.T) {
	got := EncodeAttribute("Alice")
	if got == "Alice" {
		t.Fatal("non-integer raw value should not pass through unchanged")
	}
	if got == "" {
		t.Fatal("encoded value should not be empty")
	}
}

func TestEncodeAttributesMap(t *testing.T) {
	raw := map[string]string{"name": "Alice", "age": "42"}
	encoded := EncodeAttributes(raw)
	if encoded["age"] != "42" {
		t.Errorf("age: got %s, want 42", encoded["age"])
	}
	if encoded["name"] != EncodeAttribute("Alice") {
		t.Errorf("name: got %s, want %s", encoded["name"], EncodeAttribute("Alice"))
	}
}
