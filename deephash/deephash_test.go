package deephash

import (
	"crypto/sha512"
	"testing"
)

func sample() List {
	return List{
		String("dataitem"),
		String("1"),
		String("2"),
		Blob(make([]byte, 32)),
		Blob{},
		Blob{},
		Blob{0x02, 0x18},
		List{String("nested"), Blob{1, 2, 3}},
	}
}

func TestBlobMatchesDefinition(t *testing.T) {
	data := []byte("hello")
	tag := sha512.Sum384([]byte("blob5"))
	inner := sha512.Sum384(data)
	want := sha512.Sum384(append(tag[:], inner[:]...))

	if got := Sum(Blob(data)); got != want {
		t.Fatalf("blob digest mismatch")
	}
}

func TestListMatchesDefinition(t *testing.T) {
	a, b := Blob("a"), Blob("bc")
	acc := sha512.Sum384([]byte("list2"))
	ha, hb := Sum(a), Sum(b)
	acc = sha512.Sum384(append(acc[:], ha[:]...))
	acc = sha512.Sum384(append(acc[:], hb[:]...))

	if got := Sum(List{a, b}); got != acc {
		t.Fatalf("list digest mismatch")
	}
}

func TestEmptyList(t *testing.T) {
	want := sha512.Sum384([]byte("list0"))
	if got := Sum(List{}); got != want {
		t.Fatalf("empty list must hash to H(\"list0\")")
	}
}

func TestDeterministic(t *testing.T) {
	if Sum(sample()) != Sum(sample()) {
		t.Fatalf("expected identical digests for structurally equal input")
	}
}

func TestSingleBitSensitivity(t *testing.T) {
	base := Sum(sample())

	for i := range sample() {
		mutated := sample()
		switch v := mutated[i].(type) {
		case Blob:
			if len(v) == 0 {
				mutated[i] = Blob{0x00}
			} else {
				c := append(Blob{}, v...)
				c[len(c)-1] ^= 0x01
				mutated[i] = c
			}
		case List:
			inner := append(List{}, v...)
			b := append(Blob{}, inner[1].(Blob)...)
			b[0] ^= 0x01
			inner[1] = b
			mutated[i] = inner
		}
		if Sum(mutated) == base {
			t.Fatalf("flipping a bit in element %d did not change the digest", i)
		}
	}
}

func TestBlobAndListAreDistinguished(t *testing.T) {
	if Sum(Blob{}) == Sum(List{}) {
		t.Fatalf("empty blob and empty list must differ")
	}
	if Sum(List{Blob("x")}) == Sum(Blob("x")) {
		t.Fatalf("wrapping a blob in a list must change the digest")
	}
}
