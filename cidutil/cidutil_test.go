package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestSumDeterministic(t *testing.T) {
	a, err := Sum([]byte("envelope"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	b, err := Sum([]byte("envelope"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	if a != b {
		t.Fatalf("Sum not deterministic: %s vs %s", a, b)
	}
	if String([]byte("envelope")) != a.String() {
		t.Fatalf("String disagrees with Sum")
	}
	c, _ := Sum([]byte("envelopf"))
	if a == c {
		t.Fatalf("different inputs produced the same cid")
	}
}

func TestParseRoundTrip(t *testing.T) {
	want, err := Sum([]byte("x"))
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	got, err := Parse(want.String())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got != want {
		t.Fatalf("got %s want %s", got, want)
	}
}

func TestParseRejects(t *testing.T) {
	if _, err := Parse("not-a-cid"); err == nil {
		t.Fatalf("expected error for garbage")
	}

	mh, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	dagPB := cid.NewCidV1(cid.DagProtobuf, mh)
	if _, err := Parse(dagPB.String()); err == nil {
		t.Fatalf("expected error for dag-pb codec")
	}

	sha512mh, err := multihash.Sum([]byte("x"), multihash.SHA2_512, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if _, err := Parse(cid.NewCidV1(cid.Raw, sha512mh).String()); err == nil {
		t.Fatalf("expected error for sha2-512")
	}

	if err := Check(cid.Undef); err == nil {
		t.Fatalf("expected error for undefined cid")
	}
}
