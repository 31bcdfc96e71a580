package dataitem

import (
	"bytes"
	"encoding/binary"
	"testing"

	"xdao.co/arena/deephash"
	"xdao.co/arena/keys"
	"xdao.co/arena/tags"
)

func fixedSigner(t *testing.T) *keys.Keypair {
	t.Helper()
	seed := make([]byte, keys.SeedSize)
	for i := range seed {
		seed[i] = 0x42
	}
	kp, err := keys.FromSeed(seed)
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return kp
}

func TestHelloEnvelopeLayout(t *testing.T) {
	signer := fixedSigner(t)
	tl := tags.WithContentType("text/plain")

	raw, item, err := Build([]byte("hello"), tl, signer, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	tagBytes := tags.Encode(tl)
	var want []byte
	want = binary.LittleEndian.AppendUint16(want, 2)
	want = append(want, item.Signature()...)
	want = append(want, signer.PublicKey()...)
	want = append(want, 0) // no target
	want = append(want, 0) // no anchor
	want = binary.LittleEndian.AppendUint64(want, 1)
	want = binary.LittleEndian.AppendUint64(want, uint64(len(tagBytes)))
	want = append(want, tagBytes...)
	want = append(want, "hello"...)

	if !bytes.Equal(raw, want) {
		t.Fatalf("envelope mismatch:\n got %x\nwant %x", raw, want)
	}
	if len(raw) != 2+64+32+1+1+8+8+len(tagBytes)+5 {
		t.Fatalf("unexpected envelope length %d", len(raw))
	}
	if !bytes.Equal(raw[2:66], item.Signature()) {
		t.Fatalf("signature not at offset 2")
	}
}

func TestHelloEnvelopeDeterministicOutsideSignature(t *testing.T) {
	signer := fixedSigner(t)
	tl := tags.WithContentType("text/plain")

	a, err := New(signer.PublicKey(), []byte("hello"), tl, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New(signer.PublicKey(), []byte("hello"), tl, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !bytes.Equal(a.UnsignedBytes(), b.UnsignedBytes()) {
		t.Fatalf("pre-signature bytes differ between builds")
	}

	if err := a.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	signed, err := a.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	unsigned := b.UnsignedBytes()
	if !bytes.Equal(signed[:2], unsigned[:2]) || !bytes.Equal(signed[66:], unsigned[66:]) {
		t.Fatalf("signed and unsigned envelopes differ outside the signature field")
	}

	// Ed25519 is deterministic, so signatures match too.
	if err := b.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !bytes.Equal(a.Signature(), b.Signature()) {
		t.Fatalf("expected identical signatures for identical input")
	}
}

func TestSignatureDataIsEightElementDeepHash(t *testing.T) {
	signer := fixedSigner(t)
	tl := tags.New("A", "1")
	item, err := New(signer.PublicKey(), []byte("payload"), tl, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	want := deephash.Sum(deephash.List{
		deephash.String("dataitem"),
		deephash.String("1"),
		deephash.String("2"),
		deephash.Blob(signer.PublicKey()),
		deephash.Blob{},
		deephash.Blob{},
		deephash.Blob(tags.Encode(tl)),
		deephash.Blob("payload"),
	})
	if item.SignatureData() != want {
		t.Fatalf("signature data does not match the documented deep hash")
	}

	if err := item.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !keys.Verify(signer.PublicKey(), want[:], item.Signature()) {
		t.Fatalf("signature does not verify over the deep hash")
	}
}

func TestParseVerifyRoundTrip(t *testing.T) {
	signer := fixedSigner(t)
	target := bytes.Repeat([]byte{0xaa}, TargetSize)
	anchor := bytes.Repeat([]byte{0xbb}, AnchorSize)
	tl := tags.New("Content-Type", "application/json", "App-Name", "arena")

	raw, built, err := Build([]byte(`{"name":"Freya"}`), tl, signer, Options{Target: target, Anchor: anchor})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := parsed.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !bytes.Equal(parsed.Target(), target) || !bytes.Equal(parsed.Anchor(), anchor) {
		t.Fatalf("target/anchor not recovered")
	}
	if v, _ := parsed.Tags().Get("App-Name"); v != "arena" {
		t.Fatalf("tags not recovered: %#v", parsed.Tags())
	}
	if parsed.ID() != built.ID() || len(parsed.ID()) != 43 {
		t.Fatalf("unexpected id %q (built %q)", parsed.ID(), built.ID())
	}
	reencoded, err := parsed.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Equal(reencoded, raw) {
		t.Fatalf("re-encoding changed the envelope")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	signer := fixedSigner(t)
	raw, _, err := Build([]byte("hello"), tags.WithContentType("text/plain"), signer, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, off := range []int{len(raw) - 1, 2 + 64, len(raw) - 6} {
		bad := append([]byte(nil), raw...)
		bad[off] ^= 0x01
		item, err := Parse(bad)
		if err != nil {
			continue
		}
		if err := item.Verify(); !IsKind(err, KindCrypto) {
			t.Fatalf("tampering at %d: expected crypto error, got %v", off, err)
		}
	}
}

func TestEmptyTagsAndPayload(t *testing.T) {
	signer := fixedSigner(t)
	raw, _, err := Build(nil, nil, signer, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(raw) != minHeader {
		t.Fatalf("expected minimal envelope of %d bytes, got %d", minHeader, len(raw))
	}
	item, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := item.Verify(); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(item.Tags()) != 0 || len(item.Data()) != 0 {
		t.Fatalf("expected empty tags and data")
	}
}

func TestNewRejectsBadLengths(t *testing.T) {
	owner := make([]byte, OwnerSize)
	if _, err := New(owner[:31], nil, nil, Options{}); !IsKind(err, KindLayout) {
		t.Fatalf("expected layout error for short owner, got %v", err)
	}
	if _, err := New(owner, nil, nil, Options{Target: make([]byte, 31)}); !IsKind(err, KindLayout) {
		t.Fatalf("expected layout error for short target, got %v", err)
	}
	if _, err := New(owner, nil, nil, Options{Anchor: []byte{}}); !IsKind(err, KindLayout) {
		t.Fatalf("expected layout error for empty anchor, got %v", err)
	}
}

func TestSignRules(t *testing.T) {
	signer := fixedSigner(t)
	other, err := keys.GenerateEphemeral(nil)
	if err != nil {
		t.Fatalf("GenerateEphemeral: %v", err)
	}

	item, err := New(signer.PublicKey(), []byte("x"), nil, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := item.Bytes(); !IsKind(err, KindCrypto) {
		t.Fatalf("expected unsigned item to refuse serialization, got %v", err)
	}
	if err := item.Sign(other); !IsKind(err, KindCrypto) {
		t.Fatalf("expected owner mismatch error, got %v", err)
	}
	if err := item.Sign(signer); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := item.Sign(signer); !IsKind(err, KindCrypto) {
		t.Fatalf("expected re-sign to be rejected, got %v", err)
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	signer := fixedSigner(t)
	raw, _, err := Build([]byte("hello"), tags.New("k", "v"), signer, Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, err := Parse(raw[:10]); !IsKind(err, KindParse) {
		t.Fatalf("expected parse error for short input, got %v", err)
	}

	badType := append([]byte(nil), raw...)
	badType[0] = 9
	if _, err := Parse(badType); !IsKind(err, KindParse) {
		t.Fatalf("expected parse error for signature type, got %v", err)
	}

	badFlag := append([]byte(nil), raw...)
	badFlag[2+64+32] = 7
	if _, err := Parse(badFlag); !IsKind(err, KindParse) {
		t.Fatalf("expected parse error for presence flag, got %v", err)
	}

	badCount := append([]byte(nil), raw...)
	binary.LittleEndian.PutUint64(badCount[2+64+32+2:], 5)
	if _, err := Parse(badCount); !IsKind(err, KindParse) {
		t.Fatalf("expected parse error for tag count, got %v", err)
	}

	badLen := append([]byte(nil), raw...)
	binary.LittleEndian.PutUint64(badLen[2+64+32+2+8:], 1<<40)
	if _, err := Parse(badLen); !IsKind(err, KindParse) {
		t.Fatalf("expected parse error for tag length, got %v", err)
	}
}
