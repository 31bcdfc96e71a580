// Package cidutil derives the content identifiers used to key stored
// envelopes: CIDv1, raw codec, sha2-256 multihash.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CID of data.
func Sum(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// String is Sum formatted in the default multibase. It returns "" only if
// hashing fails, which sha2-256 with the default length does not.
func String(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// Parse decodes s and checks that it is a CID Sum could have produced.
func Parse(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, err
	}
	if err := Check(id); err != nil {
		return cid.Undef, err
	}
	return id, nil
}

// Check rejects CIDs that are not v1 raw sha2-256.
func Check(id cid.Cid) error {
	if !id.Defined() {
		return fmt.Errorf("cidutil: undefined cid")
	}
	p := id.Prefix()
	if p.Version != 1 || p.Codec != cid.Raw || p.MhType != multihash.SHA2_256 {
		return fmt.Errorf("cidutil: unsupported cid %s (v%d codec 0x%x hash 0x%x)", id, p.Version, p.Codec, p.MhType)
	}
	return nil
}
