// this file provides the content hashes used to address ledger objects:
//   1. message ids: CIDv1 (raw codec) over a sha2-256 multihash of the canonical packet
//   2. channel addresses: hex sha3-256 digests

package crypto

import (
	"encoding/hex"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"golang.org/x/crypto/sha3"
)

// ContentID returns the CIDv1 string of data using the raw codec and a sha2-256 multihash.
func ContentID(data []byte) (string, error) {
	if len(data) == 0 {
		return "", NewValidationError("data is empty")
	}
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return "", WrapInternalError(err, "failed to compute multihash")
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// VerifyContentID reports whether id is the content id of data.
func VerifyContentID(data []byte, id string) bool {
	parsed, err := cid.Decode(id)
	if err != nil {
		return false
	}
	want, err := ContentID(data)
	if err != nil {
		return false
	}
	return parsed.String() == want
}

// SHA3Hex returns the hex encoded sha3-256 digest of the concatenated parts.
func SHA3Hex(parts ...[]byte) string {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}
