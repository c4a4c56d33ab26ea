package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// CIDv1RawBlake3 returns an IPFS-compatible CIDv1 string (raw codec, blake3
// multihash) for data. The underlying digest bytes are identical to Sum(data);
// only the rendering differs. Used when publishing bundles to external
// registries that speak CIDv1.
func CIDv1RawBlake3(data []byte) (string, error) {
	sum, err := multihash.Sum(data, multihash.BLAKE3, Size)
	if err != nil {
		return "", err
	}
	return cid.NewCidV1(cid.Raw, sum).String(), nil
}

// CIDv1RawBlake3CID returns the CIDv1 (raw + blake3) for data as a cid.Cid.
func CIDv1RawBlake3CID(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.BLAKE3, Size)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
