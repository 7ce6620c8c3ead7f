package cryptoutil

import (
	"github.com/MystenLabs/sparse-nodes/cryptoffi"
)

func Hash(b []byte) []byte {
	hr := cryptoffi.NewHasher()
	hr.Write(b)
	return hr.Sum(nil)
}

// Hash2 hashes the concatenation of b0 and b1.
func Hash2(b0, b1 []byte) []byte {
	hr := cryptoffi.NewHasher()
	hr.Write(b0)
	hr.Write(b1)
	return hr.Sum(nil)
}
