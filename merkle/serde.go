package merkle

import (
	"github.com/MystenLabs/sparse-nodes/marshalutil"
)

func ProofEncode(b0 []byte, o *Proof) []byte {
	var b = b0
	b = marshalutil.WriteSlice1D(b, o.Siblings)
	b = marshalutil.WriteSlice1D(b, o.LeafLabel)
	b = marshalutil.WriteSlice1D(b, o.LeafVal)
	return b
}

func ProofDecode(b0 []byte) (*Proof, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadSlice1D(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadSlice1D(b1)
	if err2 {
		return nil, nil, true
	}
	a3, b3, err3 := marshalutil.ReadSlice1D(b2)
	if err3 {
		return nil, nil, true
	}
	p := &Proof{Siblings: a1}
	if len(a2) != 0 {
		p.LeafLabel = a2
		p.LeafVal = a3
	}
	return p, b3, false
}

func UpdateProofEncode(b0 []byte, o *UpdateProof) []byte {
	var b = b0
	b = marshalutil.WriteSlice1D(b, o.Siblings)
	b = marshalutil.WriteBool(b, o.OldInTree)
	b = marshalutil.WriteSlice1D(b, o.OldVal)
	b = marshalutil.WriteSlice1D(b, o.LeafLabel)
	b = marshalutil.WriteSlice1D(b, o.LeafVal)
	return b
}

func UpdateProofDecode(b0 []byte) (*UpdateProof, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadSlice1D(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadBool(b1)
	if err2 {
		return nil, nil, true
	}
	a3, b3, err3 := marshalutil.ReadSlice1D(b2)
	if err3 {
		return nil, nil, true
	}
	a4, b4, err4 := marshalutil.ReadSlice1D(b3)
	if err4 {
		return nil, nil, true
	}
	a5, b5, err5 := marshalutil.ReadSlice1D(b4)
	if err5 {
		return nil, nil, true
	}
	p := &UpdateProof{Siblings: a1, OldInTree: a2, OldVal: a3}
	if len(a4) != 0 {
		p.LeafLabel = a4
		p.LeafVal = a5
	}
	return p, b5, false
}
