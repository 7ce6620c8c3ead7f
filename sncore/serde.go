package sncore

import (
	"github.com/MystenLabs/sparse-nodes/marshalutil"
	"github.com/MystenLabs/sparse-nodes/merkle"
	"github.com/tchajed/marshal"
)

func StreamUpdateEncode(b0 []byte, o *StreamUpdate) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.Stream)
	b = marshalutil.WriteSlice2D(b, o.Points)
	return b
}

func StreamUpdateDecode(b0 []byte) (*StreamUpdate, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadSlice2D(b1)
	if err2 {
		return nil, nil, true
	}
	for _, p := range a2 {
		if uint64(len(p)) != PointLen {
			return nil, nil, true
		}
	}
	return &StreamUpdate{Stream: a1, Points: a2}, b2, false
}

func StreamStateEncode(b0 []byte, o *StreamState) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.Stream)
	b = marshal.WriteInt(b, o.Count)
	b = marshal.WriteInt(b, o.Batch)
	b = marshalutil.WriteSlice1D(b, o.Head)
	b = marshalutil.WriteSlice1D(b, o.Leaf)
	return b
}

func StreamStateDecode(b0 []byte) (*StreamState, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadInt(b1)
	if err2 {
		return nil, nil, true
	}
	a3, b3, err3 := marshalutil.ReadInt(b2)
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
	st := &StreamState{Stream: a1, Count: a2, Batch: a3, Leaf: a5}
	if len(a4) != 0 {
		st.Head = a4
	}
	return st, b5, false
}

// LeafUpd is one leaf put within a checkpoint.
type LeafUpd struct {
	Label []byte
	Val   []byte
	Proof *merkle.UpdateProof
}

// AuditProof carries everything an auditor needs to replay one epoch.
type AuditProof struct {
	Updates []*LeafUpd
	LinkSig []byte
}

func LeafUpdEncode(b0 []byte, o *LeafUpd) []byte {
	var b = b0
	b = marshalutil.WriteSlice1D(b, o.Label)
	b = marshalutil.WriteSlice1D(b, o.Val)
	b = merkle.UpdateProofEncode(b, o.Proof)
	return b
}

func LeafUpdDecode(b0 []byte) (*LeafUpd, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadSlice1D(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadSlice1D(b1)
	if err2 {
		return nil, nil, true
	}
	a3, b3, err3 := merkle.UpdateProofDecode(b2)
	if err3 {
		return nil, nil, true
	}
	return &LeafUpd{Label: a1, Val: a2, Proof: a3}, b3, false
}

func AuditProofEncode(b0 []byte, o *AuditProof) []byte {
	var b = b0
	b = marshal.WriteInt(b, uint64(len(o.Updates)))
	for _, u := range o.Updates {
		b = LeafUpdEncode(b, u)
	}
	b = marshalutil.WriteSlice1D(b, o.LinkSig)
	return b
}

func AuditProofDecode(b0 []byte) (*AuditProof, []byte, bool) {
	n, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	var upds []*LeafUpd
	var b = b1
	for i := uint64(0); i < n; i++ {
		var u *LeafUpd
		var err bool
		u, b, err = LeafUpdDecode(b)
		if err {
			return nil, nil, true
		}
		upds = append(upds, u)
	}
	sig, b2, err2 := marshalutil.ReadSlice1D(b)
	if err2 {
		return nil, nil, true
	}
	return &AuditProof{Updates: upds, LinkSig: sig}, b2, false
}
