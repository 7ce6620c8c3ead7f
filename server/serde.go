package server

import (
	"github.com/MystenLabs/sparse-nodes/marshalutil"
	"github.com/MystenLabs/sparse-nodes/merkle"
	"github.com/MystenLabs/sparse-nodes/sncore"
	"github.com/tchajed/marshal"
)

type StartReply struct {
	StartEpochLen uint64
	StartLink     []byte
	ChainProof    []byte
	LinkSig       []byte
	Enc           uint64
}

type UpdateReply struct {
	Epoch uint64
	Err   bool
}

type QueryArg struct {
	Stream    uint64
	PrevEpoch uint64
}

type QueryReply struct {
	ChainProof []byte
	LinkSig    []byte
	InTree     bool
	// State is only set when InTree.
	State       *sncore.StreamState
	MerkleProof *merkle.Proof
	Err         sncore.Blame
}

type AuditArg struct {
	PrevEpochLen uint64
}

type AuditReply struct {
	P   []*sncore.AuditProof
	Err sncore.Blame
}

func StartReplyEncode(b0 []byte, o *StartReply) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.StartEpochLen)
	b = marshalutil.WriteSlice1D(b, o.StartLink)
	b = marshalutil.WriteSlice1D(b, o.ChainProof)
	b = marshalutil.WriteSlice1D(b, o.LinkSig)
	b = marshal.WriteInt(b, o.Enc)
	return b
}

func StartReplyDecode(b0 []byte) (*StartReply, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
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
	a4, b4, err4 := marshalutil.ReadSlice1D(b3)
	if err4 {
		return nil, nil, true
	}
	a5, b5, err5 := marshalutil.ReadInt(b4)
	if err5 {
		return nil, nil, true
	}
	return &StartReply{StartEpochLen: a1, StartLink: a2, ChainProof: a3, LinkSig: a4, Enc: a5}, b5, false
}

func UpdateReplyEncode(b0 []byte, o *UpdateReply) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.Epoch)
	b = marshalutil.WriteBool(b, o.Err)
	return b
}

func UpdateReplyDecode(b0 []byte) (*UpdateReply, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadBool(b1)
	if err2 {
		return nil, nil, true
	}
	return &UpdateReply{Epoch: a1, Err: a2}, b2, false
}

func QueryArgEncode(b0 []byte, o *QueryArg) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.Stream)
	b = marshal.WriteInt(b, o.PrevEpoch)
	return b
}

func QueryArgDecode(b0 []byte) (*QueryArg, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	a2, b2, err2 := marshalutil.ReadInt(b1)
	if err2 {
		return nil, nil, true
	}
	return &QueryArg{Stream: a1, PrevEpoch: a2}, b2, false
}

func QueryReplyEncode(b0 []byte, o *QueryReply) []byte {
	var b = b0
	b = marshal.WriteInt(b, uint64(o.Err))
	if o.Err != sncore.BlameNone {
		return b
	}
	b = marshalutil.WriteSlice1D(b, o.ChainProof)
	b = marshalutil.WriteSlice1D(b, o.LinkSig)
	b = marshalutil.WriteBool(b, o.InTree)
	if o.InTree {
		b = sncore.StreamStateEncode(b, o.State)
	}
	b = merkle.ProofEncode(b, o.MerkleProof)
	return b
}

func QueryReplyDecode(b0 []byte) (*QueryReply, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	if sncore.Blame(a1) != sncore.BlameNone {
		return &QueryReply{Err: sncore.Blame(a1)}, b1, false
	}
	a2, b2, err2 := marshalutil.ReadSlice1D(b1)
	if err2 {
		return nil, nil, true
	}
	a3, b3, err3 := marshalutil.ReadSlice1D(b2)
	if err3 {
		return nil, nil, true
	}
	a4, b4, err4 := marshalutil.ReadBool(b3)
	if err4 {
		return nil, nil, true
	}
	var a5 *sncore.StreamState
	var b5 = b4
	if a4 {
		var err5 bool
		a5, b5, err5 = sncore.StreamStateDecode(b4)
		if err5 {
			return nil, nil, true
		}
	}
	a6, b6, err6 := merkle.ProofDecode(b5)
	if err6 {
		return nil, nil, true
	}
	return &QueryReply{ChainProof: a2, LinkSig: a3, InTree: a4, State: a5, MerkleProof: a6}, b6, false
}

func AuditArgEncode(b0 []byte, o *AuditArg) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.PrevEpochLen)
	return b
}

func AuditArgDecode(b0 []byte) (*AuditArg, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	return &AuditArg{PrevEpochLen: a1}, b1, false
}

func AuditReplyEncode(b0 []byte, o *AuditReply) []byte {
	var b = b0
	b = marshal.WriteInt(b, uint64(o.Err))
	if o.Err != sncore.BlameNone {
		return b
	}
	b = marshal.WriteInt(b, uint64(len(o.P)))
	for _, p := range o.P {
		b = sncore.AuditProofEncode(b, p)
	}
	return b
}

func AuditReplyDecode(b0 []byte) (*AuditReply, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	if sncore.Blame(a1) != sncore.BlameNone {
		return &AuditReply{Err: sncore.Blame(a1)}, b1, false
	}
	n, b2, err2 := marshalutil.ReadInt(b1)
	if err2 {
		return nil, nil, true
	}
	var ps []*sncore.AuditProof
	var b = b2
	for i := uint64(0); i < n; i++ {
		var p *sncore.AuditProof
		var err bool
		p, b, err = sncore.AuditProofDecode(b)
		if err {
			return nil, nil, true
		}
		ps = append(ps, p)
	}
	return &AuditReply{P: ps}, b, false
}
