package auditor

import (
	"github.com/MystenLabs/sparse-nodes/marshalutil"
	"github.com/tchajed/marshal"
)

type GetArg struct {
	Epoch uint64
}

type GetReply struct {
	X   *EpochInfo
	Err bool
}

func GetArgEncode(b0 []byte, o *GetArg) []byte {
	var b = b0
	b = marshal.WriteInt(b, o.Epoch)
	return b
}

func GetArgDecode(b0 []byte) (*GetArg, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadInt(b0)
	if err1 {
		return nil, nil, true
	}
	return &GetArg{Epoch: a1}, b1, false
}

func EpochInfoEncode(b0 []byte, o *EpochInfo) []byte {
	var b = b0
	b = marshalutil.WriteSlice1D(b, o.Link)
	b = marshalutil.WriteSlice1D(b, o.ServSig)
	b = marshalutil.WriteSlice1D(b, o.AdtrSig)
	return b
}

func EpochInfoDecode(b0 []byte) (*EpochInfo, []byte, bool) {
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
	return &EpochInfo{Link: a1, ServSig: a2, AdtrSig: a3}, b3, false
}

func GetReplyEncode(b0 []byte, o *GetReply) []byte {
	var b = b0
	b = marshalutil.WriteBool(b, o.Err)
	if o.Err {
		return b
	}
	b = EpochInfoEncode(b, o.X)
	return b
}

func GetReplyDecode(b0 []byte) (*GetReply, []byte, bool) {
	a1, b1, err1 := marshalutil.ReadBool(b0)
	if err1 {
		return nil, nil, true
	}
	if a1 {
		return &GetReply{Err: true}, b1, false
	}
	a2, b2, err2 := EpochInfoDecode(b1)
	if err2 {
		return nil, nil, true
	}
	return &GetReply{X: a2}, b2, false
}
