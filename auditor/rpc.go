package auditor

import (
	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/marshalutil"
	"github.com/MystenLabs/sparse-nodes/sncore"
)

const (
	AdtrUpdateRpc uint64 = 0
	AdtrGetRpc    uint64 = 1
)

func NewRpcServer(a *Auditor) *advrpc.Server {
	h := make(map[uint64]func([]byte, *[]byte))
	h[AdtrUpdateRpc] = func(arg []byte, reply *[]byte) {
		argObj, _, err0 := sncore.AuditProofDecode(arg)
		if err0 {
			*reply = []byte{1}
			return
		}
		if a.Update(argObj) != sncore.BlameNone {
			*reply = []byte{1}
		} else {
			*reply = []byte{0}
		}
	}
	h[AdtrGetRpc] = func(arg []byte, reply *[]byte) {
		argObj, _, err0 := GetArgDecode(arg)
		if err0 {
			*reply = GetReplyEncode(*reply, &GetReply{Err: true})
			return
		}
		ret0, ret1 := a.Get(argObj.Epoch)
		*reply = GetReplyEncode(*reply, &GetReply{X: ret0, Err: ret1})
	}
	return advrpc.NewServer(h)
}

// CallAdtrUpdate relays one checkpoint proof to an auditor.
func CallAdtrUpdate(c *advrpc.Client, p *sncore.AuditProof) bool {
	argByt := sncore.AuditProofEncode(make([]byte, 0), p)
	replyByt := new([]byte)
	var err0 = true
	for err0 {
		// this "removes" possibility of net failure.
		err0 = c.Call(AdtrUpdateRpc, argByt, replyByt)
	}
	// success reply is the single const byte 0.
	rem, err1 := marshalutil.ReadConstByte(*replyByt, 0)
	if err1 {
		return true
	}
	return len(rem) != 0
}

func CallAdtrGet(c *advrpc.Client, epoch uint64) (*EpochInfo, bool) {
	arg := &GetArg{Epoch: epoch}
	argByt := GetArgEncode(make([]byte, 0), arg)
	replyByt := new([]byte)
	var err0 = true
	for err0 {
		err0 = c.Call(AdtrGetRpc, argByt, replyByt)
	}
	reply, _, err1 := GetReplyDecode(*replyByt)
	if err1 {
		return nil, true
	}
	return reply.X, reply.Err
}
