package server

import (
	"github.com/MystenLabs/sparse-nodes/advrpc"
	"github.com/MystenLabs/sparse-nodes/sncore"
)

const (
	ServerStartRpc  uint64 = 0
	ServerUpdateRpc uint64 = 1
	ServerQueryRpc  uint64 = 2
	ServerAuditRpc  uint64 = 3
)

func NewRpcServer(s *Server) *advrpc.Server {
	h := make(map[uint64]func([]byte, *[]byte))
	h[ServerStartRpc] = func(arg []byte, reply *[]byte) {
		replyObj := s.Start()
		*reply = StartReplyEncode(*reply, replyObj)
	}
	h[ServerUpdateRpc] = func(arg []byte, reply *[]byte) {
		argObj, _, err0 := sncore.StreamUpdateDecode(arg)
		if err0 {
			*reply = UpdateReplyEncode(*reply, &UpdateReply{Err: true})
			return
		}
		epoch, err1 := s.Update(argObj.Stream, argObj.Points)
		*reply = UpdateReplyEncode(*reply, &UpdateReply{Epoch: epoch, Err: err1})
	}
	h[ServerQueryRpc] = func(arg []byte, reply *[]byte) {
		argObj, _, err0 := QueryArgDecode(arg)
		if err0 {
			*reply = QueryReplyEncode(*reply, &QueryReply{Err: sncore.BlameUnknown})
			return
		}
		replyObj := s.Query(argObj.Stream, argObj.PrevEpoch)
		*reply = QueryReplyEncode(*reply, replyObj)
	}
	h[ServerAuditRpc] = func(arg []byte, reply *[]byte) {
		argObj, _, err0 := AuditArgDecode(arg)
		if err0 {
			*reply = AuditReplyEncode(*reply, &AuditReply{Err: sncore.BlameUnknown})
			return
		}
		ret0, ret1 := s.Audit(argObj.PrevEpochLen)
		*reply = AuditReplyEncode(*reply, &AuditReply{P: ret0, Err: ret1})
	}
	return advrpc.NewServer(h)
}

func CallServStart(c *advrpc.Client) (*StartReply, bool) {
	replyByt := new([]byte)
	var err0 = true
	for err0 {
		// this "removes" possibility of net failure.
		err0 = c.Call(ServerStartRpc, nil, replyByt)
	}
	reply, _, err1 := StartReplyDecode(*replyByt)
	if err1 {
		return nil, true
	}
	return reply, false
}

func CallServUpdate(c *advrpc.Client, stream uint64, points [][]byte) (uint64, bool) {
	arg := &sncore.StreamUpdate{Stream: stream, Points: points}
	argByt := sncore.StreamUpdateEncode(make([]byte, 0), arg)
	replyByt := new([]byte)
	var err0 = true
	for err0 {
		err0 = c.Call(ServerUpdateRpc, argByt, replyByt)
	}
	reply, _, err1 := UpdateReplyDecode(*replyByt)
	if err1 {
		return 0, true
	}
	return reply.Epoch, reply.Err
}

func CallServQuery(c *advrpc.Client, stream, prevEpoch uint64) (*QueryReply, sncore.Blame) {
	arg := &QueryArg{Stream: stream, PrevEpoch: prevEpoch}
	argByt := QueryArgEncode(make([]byte, 0), arg)
	replyByt := new([]byte)
	var err0 = true
	for err0 {
		err0 = c.Call(ServerQueryRpc, argByt, replyByt)
	}
	reply, _, err1 := QueryReplyDecode(*replyByt)
	if err1 {
		return nil, sncore.BlameServFull
	}
	return reply, reply.Err
}

func CallServAudit(c *advrpc.Client, prevEpochLen uint64) ([]*sncore.AuditProof, sncore.Blame) {
	arg := &AuditArg{PrevEpochLen: prevEpochLen}
	argByt := AuditArgEncode(make([]byte, 0), arg)
	replyByt := new([]byte)
	var err0 = true
	for err0 {
		err0 = c.Call(ServerAuditRpc, argByt, replyByt)
	}
	reply, _, err1 := AuditReplyDecode(*replyByt)
	if err1 {
		return nil, sncore.BlameServFull
	}
	return reply.P, reply.Err
}
