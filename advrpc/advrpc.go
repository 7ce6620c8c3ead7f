// Package advrpc is a basic RPC lib on top of an adversarial network.
// for testing, it returns the right bytes from the right rpc id.
// however, its formal model says that rpc calls return arbitrary bytes.
package advrpc

import (
	"github.com/MystenLabs/sparse-nodes/marshalutil"
	"github.com/MystenLabs/sparse-nodes/netffi"
	"github.com/tchajed/marshal"
)

// # Server

type Server struct {
	handlers map[uint64]func([]byte, *[]byte)
}

func NewServer(handlers map[uint64]func([]byte, *[]byte)) *Server {
	return &Server{handlers: handlers}
}

func (s *Server) handle(conn *netffi.Conn, rpcId uint64, data []byte) {
	f, ok0 := s.handlers[rpcId]
	if !ok0 {
		// adv gave bad rpcId.
		return
	}
	resp := new([]byte)
	f(data, resp)
	// ignore errors. if err, client will timeout, then retry.
	conn.Send(*resp)
}

func (s *Server) read(conn *netffi.Conn) {
	for {
		req, err0 := conn.Receive()
		if err0 {
			// connection done. quit thread.
			break
		}
		rpcId, data, err1 := marshalutil.ReadInt(req)
		if err1 {
			// adv didn't even give rpcId.
			continue
		}
		go func() {
			s.handle(conn, rpcId, data)
		}()
	}
}

// Serve starts a listener on a "host:port" addr and returns it, so
// callers can recover the bound port and close it on shutdown.
func (s *Server) Serve(addr string) *netffi.Listener {
	l := netffi.Listen(addr)
	go func() {
		for {
			conn, err := l.Accept()
			if err {
				// listener closed.
				break
			}
			go func() {
				s.read(conn)
			}()
		}
	}()
	return l
}

// # Client

// Client is meant for exclusive use.
type Client struct {
	addr string
	conn *netffi.Conn
}

func Dial(addr string) *Client {
	// connect lazily. the server might not be up yet.
	return &Client{addr: addr}
}

// Call does an rpc.
func (c *Client) Call(rpcId uint64, args []byte, reply *[]byte) (err bool) {
	if c.conn == nil {
		conn, err0 := netffi.Dial(c.addr)
		if err0 {
			return true
		}
		c.conn = conn
	}
	req0 := make([]byte, 0, 8+len(args))
	req1 := marshal.WriteInt(req0, rpcId)
	req2 := marshal.WriteBytes(req1, args)
	if c.conn.Send(req2) {
		c.conn = nil
		return true
	}

	resp, err1 := c.conn.Receive()
	if err1 {
		c.conn = nil
		return true
	}
	*reply = resp
	return false
}
