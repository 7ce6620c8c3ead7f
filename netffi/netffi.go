// Package netffi frames messages over TCP.
// its formal contract is weak: [Conn.Send] might not deliver bytes,
// and [Conn.Receive] might return arbitrary bytes.
package netffi

import (
	"io"
	"net"
	"sync"

	"github.com/tchajed/marshal"
)

// # Conn

type Conn struct {
	c      net.Conn
	sendMu *sync.Mutex
	recvMu *sync.Mutex
}

// Dial connects to a "host:port" addr and errors on fail.
func Dial(addr string) (*Conn, bool) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, true
	}
	return newConn(conn), false
}

func newConn(conn net.Conn) *Conn {
	return &Conn{c: conn, sendMu: new(sync.Mutex), recvMu: new(sync.Mutex)}
}

func (c *Conn) Send(data []byte) bool {
	// encoding: len(data) ++ data.
	e := marshal.NewEnc(8 + uint64(len(data)))
	e.PutInt(uint64(len(data)))
	e.PutBytes(data)
	msg := e.Finish()

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	_, err := c.c.Write(msg)
	if err != nil {
		// prevent sending on this conn again.
		c.c.Close()
		return true
	}
	return false
}

// Receive returns data and errors on fail.
func (c *Conn) Receive() ([]byte, bool) {
	c.recvMu.Lock()
	defer c.recvMu.Unlock()

	// encoding: len(data) ++ data.
	header := make([]byte, 8)
	_, err0 := io.ReadFull(c.c, header)
	if err0 != nil {
		// the other side hung up, which can legitimately happen.
		// we lost track of where in the protocol we are, so close it.
		c.c.Close()
		return nil, true
	}
	d := marshal.NewDec(header)
	dataLen := d.GetInt()

	data := make([]byte, dataLen)
	_, err1 := io.ReadFull(c.c, data)
	if err1 != nil {
		c.c.Close()
		return nil, true
	}
	return data, false
}

func (c *Conn) Close() {
	c.c.Close()
}

// # Listener

type Listener struct {
	l net.Listener
}

func Listen(addr string) *Listener {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		// likely, port is already in use. fail loudly.
		panic("netffi: Listen err")
	}
	return &Listener{l}
}

// Addr returns the bound addr, which differs from the Listen addr
// when listening on port 0.
func (l *Listener) Addr() string {
	return l.l.Addr().String()
}

// Accept errors once the listener closes.
func (l *Listener) Accept() (*Conn, bool) {
	conn, err := l.l.Accept()
	if err != nil {
		return nil, true
	}
	return newConn(conn), false
}

func (l *Listener) Close() {
	l.l.Close()
}
