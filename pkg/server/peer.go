package server

import (
	"bufio"
	"io"
	"net"
	"sync"
)

// maxLineBytes bounds a single protocol line. Longer lines fail the
// read and drop the connection.
const maxLineBytes = 64 * 1024

// Peer is one client transport: a source of protocol lines and a sink
// for replies. ReadLine blocks until a full line arrives or the peer
// goes away; WriteLine is safe for concurrent use, since deliveries
// originate from other sessions' goroutines.
type Peer interface {
	ReadLine() (string, error)
	WriteLine(text string) error
	Close() error
	RemoteAddr() string
}

// tcpPeer adapts a net.Conn to the Peer interface with newline framing.
// The accumulation buffer in bufio.Scanner turns the raw byte stream
// into exactly one command per protocol turn, regardless of how reads
// chunk.
type tcpPeer struct {
	conn    net.Conn
	scanner *bufio.Scanner

	wmu sync.Mutex
}

func newTCPPeer(conn net.Conn) *tcpPeer {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return &tcpPeer{conn: conn, scanner: scanner}
}

func (p *tcpPeer) ReadLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return p.scanner.Text(), nil
}

func (p *tcpPeer) WriteLine(text string) error {
	p.wmu.Lock()
	defer p.wmu.Unlock()
	_, err := p.conn.Write(append([]byte(text), '\n'))
	return err
}

func (p *tcpPeer) Close() error {
	return p.conn.Close()
}

func (p *tcpPeer) RemoteAddr() string {
	return p.conn.RemoteAddr().String()
}
