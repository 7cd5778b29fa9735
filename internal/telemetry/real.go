package telemetry

import (
	"bufio"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"time"
)

// RealClient dials the remote collaborator over a mutually-authenticated
// TLS socket.
type RealClient struct {
	addr   string
	tlsCfg *tls.Config
	conn   *tls.Conn
}

// NewRealClient loads the client certificate, private key, and CA bundle
// named by cert, key, and ca, and prepares a client dialing host:port.
func NewRealClient(host string, port int, cert, key, ca string) (*RealClient, error) {
	pair, err := tls.LoadX509KeyPair(cert, key)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}

	pool := x509.NewCertPool()
	caBytes, err := os.ReadFile(ca)
	if err != nil {
		return nil, fmt.Errorf("read CA bundle: %w", err)
	}
	if !pool.AppendCertsFromPEM(caBytes) {
		return nil, fmt.Errorf("no certificates found in CA bundle %s", ca)
	}

	return &RealClient{
		addr: fmt.Sprintf("%s:%d", host, port),
		tlsCfg: &tls.Config{
			Certificates: []tls.Certificate{pair},
			RootCAs:      pool,
			MinVersion:   tls.VersionTLS12,
		},
	}, nil
}

// Send dials (if not already connected), writes snap as a single JSON
// document, and reads back a single JSON document reply, all within
// sendTimeout.
func (c *RealClient) Send(snap Snapshot) (Reply, error) {
	if c.conn == nil {
		dialer := &net.Dialer{Timeout: sendTimeout}
		conn, err := tls.DialWithDialer(dialer, "tcp", c.addr, c.tlsCfg)
		if err != nil {
			return Reply{}, fmt.Errorf("dial %s: %w", c.addr, err)
		}
		c.conn = conn
	}

	deadline := time.Now().Add(sendTimeout)
	if err := c.conn.SetDeadline(deadline); err != nil {
		return Reply{}, fmt.Errorf("set deadline: %w", err)
	}

	payload, err := MarshalSnapshot(snap)
	if err != nil {
		return Reply{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := c.conn.Write(payload); err != nil {
		c.reset()
		return Reply{}, fmt.Errorf("write snapshot: %w", err)
	}

	buf := make([]byte, 4096)
	reader := bufio.NewReader(c.conn)
	n, err := reader.Read(buf)
	if err != nil {
		c.reset()
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}

	reply, err := UnmarshalReply(buf[:n])
	if err != nil {
		return Reply{}, fmt.Errorf("unmarshal reply: %w", err)
	}
	return reply, nil
}

func (c *RealClient) reset() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Close disconnects from the remote collaborator.
func (c *RealClient) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
