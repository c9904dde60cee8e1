package router

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"io"
	"net"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"

	"github.com/horus-robotics/horus/cmn/cos"
)

// aeadConn wraps a net.Conn in a ChaCha20-Poly1305 AEAD record layer
// for deployments that want transport encryption without provisioning
// a TLS certificate: an ephemeral X25519 exchange derives a
// shared key, after which every Read/Write is one sealed/opened record
// framed by a u32 length prefix -- identical framing discipline to the
// plaintext path, just one layer further in. Long-term cert/key paths
// in the router config are accepted for forward compatibility but this
// ephemeral-key handshake authenticates neither peer; it only denies a
// passive eavesdropper on the wire.
type aeadConn struct {
	net.Conn
	aead           cipher.AEAD
	writeDirection byte
	readDirection  byte
	writeCounter   uint64
	readCounter    uint64
	pending        []byte
}

func recordNonce(direction byte, counter uint64) []byte {
	n := make([]byte, chacha20poly1305.NonceSize)
	n[0] = direction
	binary.BigEndian.PutUint64(n[4:], counter)
	return n
}

func (c *aeadConn) Write(p []byte) (int, error) {
	nonce := recordNonce(c.writeDirection, c.writeCounter)
	c.writeCounter++
	sealed := c.aead.Seal(nil, nonce, p, nil)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(sealed)))
	if _, err := c.Conn.Write(lenBuf[:]); err != nil {
		return 0, err
	}
	if _, err := c.Conn.Write(sealed); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *aeadConn) Read(p []byte) (int, error) {
	if len(c.pending) == 0 {
		var lenBuf [4]byte
		if _, err := io.ReadFull(c.Conn, lenBuf[:]); err != nil {
			return 0, err
		}
		sz := binary.LittleEndian.Uint32(lenBuf[:])
		ciphertext := make([]byte, sz)
		if _, err := io.ReadFull(c.Conn, ciphertext); err != nil {
			return 0, err
		}
		nonce := recordNonce(c.readDirection, c.readCounter)
		c.readCounter++
		plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
		if err != nil {
			return 0, &cos.ErrHandshakeFailed{Reason: "aead record failed to open, possible tamper or desync"}
		}
		c.pending = plain
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func deriveKey(priv, peerPub []byte) ([]byte, error) {
	shared, err := curve25519.X25519(priv, peerPub)
	if err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "x25519 exchange failed: " + err.Error()}
	}
	key := sha256.Sum256(shared)
	return key[:], nil
}

func ephemeralKeypair() (priv, pub []byte, err error) {
	priv = make([]byte, curve25519.ScalarSize)
	if _, err = io.ReadFull(rand.Reader, priv); err != nil {
		return nil, nil, &cos.ErrHandshakeFailed{Reason: "failed to generate ephemeral key: " + err.Error()}
	}
	pub, err = curve25519.X25519(priv, curve25519.Basepoint)
	if err != nil {
		return nil, nil, &cos.ErrHandshakeFailed{Reason: "failed to derive ephemeral public key: " + err.Error()}
	}
	return priv, pub, nil
}

// ServerHandshake runs the server side of the connection state
// machine's Accepted -> Handshaked transition.
func ServerHandshake(nc net.Conn) (net.Conn, error) {
	priv, pub, err := ephemeralKeypair()
	if err != nil {
		return nil, err
	}
	clientPub := make([]byte, curve25519.PointSize)
	if _, err := io.ReadFull(nc, clientPub); err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "failed to read client public key: " + err.Error()}
	}
	if _, err := nc.Write(pub); err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "failed to send server public key: " + err.Error()}
	}
	key, err := deriveKey(priv, clientPub)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "aead init failed: " + err.Error()}
	}
	return &aeadConn{Conn: nc, aead: aead, writeDirection: 1, readDirection: 0}, nil
}

// ClientHandshake runs the client side of the same exchange.
func ClientHandshake(nc net.Conn) (net.Conn, error) {
	priv, pub, err := ephemeralKeypair()
	if err != nil {
		return nil, err
	}
	if _, err := nc.Write(pub); err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "failed to send client public key: " + err.Error()}
	}
	serverPub := make([]byte, curve25519.PointSize)
	if _, err := io.ReadFull(nc, serverPub); err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "failed to read server public key: " + err.Error()}
	}
	key, err := deriveKey(priv, serverPub)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, &cos.ErrHandshakeFailed{Reason: "aead init failed: " + err.Error()}
	}
	return &aeadConn{Conn: nc, aead: aead, writeDirection: 0, readDirection: 1}, nil
}
