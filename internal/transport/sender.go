package transport

import (
	"crypto/cipher"
	"fmt"
	"net"
	"time"
)

// maxPlaintextSamples bounds a single frame's payload to spec.md
// §4.10's 1200-byte plaintext MTU (2 bytes per i16 PCM sample).
const maxPlaintextSamples = MaxPlaintext / 2

// Sender packetises PCM and transmits encrypted frames over UDP,
// assigning a monotonically increasing serial starting from the
// current unix-millisecond timestamp so a restarted sender can't
// collide with a still-live receiver session (spec.md §4.10).
type Sender struct {
	conn   *net.UDPConn
	gcm    cipher.AEAD
	serial uint64
}

func NewSender(addr string, key []byte) (*Sender, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Sender{
		conn:   conn,
		gcm:    gcm,
		serial: uint64(time.Now().UnixMilli()),
	}, nil
}

// SendSamples packetises samples into <=1200-byte-plaintext frames
// and transmits each in order.
func (s *Sender) SendSamples(samples []float32) error {
	for off := 0; off < len(samples); off += maxPlaintextSamples {
		end := off + maxPlaintextSamples
		if end > len(samples) {
			end = len(samples)
		}
		pcm := Float32ToPCM(samples[off:end])

		frame, err := Encode(s.gcm, s.serial, pcm)
		if err != nil {
			return fmt.Errorf("encode frame: %w", err)
		}
		s.serial++

		if _, err := s.conn.Write(frame); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	return nil
}

func (s *Sender) Close() error {
	return s.conn.Close()
}
