package transport

import (
	"context"
	"crypto/cipher"
	"fmt"
	"log/slog"
	"net"
	"time"

	"hoover/internal/firewall"
	"hoover/internal/herr"
	"hoover/internal/ringbuffer"
)

// ReceiveTimeout is the socket read deadline spec.md §5 gives the UDP
// receiver so it can observe shutdown without blocking forever.
const ReceiveTimeout = 250 * time.Millisecond

// BlockDuration is how long a banned peer stays blocked before the
// firewall backend's own timeout lifts it automatically.
const BlockDuration = 10 * time.Minute

// Receiver listens for encrypted audio frames and pushes decrypted
// PCM into a shared RingBuffer, reacting to repeated authentication
// failures by invoking a Firewall Controller (spec.md §4.10).
type Receiver struct {
	conn  *net.UDPConn
	gcm   cipher.AEAD
	rb    *ringbuffer.RingBuffer
	fw    firewall.Controller
	peers *peerTable
	log   *slog.Logger

	blockDuration time.Duration
}

func NewReceiver(addr string, key []byte, rb *ringbuffer.RingBuffer, fw firewall.Controller, blockDuration time.Duration) (*Receiver, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve udp addr: %w", err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen udp: %w", err)
	}

	if blockDuration <= 0 {
		blockDuration = BlockDuration
	}

	return &Receiver{
		conn:          conn,
		gcm:           gcm,
		rb:            rb,
		fw:            fw,
		peers:         newPeerTable(),
		log:           slog.With("component", "udp_receiver"),
		blockDuration: blockDuration,
	}, nil
}

// Run reads datagrams until ctx is cancelled, decrypting each and
// pushing accepted PCM into the ring buffer.
func (r *Receiver) Run(ctx context.Context) error {
	buf := make([]byte, 2048)
	for {
		select {
		case <-ctx.Done():
			return r.conn.Close()
		default:
		}

		if err := r.conn.SetReadDeadline(time.Now().Add(ReceiveTimeout)); err != nil {
			return fmt.Errorf("set read deadline: %w", err)
		}

		n, src, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return fmt.Errorf("udp read: %w", err)
		}

		r.handleDatagram(ctx, src.IP.String(), append([]byte(nil), buf[:n]...))
	}
}

func (r *Receiver) handleDatagram(ctx context.Context, addr string, datagram []byte) {
	now := time.Now()

	if len(datagram) < MinFrameSize {
		r.onFailure(ctx, addr, now)
		return
	}

	serial, plaintext, err := Decode(r.gcm, datagram)
	if err != nil {
		r.onFailure(ctx, addr, now)
		return
	}

	if !r.peers.checkReplay(addr, serial) {
		r.log.Warn("udp replay rejected", "addr", addr, "serial", serial)
		r.onFailure(ctx, addr, now)
		return
	}

	r.peers.accept(addr, serial, now)
	samples := PCMToFloat32(plaintext)
	r.rb.Push(samples)
}

func (r *Receiver) onFailure(ctx context.Context, addr string, now time.Time) {
	shouldBan := r.peers.fail(addr, now)
	if !shouldBan || r.fw == nil {
		return
	}

	banCtx, cancel := context.WithTimeout(ctx, firewall.CommandTimeout)
	defer cancel()
	if err := r.fw.Ban(banCtx, addr, r.blockDuration); err != nil {
		r.log.Error("firewall ban failed", "addr", addr, "error", fmt.Errorf("%w: %v", herr.ErrFirewallBackend, err))
		return
	}
	r.log.Warn("banned peer for repeated udp authentication failures", "addr", addr)
}

func (r *Receiver) Close() error {
	return r.conn.Close()
}
