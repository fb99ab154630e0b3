package transport

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"hoover/internal/ringbuffer"
)

func testKey() []byte {
	key := make([]byte, KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	key := testKey()
	gcm, err := newGCM(key)
	require.NoError(t, err)

	plaintext := Float32ToPCM([]float32{0.1, -0.2, 0.3})
	frame, err := Encode(gcm, 42, plaintext)
	require.NoError(t, err)

	serial, decoded, err := Decode(gcm, frame)
	require.NoError(t, err)
	require.Equal(t, uint64(42), serial)
	require.Equal(t, plaintext, decoded)
}

// TestEncodeDecodeRoundTripProperty is invariant 6 of spec.md §8:
// decode(encode(serial, plaintext)) reproduces the original serial and
// plaintext for any plaintext content and any serial value.
func TestEncodeDecodeRoundTripProperty(t *testing.T) {
	key := testKey()
	gcm, err := newGCM(key)
	require.NoError(t, err)

	rapid.Check(t, func(t *rapid.T) {
		serial := rapid.Uint64().Draw(t, "serial")
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, MaxPlaintext).Draw(t, "plaintext")

		frame, err := Encode(gcm, serial, plaintext)
		require.NoError(t, err)

		gotSerial, gotPlaintext, err := Decode(gcm, frame)
		require.NoError(t, err)
		require.Equal(t, serial, gotSerial)
		require.Equal(t, plaintext, gotPlaintext)
	})
}

func TestDecodeRejectsShortFrame(t *testing.T) {
	key := testKey()
	gcm, err := newGCM(key)
	require.NoError(t, err)

	_, _, err = Decode(gcm, []byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRejectsTamperedCiphertext(t *testing.T) {
	key := testKey()
	gcm, err := newGCM(key)
	require.NoError(t, err)

	frame, err := Encode(gcm, 1, Float32ToPCM([]float32{0.5}))
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xFF

	_, _, err = Decode(gcm, frame)
	require.Error(t, err)
}

// TestReplayProtection is invariant 7 of spec.md §8: a frame whose
// serial is not strictly greater than the peer's last accepted serial
// is rejected before any decryption side effects reach the ring
// buffer.
func TestReplayProtection(t *testing.T) {
	table := newPeerTable()
	now := time.Now()

	require.True(t, table.checkReplay("10.0.0.5", 5))
	table.accept("10.0.0.5", 5, now)

	require.False(t, table.checkReplay("10.0.0.5", 5))
	require.False(t, table.checkReplay("10.0.0.5", 3))
	require.True(t, table.checkReplay("10.0.0.5", 6))
}

// TestFailureTriggersBanAfterThree is invariant 8 of spec.md §8: the
// firewall backend is invoked exactly once, on the third
// authentication failure from the same address within the 10s window.
func TestFailureTriggersBanAfterThree(t *testing.T) {
	table := newPeerTable()
	now := time.Now()

	require.False(t, table.fail("10.0.0.5", now))
	require.False(t, table.fail("10.0.0.5", now.Add(time.Second)))
	require.True(t, table.fail("10.0.0.5", now.Add(2*time.Second)))
	// a fourth failure must not re-trigger the ban
	require.False(t, table.fail("10.0.0.5", now.Add(3*time.Second)))
}

func TestFailureWindowResets(t *testing.T) {
	table := newPeerTable()
	now := time.Now()

	require.False(t, table.fail("10.0.0.5", now))
	require.False(t, table.fail("10.0.0.5", now.Add(time.Second)))
	require.False(t, table.fail("10.0.0.5", now.Add(20*time.Second)))
}

type countingFirewall struct {
	banned []string
}

func (c *countingFirewall) Ban(ctx context.Context, ip string, d time.Duration) error {
	c.banned = append(c.banned, ip)
	return nil
}
func (c *countingFirewall) Unban(ctx context.Context, ip string) error { return nil }

// TestScenarioS6UDPTamper mirrors spec.md §8's S6: three tampered
// frames from the same address ban it exactly once and inject zero
// samples into the ring buffer.
func TestScenarioS6UDPTamper(t *testing.T) {
	key := testKey()
	gcm, err := newGCM(key)
	require.NoError(t, err)

	rb := ringbuffer.New(16000)
	fw := &countingFirewall{}
	r := &Receiver{gcm: gcm, rb: rb, fw: fw, peers: newPeerTable(), blockDuration: time.Minute, log: slog.Default()}

	frame, err := Encode(gcm, 1, Float32ToPCM([]float32{0.1, 0.2}))
	require.NoError(t, err)
	frame[len(frame)-1] ^= 0xFF

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		r.handleDatagram(ctx, "10.0.0.5", append([]byte(nil), frame...))
	}

	require.Equal(t, []string{"10.0.0.5"}, fw.banned)
	require.Empty(t, rb.Drain(), "ring buffer should have no samples from tampered frames")
}
