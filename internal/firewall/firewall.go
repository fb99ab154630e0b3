// Package firewall implements the pluggable Firewall Controller named
// in spec.md §6: on repeated UDP authentication failures from a peer,
// ban its address for a bounded window. Two variants are provided,
// selected by config: firewalld (via D-Bus, grounded on the
// github.com/godbus/dbus/v5 dependency carried by several manifests in
// the pack, e.g. leomorpho-ramble-ai, nkristianto-VocaGlyph,
// AshBuk-speak-to-ai) and nftables (a named set with a per-element
// timeout, driven through its CLI since no nftables Go binding appears
// anywhere in the pack — justified as an os/exec usage in DESIGN.md).
package firewall

import (
	"context"
	"fmt"
	"time"
)

// Controller bans and unbans a single IP address for a bounded
// duration. Implementations must be safe for the 5s command timeout
// spec.md §6 gives each ban/unban call.
type Controller interface {
	Ban(ctx context.Context, ip string, d time.Duration) error
	Unban(ctx context.Context, ip string) error
}

const CommandTimeout = 5 * time.Second

// NullController is used when no firewall integration is configured;
// bans are logged by the caller but never actually enforced.
type NullController struct{}

func (NullController) Ban(ctx context.Context, ip string, d time.Duration) error { return nil }
func (NullController) Unban(ctx context.Context, ip string) error                { return nil }

// New builds the Controller named by kind ("firewalld", "nftables", or
// "" for none).
func New(kind string, nftSet string) (Controller, error) {
	switch kind {
	case "", "none":
		return NullController{}, nil
	case "firewalld":
		return NewFirewalldController()
	case "nftables":
		if nftSet == "" {
			nftSet = "hoover_banned"
		}
		return NewNftablesController(nftSet), nil
	default:
		return nil, fmt.Errorf("unknown firewall controller kind %q", kind)
	}
}
