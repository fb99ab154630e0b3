package firewall

import (
	"context"
	"fmt"
	"os/exec"
	"time"
)

// NftablesController bans peers by adding a timed element to a named
// set (e.g. "hoover_banned" in an existing drop rule's match set),
// driven through the nft CLI. No Go nftables binding surfaced anywhere
// in the pack, so this is a deliberate, documented os/exec usage
// (see DESIGN.md) rather than a hand-rolled netlink client.
type NftablesController struct {
	set string
}

func NewNftablesController(set string) *NftablesController {
	return &NftablesController{set: set}
}

func (n *NftablesController) Ban(ctx context.Context, ip string, d time.Duration) error {
	elem := fmt.Sprintf("{ %s timeout %ds }", ip, int(d.Seconds()))
	cmd := exec.CommandContext(ctx, "nft", "add", "element", "inet", "filter", n.set, elem)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("nft add element: %w: %s", err, out)
	}
	return nil
}

func (n *NftablesController) Unban(ctx context.Context, ip string) error {
	cmd := exec.CommandContext(ctx, "nft", "delete", "element", "inet", "filter", n.set, "{ "+ip+" }")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("nft delete element: %w: %s", err, out)
	}
	return nil
}
