package firewall

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	firewalldDest      = "org.fedoraproject.FirewallD1"
	firewalldPath      = "/org/fedoraproject/FirewallD1"
	firewalldZoneIface = "org.fedoraproject.FirewallD1.zone"
)

// FirewalldController bans peers by adding a timed rich rule to
// firewalld's runtime configuration over the system D-Bus, so the ban
// self-expires without a separate unban call on the happy path.
type FirewalldController struct {
	conn *dbus.Conn
	zone string
}

func NewFirewalldController() (*FirewalldController, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &FirewalldController{conn: conn, zone: ""}, nil
}

func (f *FirewalldController) Ban(ctx context.Context, ip string, d time.Duration) error {
	rule := fmt.Sprintf(`rule family="ipv4" source address="%s" drop`, ip)
	obj := f.conn.Object(firewalldDest, dbus.ObjectPath(firewalldPath))
	call := obj.CallWithContext(ctx, firewalldZoneIface+".addRichRule", 0, f.zone, rule, int(d.Seconds()))
	if call.Err != nil {
		return fmt.Errorf("firewalld addRichRule: %w", call.Err)
	}
	return nil
}

func (f *FirewalldController) Unban(ctx context.Context, ip string) error {
	rule := fmt.Sprintf(`rule family="ipv4" source address="%s" drop`, ip)
	obj := f.conn.Object(firewalldDest, dbus.ObjectPath(firewalldPath))
	call := obj.CallWithContext(ctx, firewalldZoneIface+".removeRichRule", 0, f.zone, rule)
	if call.Err != nil {
		return fmt.Errorf("firewalld removeRichRule: %w", call.Err)
	}
	return nil
}
