// Package systemd reports service state to systemd over sd_notify. Every call
// is a no-op when the process is not started by systemd (NOTIFY_SOCKET unset).
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "channelposter/pkg/logx"
)

type Notifier struct {
	log logx.Logger
	// notify is daemon.SdNotify; tests replace it.
	notify func(unsetEnv bool, state string) (bool, error)
	// watchdogInterval is daemon.SdWatchdogEnabled.
	watchdogInterval func(unsetEnv bool) (time.Duration, error)
}

func NewNotifier(log logx.Logger) *Notifier {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{log: log, notify: daemon.SdNotify, watchdogInterval: daemon.SdWatchdogEnabled}
}

func (n *Notifier) Ready()    { n.send(daemon.SdNotifyReady) }
func (n *Notifier) Stopping() { n.send(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by `systemctl status`.
func (n *Notifier) Status(s string) { n.send("STATUS=" + s) }

func (n *Notifier) send(state string) bool {
	sent, err := n.notify(false, state)
	if err != nil {
		n.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return false
	}
	if sent {
		n.log.Debug("sd_notify sent", logx.String("state", state))
	}
	return sent
}

// Watchdog pings systemd at half the configured WatchdogSec until ctx is
// done. It returns at once when the unit has no watchdog.
func (n *Notifier) Watchdog(ctx context.Context) error {
	every, err := n.watchdogInterval(false)
	if err != nil {
		return err
	}
	if every <= 0 {
		return nil
	}
	t := time.NewTicker(every / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}
