package engine

import "time"

// startWatchdog launches the liveness monitor: a background goroutine that
// checks venue connectivity on an interval and triggers reconnects. It
// reads connection state and calls Start on the venue only — it never
// touches the ledger or order maps, so it cannot race callback delivery.
func (e *Engine) startWatchdog() {
	if e.cfg.WatchdogInterval <= 0 {
		return
	}
	e.stopCh = make(chan struct{})
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.cfg.WatchdogInterval)
		defer ticker.Stop()
		for {
			select {
			case <-e.stopCh:
				return
			case <-ticker.C:
				if e.venue.Connected() {
					continue
				}
				e.log.Warn("venue disconnected, reconnecting")
				if err := e.venue.Start(); err != nil {
					e.log.Error("venue reconnect failed", "err", err)
				}
			}
		}
	}()
	e.log.Info("watchdog started", "interval", e.cfg.WatchdogInterval)
}

func (e *Engine) stopWatchdog() {
	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
	e.stopCh = nil
	e.log.Info("watchdog stopped")
}
