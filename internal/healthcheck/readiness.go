package healthcheck

import "time"

// updateSnapshot recomputes the cached Readiness from the most recent Run's
// results. CallbacksRegistered is left at zero here; internal/gateway.Router
// fills it in from its telemetry.Bus, which this package has no knowledge of.
func (c *Checker) updateSnapshot(results []Result) {
	snap := &Readiness{
		CheckedAt:        time.Now(),
		TotalDeployments: len(results),
	}
	for _, r := range results {
		if r.Healthy {
			snap.HealthyDeployments++
		} else {
			snap.UnhealthyDeployments = append(snap.UnhealthyDeployments, r.DeploymentID)
		}
	}
	snap.Ready = snap.HealthyDeployments > 0 || snap.TotalDeployments == 0

	c.readyMu.Lock()
	c.snapshot = snap
	c.readyMu.Unlock()
}

// Readiness returns the cached snapshot from the most recent Run. A snapshot
// older than readinessCacheTTL is reported not-ready rather than silently
// served as current, per spec.md's 2-minute readiness cache.
func (c *Checker) Readiness() *Readiness {
	c.readyMu.Lock()
	defer c.readyMu.Unlock()

	if c.snapshot == nil {
		return &Readiness{Ready: false, CheckedAt: time.Now()}
	}
	cp := *c.snapshot
	if time.Since(c.snapshot.CheckedAt) > readinessCacheTTL {
		cp.Ready = false
	}
	return &cp
}
