package dr

import (
	"fmt"

	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// Health policy thresholds for post-promotion edge reattachment.
const (
	recoveredRatio = 0.95
	relaxedRatio   = 0.90
	maxStrikes     = 3
)

// monitorEdgeCounts polls the promoted node's edge counts against the
// baseline taken from the former active before the cutover.
//
// A sample passes immediately once connected/0.95 >= baseline. A sample that
// is not strictly above the previous one (the baseline seeds the comparison)
// is a strike; an improving sample resets the count and three consecutive
// strikes fail the check before the window elapses. If the window expires
// without reaching 95%, a relaxed 90% floor applies to connected edges;
// degraded and down shortfalls at the same floor are warned about but do not
// fail, since edges that were unhealthy before the failover are not
// guaranteed to reconnect.
func (r *Runner) monitorEdgeCounts(node Node, baseline veco.EdgeCountSnapshot) error {
	deadline := r.clock.Now().Add(r.monitorWindow)
	strikes := 0
	prevConnected := baseline.Connected
	var last veco.EdgeCountSnapshot

	for r.clock.Now().Before(deadline) {
		snap, err := node.GetEdgeCounts()
		if err != nil {
			if veco.IsTransient(err) {
				klog.InfoS("Edge count read failed, retrying", "node", node.FQDN(), "err", err)
				r.clock.Sleep(monitorPollInterval)
				continue
			}
			return fmt.Errorf("read edge counts from %s: %w", node.Name(), err)
		}
		last = snap

		if float64(snap.Connected)/recoveredRatio >= float64(baseline.Connected) {
			klog.InfoS("Edge count within acceptable range",
				"node", node.FQDN(), "connected", snap.Connected, "baseline", baseline.Connected)
			return nil
		}

		if snap.Connected > prevConnected {
			strikes = 0
		} else {
			strikes++
			klog.InfoS("Edge counts did not improve since last check",
				"node", node.FQDN(), "connected", snap.Connected, "strikes", strikes, "maxStrikes", maxStrikes)
			if strikes >= maxStrikes {
				return &HealthCheckError{
					Node: node.Name(), Baseline: baseline, Last: snap,
					Reason: fmt.Sprintf("connected edge count failed to improve %d consecutive times", maxStrikes),
				}
			}
		}
		prevConnected = snap.Connected

		r.clock.Sleep(monitorPollInterval)
	}

	if float64(last.Connected)/relaxedRatio < float64(baseline.Connected) {
		return &HealthCheckError{
			Node: node.Name(), Baseline: baseline, Last: last,
			Reason: fmt.Sprintf("connected edges below %.0f%% of baseline after monitor window", relaxedRatio*100),
		}
	}
	if float64(last.Degraded)/relaxedRatio < float64(baseline.Degraded) ||
		float64(last.Down)/relaxedRatio < float64(baseline.Down) {
		klog.Warningf("Some previously degraded or down edges are missing from %s (degraded %d was %d, down %d was %d)",
			node.FQDN(), last.Degraded, baseline.Degraded, last.Down, baseline.Down)
	}
	return nil
}
