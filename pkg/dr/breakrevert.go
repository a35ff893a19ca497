package dr

import (
	"fmt"
	"sort"

	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// Break demotes the primary (and the secondary, when non-nil) to STANDALONE
// and waits for each node to confirm independently. The returned map reports
// per-node confirmation; the error is a BreakIncompleteError unless every
// requested node confirmed.
func (r *Runner) Break(primary, secondary Node) (map[string]bool, error) {
	results := map[string]bool{primary.Name(): false}

	breakOne := func(node Node) {
		klog.InfoS("Breaking replication", "node", node.FQDN(), "target", veco.RoleStandalone)
		if err := r.configureRole(node, veco.RoleStandalone); err != nil {
			klog.ErrorS(err, "Failed to request standalone", "node", node.FQDN())
			return
		}
		if err := r.WaitForRole(node, veco.RoleStandalone, r.roleChangeWait); err != nil {
			klog.ErrorS(err, "Node did not confirm standalone", "node", node.FQDN())
			return
		}
		results[node.Name()] = true
	}

	breakOne(primary)
	if secondary != nil {
		results[secondary.Name()] = false
		breakOne(secondary)
	}

	var failed []string
	for name, ok := range results {
		if ok {
			klog.InfoS("Node entered standalone", "node", name)
		} else {
			klog.ErrorS(nil, "Node failed to enter standalone", "node", name)
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return results, &BreakIncompleteError{Failed: failed}
	}
	return results, nil
}

// Revert is the single-node variant of Break, allowed from ACTIVE, STANDBY or
// UNCONFIGURED. Reverting an already-standalone node is denied by the state
// machine; callers must pre-check rather than assume it is safe.
func (r *Runner) Revert(node Node) error {
	klog.InfoS("Reverting to standalone", "node", node.FQDN())

	role, err := node.GetRole()
	if err != nil {
		return fmt.Errorf("read role of %s: %w", node.Name(), err)
	}
	switch role {
	case veco.RoleActive, veco.RoleStandby, veco.RoleUnconfigured:
	default:
		return &IllegalTransitionError{Node: node.Name(), Current: role, Target: veco.RoleStandalone}
	}

	if err := r.configureRole(node, veco.RoleStandalone); err != nil {
		return err
	}
	return r.WaitForRole(node, veco.RoleStandalone, r.roleChangeWait)
}
