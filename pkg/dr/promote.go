package dr

import (
	"errors"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// Promote fails over the pair: the standby node is promoted to serve
// independently and the former active is zombified by the remote service.
// Before issuing anything irreversible it captures a baseline edge snapshot
// from the current active peer; after the role change confirms, the promoted
// node's edge counts must recover against that baseline or the result is a
// HealthCheckError (role change applied, health unverified).
func (r *Runner) Promote(node Node) error {
	status, err := node.GetReplicationStatus()
	if err != nil {
		return fmt.Errorf("read replication status of %s: %w", node.Name(), err)
	}

	peerAddress := activePeerAddress(status)
	if peerAddress == "" {
		return &NotConfiguredError{Node: node.Name()}
	}

	peer, err := r.dial(peerAddress)
	if err != nil {
		return fmt.Errorf("dial active peer %s: %w", peerAddress, err)
	}
	if err := r.gate.EnsureAuthenticated(peer, r.creds); err != nil {
		return fmt.Errorf("authenticate to active peer %s: %w", peerAddress, err)
	}

	baseline, err := peer.GetEdgeCounts()
	if err != nil {
		return fmt.Errorf("read baseline edge counts from %s: %w", peerAddress, err)
	}
	klog.InfoS("Captured baseline edge counts", "peer", peerAddress,
		"connected", baseline.Connected, "down", baseline.Down, "degraded", baseline.Degraded)

	if err := r.promoteNode(node); err != nil {
		return err
	}

	klog.InfoS("Promotion confirmed, waiting for client reattachment", "node", node.FQDN(), "wait", r.stabilizeWait)
	r.clock.Sleep(r.stabilizeWait)

	return r.monitorEdgeCounts(node, baseline)
}

// activePeerAddress resolves the current active peer from a node's own
// replication status. Empty when the node has no running DR pairing.
func activePeerAddress(status *veco.ReplicationStatus) string {
	switch status.Role {
	case veco.RoleStandalone, veco.RoleZombie:
		return ""
	}
	if status.DrState != veco.DrStateStandbyRunning {
		return ""
	}
	switch status.Role {
	case veco.RoleActive:
		if len(status.StandbyList) > 0 {
			return status.StandbyList[0].StandbyAddress
		}
	case veco.RoleStandby:
		return status.ActiveAddress
	}
	return ""
}

// promoteNode issues the promote command and drives the node to its terminal
// confirmation. The node transitions through STANDALONE while completing
// promotion internally; the final confirmation poll is authoritative.
func (r *Runner) promoteNode(node Node) error {
	role, err := node.GetRole()
	if err != nil {
		return fmt.Errorf("read role of %s: %w", node.Name(), err)
	}

	switch role {
	case veco.RoleStandalone:
		klog.InfoS("Node is already standalone, promotion complete", "node", node.FQDN())
		return nil
	case veco.RoleStandby, veco.RoleStandbyCandidate:
	default:
		klog.ErrorS(nil, "Refusing promotion", "node", node.FQDN(), "role", role)
		return &PromotionNotAllowedError{Node: node.Name(), Role: role}
	}

	// The promote command frequently errors while taking effect server side;
	// a request error here is not proof the promotion failed. Confirmation
	// below decides.
	if err := node.PromoteToActive(true); err != nil {
		var reqErr *veco.RequestError
		if !errors.As(err, &reqErr) {
			return fmt.Errorf("promote %s: %w", node.Name(), err)
		}
		klog.InfoS("Promote command errored, continuing to confirmation", "node", node.FQDN(), "err", err)
	}

	for i := 0; i < promoteConfirmPolls; i++ {
		r.clock.Sleep(rolePollInterval)
		if err := r.WaitForRole(node, veco.RoleStandalone, r.roleChangeWait); err != nil {
			klog.V(2).InfoS("Confirmation poll did not observe standalone yet", "node", node.FQDN(), "attempt", i+1)
		}
	}
	return r.WaitForRole(node, veco.RoleStandalone, r.roleChangeWait)
}
