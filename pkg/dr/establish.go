package dr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/auth"
	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

// DR tuning properties applied to the primary before standby assignment. The
// secondary carries no extra properties.
var primaryProperties = []veco.SystemProperty{
	{
		Name:         "vco.disasterRecovery.standbyRestartStateSecs",
		Value:        "300",
		DefaultValue: "60",
		DataType:     "NUMBER",
		Description:  "period for which active will not flag error trying to contact standby in state involving restart",
	},
	{
		Name:         "vco.disasterRecovery.transientErrorToleranceSecs",
		Value:        "900",
		DefaultValue: "900",
		DataType:     "NUMBER",
		Description:  "seconds during which sync errors can be ignored on the standby/active",
	},
	{
		Name:         "vco.disasterRecovery.allowedStandbySecsBehindActive",
		Value:        "300",
		DefaultValue: "300",
		DataType:     "NUMBER",
		Description:  "if standby further behind than this value, error reported",
	},
}

var secondaryProperties []veco.SystemProperty

// Establish pairs primary and secondary into an active/standby topology:
// replication credentials and tuning properties on both nodes, STANDBY
// assignment on the secondary, convergence wait, then the DR-link
// configuration call on the primary.
//
// Establish performs no rollback. On EstablishTimeoutError or
// DrConfigurationError the caller is expected to Revert both nodes; partial
// remote state must be compensated explicitly, not guessed at.
func (r *Runner) Establish(primary, secondary Node, replication auth.Credentials, force bool) error {
	secondaryRole, err := secondary.GetRole()
	if err != nil {
		return fmt.Errorf("read role of %s: %w", secondary.Name(), err)
	}
	klog.InfoS("Establishing DR pair", "primary", primary.FQDN(), "secondary", secondary.FQDN(), "secondaryRole", secondaryRole)

	if secondaryRole == veco.RoleStandby {
		klog.InfoS("Secondary already standby, nothing to do", "node", secondary.Name())
		return nil
	}
	if secondaryRole != veco.RoleStandalone && secondaryRole != veco.RoleUnconfigured {
		return &IllegalTransitionError{Node: secondary.Name(), Current: secondaryRole, Target: veco.RoleStandby}
	}

	if err := r.recreateReplicationUser(primary, replication); err != nil {
		return err
	}
	if err := r.recreateReplicationUser(secondary, replication); err != nil {
		return err
	}

	if err := r.upsertProperties(primary, primaryProperties); err != nil {
		return err
	}
	if err := r.upsertProperties(secondary, secondaryProperties); err != nil {
		return err
	}

	if !force {
		count, err := secondary.GetClientCount()
		if err != nil {
			return fmt.Errorf("read client count of %s: %w", secondary.Name(), err)
		}
		if count > 0 {
			return &ClientsPresentError{Node: secondary.Name(), Count: count}
		}
	}

	if err := r.configureRole(secondary, veco.RoleStandby); err != nil {
		return err
	}

	if err := r.WaitForRole(secondary, veco.RoleStandby, r.establishWait); err != nil {
		var timeout *RoleTimeoutError
		if errors.As(err, &timeout) {
			return &EstablishTimeoutError{Node: secondary.Name(), Err: err}
		}
		return err
	}

	status, err := secondary.GetReplicationStatus()
	if err != nil {
		return fmt.Errorf("read replication status of %s: %w", secondary.Name(), err)
	}
	if _, err := uuid.Parse(status.VcoUUID); err != nil {
		return &DrConfigurationError{Node: primary.Name(),
			Err: fmt.Errorf("secondary reported unusable uuid %q: %w", status.VcoUUID, err)}
	}

	klog.InfoS("Configuring DR link", "primary", primary.FQDN(),
		"standbyAddress", status.VcoIP, "standbyUuid", status.VcoUUID)
	cfg := veco.DrLinkConfig{
		StandbyAddress:            status.VcoIP,
		StandbyReplicationAddress: status.VcoReplIP,
		StandbyUUID:               status.VcoUUID,
		ReplicationUser:           replication.Username,
		ReplicationPassword:       replication.Password,
	}
	if err := primary.ConfigureDrLink(cfg); err != nil {
		return &DrConfigurationError{Node: primary.Name(), Err: err}
	}

	klog.InfoS("DR pair established", "primary", primary.FQDN(), "secondary", secondary.FQDN())
	return nil
}

// recreateReplicationUser guarantees a known credential state: if the
// replication user exists it is deleted and created afresh.
func (r *Runner) recreateReplicationUser(node Node, replication auth.Credentials) error {
	_, err := node.GetUserID(replication.Username)
	switch {
	case err == nil:
		klog.InfoS("Recreating replication user", "node", node.Name(), "username", replication.Username)
		if err := node.DeleteOperatorUser(replication.Username); err != nil {
			return fmt.Errorf("delete replication user on %s: %w", node.Name(), err)
		}
	default:
		var noSuchUser *veco.NoSuchUserError
		if !errors.As(err, &noSuchUser) {
			return fmt.Errorf("look up replication user on %s: %w", node.Name(), err)
		}
		klog.InfoS("Creating replication user", "node", node.Name(), "username", replication.Username)
	}

	if err := node.CreateOperatorSuperuser(replication.Username, replication.Password, "DR", "Replication"); err != nil {
		return fmt.Errorf("create replication user on %s: %w", node.Name(), err)
	}
	return nil
}

// upsertProperties writes each property, creating it when the node has never
// seen the name and updating it only when the value differs.
func (r *Runner) upsertProperties(node Node, props []veco.SystemProperty) error {
	klog.InfoS("Configuring system properties", "node", node.Name(), "count", len(props))
	for _, prop := range props {
		existing, err := node.GetSystemProperty(prop.Name)
		if err != nil {
			var notFound *veco.PropertyNotFoundError
			if errors.As(err, &notFound) {
				if err := node.CreateSystemProperty(prop); err != nil {
					return fmt.Errorf("create property %s on %s: %w", prop.Name, node.Name(), err)
				}
				continue
			}
			return fmt.Errorf("read property %s on %s: %w", prop.Name, node.Name(), err)
		}

		if existing.Value == prop.Value {
			continue
		}
		existing.Value = prop.Value
		if err := node.UpdateSystemProperty(*existing); err != nil {
			return fmt.Errorf("update property %s on %s: %w", prop.Name, node.Name(), err)
		}
	}
	return nil
}
