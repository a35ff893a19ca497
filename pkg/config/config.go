// Package config holds the per-invocation configuration for the DR CLI.
package config

import (
	"fmt"
	"net"
)

// Actions the CLI can run. One process performs exactly one action.
const (
	ActionEstablish = "establish"
	ActionBreak     = "break"
	ActionRevert    = "revert"
	ActionPromote   = "promote"
)

// Config is the parsed invocation configuration.
type Config struct {
	// Action is one of establish, break, revert, promote.
	Action string

	// Primary node identity.
	Orchestrator string
	Domain       string

	// Secondary node identity, required for establish and optional for break.
	SecondaryOrchestrator string
	SecondaryDomain       string

	// Operator credentials.
	Username string
	Password string

	// Replication database user provisioned during establish.
	ReplicationUser     string
	ReplicationPassword string

	// UseFQDN selects FQDN replication addresses; otherwise the explicit IP
	// arguments are used and must parse.
	UseFQDN     bool
	PrimaryIP   string
	SecondaryIP string

	// Force proceeds with standby assignment even when the secondary has
	// attached clients.
	Force bool

	// InsecureTLS skips portal certificate verification (lab deployments).
	InsecureTLS bool
}

// PrimaryFQDN returns the primary node's fully qualified name.
func (c *Config) PrimaryFQDN() string {
	return c.Orchestrator + "." + c.Domain
}

// SecondaryFQDN returns the secondary node's fully qualified name, falling
// back to the primary domain when no secondary domain was given.
func (c *Config) SecondaryFQDN() string {
	domain := c.SecondaryDomain
	if domain == "" {
		domain = c.Domain
	}
	return c.SecondaryOrchestrator + "." + domain
}

// Validate checks the fields every action needs.
func (c *Config) Validate() error {
	if c.Orchestrator == "" {
		return fmt.Errorf("primary orchestrator name is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("primary domain is required")
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("operator credentials are required")
	}
	switch c.Action {
	case ActionEstablish, ActionBreak, ActionRevert, ActionPromote:
		return nil
	default:
		return fmt.Errorf("invalid action %q", c.Action)
	}
}

// ValidateAddresses checks the replication IP arguments used when FQDN
// addressing is not selected.
func (c *Config) ValidateAddresses() error {
	if c.UseFQDN {
		return nil
	}
	if net.ParseIP(c.PrimaryIP) == nil {
		return fmt.Errorf("invalid primary IP %q", c.PrimaryIP)
	}
	if net.ParseIP(c.SecondaryIP) == nil {
		return fmt.Errorf("invalid secondary IP %q", c.SecondaryIP)
	}
	return nil
}
