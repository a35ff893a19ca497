// Command veco-dr drives the disaster recovery workflows on a pair of
// orchestrator nodes: establish an active/standby replication pair, break or
// revert it, and promote a standby after verifying edge reattachment.
//
// One process runs one action. Exit codes let calling automation branch on
// outcome class instead of parsing output:
//
//	0 success
//	1 authentication failure, break failure, DR not configured, or a
//	  promotion that applied but failed the edge health check
//	2 establish requested without a secondary orchestrator
//	3 establish convergence timeout or DR configuration failure
//	4 revert failure
//	5 promotion rejected or unconfirmed
//	6 invalid IP address argument
package main

import (
	"errors"
	"flag"
	"os"

	"github.com/joho/godotenv"
	"k8s.io/klog/v2"

	"github.com/edgeops/veco-dr-orchestrator/pkg/auth"
	"github.com/edgeops/veco-dr-orchestrator/pkg/config"
	"github.com/edgeops/veco-dr-orchestrator/pkg/dr"
	"github.com/edgeops/veco-dr-orchestrator/pkg/veco"
)

const (
	exitOK              = 0
	exitFailed          = 1
	exitMissingArgument = 2
	exitEstablishFailed = 3
	exitRevertFailed    = 4
	exitPromoteFailed   = 5
	exitInvalidAddress  = 6
)

func main() {
	// .env is optional; explicit flags always win over environment values.
	_ = godotenv.Load()

	cfg := &config.Config{}
	flag.StringVar(&cfg.Orchestrator, "o", "", "primary orchestrator name")
	flag.StringVar(&cfg.Orchestrator, "orchestrator", "", "primary orchestrator name")
	flag.StringVar(&cfg.Domain, "d", "", "domain of the primary orchestrator")
	flag.StringVar(&cfg.Domain, "domain", "", "domain of the primary orchestrator")
	flag.StringVar(&cfg.SecondaryOrchestrator, "s", "", "secondary orchestrator name")
	flag.StringVar(&cfg.SecondaryOrchestrator, "secondary-orchestrator", "", "secondary orchestrator name")
	flag.StringVar(&cfg.SecondaryDomain, "secondary-domain", "", "domain of the secondary orchestrator (defaults to primary domain)")
	flag.StringVar(&cfg.Username, "u", os.Getenv("VCO_USERNAME"), "service account username (env VCO_USERNAME)")
	flag.StringVar(&cfg.Username, "username", os.Getenv("VCO_USERNAME"), "service account username (env VCO_USERNAME)")
	flag.StringVar(&cfg.Password, "p", os.Getenv("VCO_PASSWORD"), "service account password (env VCO_PASSWORD)")
	flag.StringVar(&cfg.Password, "password", os.Getenv("VCO_PASSWORD"), "service account password (env VCO_PASSWORD)")
	flag.StringVar(&cfg.Action, "a", "", "action: establish, break, revert or promote")
	flag.StringVar(&cfg.Action, "action", "", "action: establish, break, revert or promote")
	flag.StringVar(&cfg.ReplicationUser, "replication-user", "", "operator user for DR database operations")
	flag.StringVar(&cfg.ReplicationPassword, "replication-password", os.Getenv("VCO_REPLICATION_PASSWORD"),
		"password for the DR database operator (env VCO_REPLICATION_PASSWORD)")
	flag.BoolVar(&cfg.UseFQDN, "fqdn", false, "use FQDN replication addresses instead of explicit IPs")
	flag.StringVar(&cfg.PrimaryIP, "primary-ip", "", "IP address of the primary orchestrator")
	flag.StringVar(&cfg.SecondaryIP, "secondary-ip", "", "IP address of the secondary orchestrator")
	flag.BoolVar(&cfg.Force, "force", false, "proceed with establish even if the secondary has attached clients")
	flag.BoolVar(&cfg.InsecureTLS, "insecure", false, "skip portal TLS certificate verification")
	klog.InitFlags(nil)
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		klog.ErrorS(err, "Invalid arguments")
		os.Exit(exitMissingArgument)
	}

	creds := auth.Credentials{Username: cfg.Username, Password: cfg.Password}
	dial := func(address string) (dr.Node, error) {
		if cfg.InsecureTLS {
			return veco.NewInsecure(address), nil
		}
		return veco.New(address), nil
	}

	runner := dr.New(dr.Config{Credentials: creds, Dial: dial})

	primary, err := dial(cfg.PrimaryFQDN())
	if err != nil {
		klog.ErrorS(err, "Failed to build primary client")
		os.Exit(exitFailed)
	}

	klog.InfoS("Starting action", "action", cfg.Action, "node", primary.FQDN(), "username", cfg.Username)
	if err := runner.Authenticate(primary); err != nil {
		klog.ErrorS(err, "Unable to log in", "node", primary.FQDN())
		os.Exit(exitFailed)
	}

	switch cfg.Action {
	case config.ActionEstablish:
		os.Exit(establishHandler(runner, primary, cfg, dial))
	case config.ActionBreak:
		os.Exit(breakHandler(runner, primary, cfg, dial))
	case config.ActionRevert:
		os.Exit(revertHandler(runner, primary))
	case config.ActionPromote:
		os.Exit(promoteHandler(runner, primary))
	}
}

func establishHandler(runner *dr.Runner, primary dr.Node, cfg *config.Config, dial dr.Dialer) int {
	if cfg.SecondaryOrchestrator == "" {
		klog.ErrorS(nil, "Establish requires a secondary orchestrator")
		return exitMissingArgument
	}
	if err := cfg.ValidateAddresses(); err != nil {
		klog.ErrorS(err, "Invalid replication address")
		return exitInvalidAddress
	}

	secondary, err := dial(cfg.SecondaryFQDN())
	if err != nil {
		klog.ErrorS(err, "Failed to build secondary client")
		return exitFailed
	}
	if err := runner.Authenticate(secondary); err != nil {
		klog.ErrorS(err, "Unable to log in", "node", secondary.FQDN())
		return exitFailed
	}

	replication := auth.Credentials{Username: cfg.ReplicationUser, Password: cfg.ReplicationPassword}
	err = runner.Establish(primary, secondary, replication, cfg.Force)
	if err == nil {
		klog.InfoS("DR established", "primary", primary.FQDN(), "secondary", secondary.FQDN())
		return exitOK
	}

	var timeoutErr *dr.EstablishTimeoutError
	var drErr *dr.DrConfigurationError
	if errors.As(err, &timeoutErr) || errors.As(err, &drErr) {
		// Compensate explicitly: both nodes go back to standalone. Partial
		// remote state is never left for the next run to trip over.
		klog.ErrorS(err, "Replication setup failed, reverting both nodes")
		revertBestEffort(runner, primary)
		revertBestEffort(runner, secondary)
		return exitEstablishFailed
	}

	klog.ErrorS(err, "DR preparation failed")
	return exitFailed
}

func revertBestEffort(runner *dr.Runner, node dr.Node) {
	if err := runner.Revert(node); err != nil {
		klog.ErrorS(err, "Revert failed", "node", node.FQDN())
	}
}

func breakHandler(runner *dr.Runner, primary dr.Node, cfg *config.Config, dial dr.Dialer) int {
	var secondary dr.Node
	if cfg.SecondaryOrchestrator != "" {
		var err error
		secondary, err = dial(cfg.SecondaryFQDN())
		if err != nil {
			klog.ErrorS(err, "Failed to build secondary client")
			return exitFailed
		}
		klog.InfoS("Breaking DR, both nodes will become standalone",
			"primary", primary.FQDN(), "secondary", secondary.FQDN())
		if err := runner.Authenticate(secondary); err != nil {
			klog.ErrorS(err, "Unable to log in", "node", secondary.FQDN())
			return exitFailed
		}
	}

	results, err := runner.Break(primary, secondary)
	for name, ok := range results {
		klog.InfoS("Break result", "node", name, "standalone", ok)
	}
	if err != nil {
		klog.ErrorS(err, "Failed to break DR")
		return exitFailed
	}
	return exitOK
}

func revertHandler(runner *dr.Runner, primary dr.Node) int {
	if err := runner.Revert(primary); err != nil {
		klog.ErrorS(err, "Unable to complete standalone call", "node", primary.FQDN())
		return exitRevertFailed
	}
	klog.InfoS("Revert completed", "node", primary.FQDN())
	return exitOK
}

func promoteHandler(runner *dr.Runner, primary dr.Node) int {
	err := runner.Promote(primary)
	if err == nil {
		klog.InfoS("Promotion completed and edge counts are passing, check edges again", "node", primary.FQDN())
		return exitOK
	}

	var notConfigured *dr.NotConfiguredError
	var healthErr *dr.HealthCheckError
	var authErr *auth.TimeoutError
	switch {
	case errors.As(err, &notConfigured):
		klog.ErrorS(err, "DR is not correctly configured", "node", primary.FQDN())
		return exitFailed
	case errors.As(err, &healthErr):
		// The role change applied; only the health verification failed.
		klog.ErrorS(err, "Edge counts differ from before the cutover, review manually", "node", primary.FQDN())
		return exitFailed
	case errors.As(err, &authErr):
		klog.ErrorS(err, "Cannot log in to the current active peer", "node", primary.FQDN())
		return exitFailed
	default:
		klog.ErrorS(err, "Unable to complete promotion", "node", primary.FQDN())
		return exitPromoteFailed
	}
}
