package main

// app.go wires every core component into one process-wide App, the
// equivalent of the teacher's package-level core state each cmd/cli
// controller reaches into — except built explicitly here from
// pkg/config.Config instead of a package-level global ledger.

import (
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	core "duxnet/core"
	"duxnet/internal"
	"duxnet/pkg/config"
)

// App holds every wired component a CLI command needs.
type App struct {
	Config *config.Config

	Registry     *core.Registry
	Reputation   *core.ReputationEngine
	Auth         *core.Authenticator
	Ledger       *core.WalletLedger
	Fund         *core.CommunityFund
	FundManager  *internal.CommunityFundManager
	Verifier     *core.Verifier
	Escrows      *core.EscrowEngine
	Disputes     *core.DisputeResolver
	Governance   *core.Governance
	Scheduler    *core.Scheduler
	Sandbox      *core.Sandbox
	Orchestrator *core.Orchestrator
	Metrics      *core.Metrics
}

// NewApp builds the full dependency graph from cfg.
func NewApp(cfg *config.Config) *App {
	clock := core.Clock(nil)

	// A fresh in-memory store is a legitimate KVStore for a single-process
	// deployment; it gives the registry its persistence port (spec §6)
	// without requiring an external database for this entrypoint.
	registry, err := core.NewRegistryWithStore(clock, core.NewInMemoryStore())
	if err != nil {
		registry = core.NewRegistry(clock)
	}
	reputation := core.NewReputationEngine(registry)
	auth := core.NewAuthenticator(clock)
	ledger := core.NewWalletLedger(10, time.Hour, clock)
	fund := core.NewCommunityFund(core.CommunityFundConfig{
		AirdropThreshold: core.Amount(cfg.Airdrop.Threshold),
		MinAirdropAmount: core.Amount(cfg.Airdrop.MinAmount),
		AirdropInterval:  time.Duration(cfg.Airdrop.IntervalHrs) * time.Hour,
		MaxAirdropNodes:  cfg.Airdrop.MaxNodes,
		MinVoteThreshold: cfg.Governance.MinVoteThreshold,
	}, ledger, registry, clock)

	zapLogger, err := zap.NewProduction()
	if err != nil {
		zapLogger = zap.NewNop()
	}
	registerChainAdapters(ledger, cfg, zapLogger)

	verifier := core.NewVerifier()
	escrows := core.NewEscrowEngine(ledger, fund, auth, verifier, clock)
	disputes := core.NewDisputeResolver(escrows, ledger, clock)
	governance := core.NewGovernance(fund, escrows, clock)
	scheduler := core.NewScheduler(cfg.Scheduler.MaxRetries, cfg.Scheduler.MaxTasksPerNode, time.Now().UnixNano())

	runtime := core.NewNativeRuntime(cfg.Sandbox.Interpreter, zapLogger)
	sandbox := core.NewSandbox(runtime, zapLogger, clock)

	orchestrator := core.NewOrchestrator(scheduler, sandbox, escrows, reputation, auth, registry, clock)

	metrics := core.NewMetrics()
	metrics.Subscribe()

	return &App{
		Config:       cfg,
		Registry:     registry,
		Reputation:   reputation,
		Auth:         auth,
		Ledger:       ledger,
		Fund:         fund,
		FundManager:  internal.NewCommunityFundManager(nil, fund),
		Verifier:     verifier,
		Escrows:      escrows,
		Disputes:     disputes,
		Governance:   governance,
		Scheduler:    scheduler,
		Sandbox:      sandbox,
		Orchestrator: orchestrator,
		Metrics:      metrics,
	}
}

// app is the process-wide instance built once in main's PersistentPreRunE,
// mirroring the teacher's package-level core state that cmd/cli's
// controllers call into directly.
var app *App

// registerChainAdapters constructs a ChainAdapter for every currency daemon
// cfg names an endpoint for and registers it against ledger, so wallet
// transfers and fund payouts in that currency actually move coin rather than
// only updating the in-process balance. A currency whose endpoint is left
// unconfigured stays bookkeeping-only (spec §4.1, §6 "Configuration"). The
// endpoints are the config keys rpc.bitcoin.endpoint and rpc.ethereum.endpoint.
func registerChainAdapters(ledger *core.WalletLedger, cfg *config.Config, logger *zap.Logger) {
	if cfg.RPC.Bitcoin.Endpoint != "" {
		btc := core.NewBitcoinAdapter(core.BTC, cfg.RPC.Bitcoin.Endpoint, cfg.RPC.Bitcoin.User, cfg.RPC.Bitcoin.Pass, nil, logger)
		ledger.RegisterAdapter(core.BTC, btc)
	}
	if cfg.RPC.Ethereum.Endpoint != "" {
		eth := core.NewEthereumAdapter(core.ETH, cfg.RPC.Ethereum.Endpoint, cfg.RPC.Ethereum.Address, nil, logger)
		ledger.RegisterAdapter(core.ETH, eth)
	}
}

func initApp() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Warn("config load failed, falling back to defaults")
		cfg = &config.Config{}
	}
	app = NewApp(cfg)
	return nil
}
