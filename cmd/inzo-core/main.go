// Command inzo-core wires the on-ledger insurance core and exercises it.
//
//	inzo-core demo      run a full policy-and-claim walkthrough
//	inzo-core profiles  list the configured product profiles
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/inzo-ai/core-contracts/pkg/authz"
	"github.com/inzo-ai/core-contracts/pkg/claims"
	"github.com/inzo-ai/core-contracts/pkg/config"
	"github.com/inzo-ai/core-contracts/pkg/custody"
	"github.com/inzo-ai/core-contracts/pkg/events"
	"github.com/inzo-ai/core-contracts/pkg/evidence"
	"github.com/inzo-ai/core-contracts/pkg/identity"
	"github.com/inzo-ai/core-contracts/pkg/kyc"
	"github.com/inzo-ai/core-contracts/pkg/observability"
	"github.com/inzo-ai/core-contracts/pkg/policy"
	"github.com/inzo-ai/core-contracts/pkg/registry"
	"github.com/inzo-ai/core-contracts/pkg/store"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run dispatches subcommands; split out for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		return runDemo(stdout, stderr)
	}
	switch args[1] {
	case "demo":
		return runDemo(stdout, stderr)
	case "profiles":
		return runProfiles(stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\nusage: inzo-core <demo|profiles>\n", args[1])
		return 2
	}
}

func runProfiles(stdout, stderr io.Writer) int {
	cfg := config.Load()
	profiles, err := config.LoadAllProfiles(cfg.ProfilesDir)
	if err != nil {
		fmt.Fprintf(stderr, "load profiles: %v\n", err)
		return 1
	}
	for code, p := range profiles {
		fmt.Fprintf(stdout, "%s\t%s\t%s\tmax coverage %d\n", code, p.Name, p.Currency, p.Underwriting.MaxCoverage)
	}
	return 0
}

func runDemo(stdout, stderr io.Writer) int {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(stderr, nil))
	ctx := context.Background()

	obs, err := observability.New(ctx, &observability.Config{
		Enabled:      cfg.OTLPEndpoint != "",
		OTLPEndpoint: cfg.OTLPEndpoint,
		ServiceName:  "inzo-core",
		SampleRate:   1.0,
		Insecure:     true,
		BatchTimeout: 5 * time.Second,
	})
	if err != nil {
		fmt.Fprintf(stderr, "observability: %v\n", err)
		return 1
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	const (
		admin    = identity.Address("addr-admin")
		manager  = identity.Address("addr-lifecycle")
		engine   = identity.Address("addr-engine")
		assessor = identity.Address("addr-ai")
		reviewer = identity.Address("addr-reviewer")
		holder   = identity.Address("addr-holder")
	)

	roster := authz.NewRoster(admin).
		Set(authz.RoleLifecycleManager, manager).
		Set(authz.RoleAssessmentEngine, engine).
		Set(authz.RoleAIAssessor, assessor).
		Set(authz.RoleHumanReviewer, reviewer)

	// Event sinks: the hash-chained log plus a JSON-lines audit trail, and
	// optionally a Redis stream for off-ledger consumers.
	log := events.NewLog()
	sinks := events.Multi{log}
	auditFile, err := os.OpenFile(cfg.AuditLogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(stderr, "open audit log: %v\n", err)
		return 1
	}
	defer auditFile.Close()
	sinks = append(sinks, events.NewAuditWriterTo(auditFile))
	if cfg.RedisAddr != "" {
		publisher := events.NewRedisPublisher(cfg.RedisAddr, "", 0, cfg.RedisStream)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}

	policyStore, claimStore, balanceStore, closeStores, err := openStores(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "open stores: %v\n", err)
		return 1
	}
	defer closeStores()

	reg := registry.NewInMemoryRegistry(roster)
	vault, err := custody.NewVault(roster, custody.NewMemoryAgent(), sinks).WithStore(ctx, balanceStore)
	if err != nil {
		fmt.Fprintf(stderr, "restore vault balance: %v\n", err)
		return 1
	}
	oracle := kyc.NewStaticOracle(roster)
	lifecycle := policy.NewManager(manager, roster, reg, vault, oracle, policyStore, sinks)
	assessment := claims.NewEngine(engine, roster, claimStore, lifecycle, vault, sinks).
		WithSubmissionLimiter(authz.NewSubmissionLimiter(cfg.IntakeRate, cfg.IntakeBurst))

	as := func(addr identity.Address) context.Context {
		return identity.WithAddress(ctx, addr)
	}

	if err := oracle.SetVerified(as(admin), holder, true); err != nil {
		fmt.Fprintf(stderr, "verify holder: %v\n", err)
		return 1
	}

	ctx, done := obs.TrackOperation(ctx, "demo.walkthrough")

	p, err := lifecycle.Issue(as(holder), policy.IssueRequest{
		Holder:   holder,
		DeviceID: "phone-imei-3582",
		Coverage: 100_000,
		Premium:  500,
		Interval: 30 * 24 * time.Hour,
		Duration: 365 * 24 * time.Hour,
		PaidIn:   500,
	})
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "issue policy: %v\n", err)
		return 1
	}
	logger.Info("policy issued", "policy_id", p.ID, "holder", string(p.Holder))

	if err := vault.Deposit(as(manager), holder, p.ID, 9_500, 9_500); err != nil {
		done(err)
		fmt.Fprintf(stderr, "fund pool: %v\n", err)
		return 1
	}

	blobs, err := evidence.NewFileStore(cfg.EvidenceDir)
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "open evidence store: %v\n", err)
		return 1
	}
	photoHash, err := blobs.Put(ctx, []byte("damage photo bytes"))
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "store evidence: %v\n", err)
		return 1
	}
	manifest, err := evidence.ParseManifest([]byte(fmt.Sprintf(`{
		"schema_version": "v1",
		"policy_id": %q,
		"incident": "screen cracked after drop",
		"items": [{"kind": "photo", "content_hash": %q, "media_type": "image/jpeg"}]
	}`, p.ID, photoHash)))
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "build evidence manifest: %v\n", err)
		return 1
	}
	if missing, err := manifest.Verify(ctx, blobs); err != nil || len(missing) > 0 {
		done(err)
		fmt.Fprintf(stderr, "evidence manifest incomplete: missing %v (%v)\n", missing, err)
		return 1
	}

	intakeID, err := lifecycle.FileClaim(as(holder), p.ID, "screen cracked after drop", []string{photoHash}, 4_000)
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "file claim: %v\n", err)
		return 1
	}
	logger.Info("claim filed", "intake_id", intakeID)

	c, err := assessment.Register(as(assessor), p.ID, holder, "sha256:incident", photoHash, 4_000, time.Now())
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "register claim: %v\n", err)
		return 1
	}
	obs.ClaimOpened(ctx)

	verdict, err := assessment.SubmitAssessment(as(assessor), c.ID, claims.Assessment{
		Payout:     4_000,
		Confidence: 95,
		ReportHash: "sha256:report",
	})
	if err != nil {
		done(err)
		fmt.Fprintf(stderr, "assess claim: %v\n", err)
		return 1
	}
	logger.Info("claim assessed", "claim_id", c.ID, "verdict", string(verdict))

	if err := assessment.AuthorizePayout(as(admin), c.ID); err != nil {
		done(err)
		fmt.Fprintf(stderr, "authorize payout: %v\n", err)
		return 1
	}
	obs.ClaimClosed(ctx)
	obs.RecordPayout(ctx, 4_000)
	done(nil)

	final, _ := assessment.Get(ctx, c.ID)
	logger.Info("claim settled", "claim_id", c.ID, "status", string(final.Status), "pool_balance", vault.Balance())

	if ok, reason := log.Verify(); !ok {
		fmt.Fprintf(stderr, "event chain broken: %s\n", reason)
		return 1
	}
	fmt.Fprintf(stdout, "demo complete: %d events, chain verified, pool balance %d\n", log.Len(), vault.Balance())
	return 0
}

// openStores picks the persistence backend from configuration.
func openStores(cfg *config.Config) (policy.Store, claims.Store, custody.BalanceStore, func(), error) {
	switch cfg.StoreBackend {
	case "sqlite":
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return s, s.Claims(), s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := store.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		return s, s.Claims(), s, func() { _ = s.Close() }, nil
	default:
		m := store.NewMemory()
		return m, m.Claims(), m, func() {}, nil
	}
}
