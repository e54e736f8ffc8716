package modules

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lakesync.dev/lakesync/internal/config"
)

func TestNewSyncModule_RequiresInfraDependencies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		infra *Infrastructure
	}{
		{name: "nil infra", infra: nil},
		{name: "missing all core deps", infra: &Infrastructure{}},
		{name: "missing pools", infra: &Infrastructure{Config: &config.Config{}}},
		{name: "missing source pool", infra: &Infrastructure{Config: &config.Config{}, Pool: &pgxpool.Pool{}}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewSyncModule(tc.infra); err == nil {
				t.Fatalf("NewSyncModule(%s) expected error, got nil", tc.name)
			}
		})
	}
}

func TestNewSyncModule_RejectsMissingFreshServiceCredentials(t *testing.T) {
	t.Parallel()

	infra := &Infrastructure{
		Config:     &config.Config{FreshService: config.FreshServiceConfig{BaseURL: "https://acme.freshservice.com"}},
		Pool:       &pgxpool.Pool{},
		SourcePool: &pgxpool.Pool{},
	}
	if _, err := NewSyncModule(infra); err == nil || !strings.Contains(err.Error(), "freshservice") {
		t.Fatalf("NewSyncModule() error = %v, want freshservice error", err)
	}
}

func TestSyncModule_PeriodicJobs(t *testing.T) {
	t.Parallel()

	newModule := func(enabled bool) *SyncModule {
		return &SyncModule{infra: &Infrastructure{Config: &config.Config{
			Sync: config.SyncConfig{Enabled: enabled, Interval: time.Hour},
		}}}
	}

	if got := newModule(true).PeriodicJobs(); len(got) != 1 {
		t.Fatalf("PeriodicJobs() len = %d, want 1", len(got))
	}
	if got := newModule(false).PeriodicJobs(); len(got) != 0 {
		t.Fatalf("PeriodicJobs() len = %d, want 0 when sync is disabled", len(got))
	}
}

func TestNewServerDeps_NoTypedNilInterfaces(t *testing.T) {
	t.Parallel()

	deps := NewServerDeps(&config.Config{Sync: config.SyncConfig{HistoryLimit: 7}}, &Infrastructure{}, nil)
	if deps.Jobs != nil {
		t.Fatalf("Jobs = %#v, want nil without a river client", deps.Jobs)
	}
	if len(deps.Checks) != 0 {
		t.Fatalf("Checks = %v, want empty without pools", deps.Checks)
	}
	if deps.RunsLimit != 7 {
		t.Fatalf("RunsLimit = %d, want 7", deps.RunsLimit)
	}
}

func TestSyncModule_WiringContract(t *testing.T) {
	t.Parallel()

	src, err := os.ReadFile("sync.go")
	if err != nil {
		t.Fatalf("read sync.go: %v", err)
	}
	text := string(src)

	required := []string{
		"freshservice.NewClient(",
		"source.NewReader(",
		"reconcile.New(",
		"reconcile.WithWriteDelay(",
		"history.NewStore(",
		".WithRecorder(",
		"jobs.NewRequesterSyncWorker(",
		"jobs.PeriodicRequesterSync(",
	}
	for _, fragment := range required {
		if !strings.Contains(text, fragment) {
			t.Fatalf("sync module missing required wiring fragment %q", fragment)
		}
	}
}
