package sim

import (
	"os"
	"path/filepath"
	"testing"

	"crdtset/packages/topology"
)

func TestRunConverges(t *testing.T) {
	cfg := &Config{
		Replicas:     3,
		Ops:          50,
		Universe:     10,
		AddWeight:    2,
		RemoveWeight: 1,
		Topology:     topology.Mesh,
		Seed:         7,
		Settle:       "200ms",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	res, err := Run(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("expected convergence")
	}
	if res.Replicas != 3 {
		t.Error("wrong replica count:", res.Replicas)
	}
	if res.Elements > 0 && res.TagAmplification < 1 {
		t.Error("tag amplification below 1:", res.TagAmplification)
	}
}

func TestRunWithFaultyDelivery(t *testing.T) {
	cfg := &Config{
		Replicas:      4,
		ReplicaIDs:    []string{"n1", "n2", "n3", "n4"},
		Ops:           30,
		Universe:      8,
		AddWeight:     3,
		RemoveWeight:  1,
		Topology:      topology.Ring,
		Seed:          11,
		DuplicateProb: 0.5,
		MaxDelay:      "5ms",
		Settle:        "300ms",
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	res, err := Run(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Converged {
		t.Error("duplication and delay must not prevent convergence")
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	body := []byte(`replicas: 5
ops_per_replica: 20
universe: 12
topology: star
seed: 3
max_delay: 10ms
`)
	if err := os.WriteFile(path, body, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Replicas != 5 || cfg.Topology != topology.Star {
		t.Error("config not applied:", cfg)
	}
	if cfg.AddWeight != 2 {
		t.Error("defaults not preserved, add_weight =", cfg.AddWeight)
	}
	if cfg.Rounds != 5 {
		t.Error("rounds should default to replica count, got", cfg.Rounds)
	}
	if cfg.maxDelay.Milliseconds() != 10 {
		t.Error("max_delay not parsed:", cfg.maxDelay)
	}
	if cfg.settle < 2*cfg.maxDelay {
		t.Error("settle must cover delayed deliveries")
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	bad := []*Config{
		{Replicas: 1, Ops: 10, Universe: 5, AddWeight: 1},
		{Replicas: 3, Ops: 0, Universe: 5, AddWeight: 1},
		{Replicas: 3, Ops: 10, Universe: 0, AddWeight: 1},
		{Replicas: 3, Ops: 10, Universe: 5, AddWeight: 0},
		{Replicas: 3, Ops: 10, Universe: 5, AddWeight: 1, MaxDelay: "soon"},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Error("config", i, "should have been rejected")
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected an error for a missing config file")
	}
}
