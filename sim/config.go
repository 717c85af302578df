package sim

import (
	"fmt"
	"log"
	"os"
	"time"

	"crdtset/packages/topology"

	"github.com/goccy/go-yaml"
)

// Config drives one simulation run: how many replicas, how much independent
// work each performs, and which sync graph the merge closure walks.
type Config struct {
	Replicas     int      `yaml:"replicas"`
	ReplicaIDs   []string `yaml:"replica_ids"` // optional; generated when empty
	Ops          int      `yaml:"ops_per_replica"`
	Universe     int      `yaml:"universe"` // distinct element identifiers ops draw from
	AddWeight    int      `yaml:"add_weight"`
	RemoveWeight int      `yaml:"remove_weight"`

	Topology topology.Kind `yaml:"topology"`
	Rounds   int           `yaml:"rounds"` // merge rounds over the topology; 0 = replica count

	Seed          int64   `yaml:"seed"` // 0 seeds from the wall clock
	DuplicateProb float64 `yaml:"duplicate_prob"`
	MaxDelay      string  `yaml:"max_delay"`
	Settle        string  `yaml:"settle"` // wait for in-flight deliveries after the op phase

	maxDelay time.Duration
	settle   time.Duration
}

// DefaultConfig matches the three-replica partial-sync scenario.
func DefaultConfig() *Config {
	return &Config{
		Replicas:     3,
		Ops:          100,
		Universe:     50,
		AddWeight:    2,
		RemoveWeight: 1,
		Topology:     topology.Mesh,
		Settle:       "1s",
	}
}

// Load reads a YAML config and validates it.
func Load(path string) (*Config, error) {
	c := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if len(c.ReplicaIDs) > 0 {
		c.Replicas = len(c.ReplicaIDs)
	}
	if c.Replicas < 2 {
		return fmt.Errorf("replicas must be at least 2, got %d", c.Replicas)
	}
	if c.Ops <= 0 {
		return fmt.Errorf("ops_per_replica must be positive, got %d", c.Ops)
	}
	if c.Universe <= 0 {
		return fmt.Errorf("universe must be positive, got %d", c.Universe)
	}
	if c.AddWeight <= 0 || c.RemoveWeight < 0 {
		return fmt.Errorf("invalid op weights add=%d remove=%d", c.AddWeight, c.RemoveWeight)
	}
	if c.Rounds == 0 {
		c.Rounds = c.Replicas
		log.Println("[debug] rounds not set, defaulting to replica count", c.Rounds)
	}
	if c.MaxDelay != "" {
		d, err := time.ParseDuration(c.MaxDelay)
		if err != nil {
			return fmt.Errorf("max_delay: %w", err)
		}
		c.maxDelay = d
	}
	if c.Settle != "" {
		d, err := time.ParseDuration(c.Settle)
		if err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		c.settle = d
	}
	if c.settle < 2*c.maxDelay {
		// delayed deliveries must land before the merge-closure check
		c.settle = 2 * c.maxDelay
	}
	return nil
}
