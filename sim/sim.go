package sim

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"crdtset/packages/broadcast"
	"crdtset/packages/communication"
	"crdtset/packages/replica"
	"crdtset/packages/topology"

	"github.com/google/uuid"
	"github.com/jmcvetta/randutil"
	"github.com/samber/lo"
)

// Result summarizes a run. After a full merge closure every replica holds
// the same entry store, so Elements and InternalSize are group-wide.
type Result struct {
	Replicas     int
	Converged    bool
	Elements     int
	InternalSize int
	// InternalSize / Elements: how many live tags the average element
	// carries. Grows with concurrent re-adds; tags are never pruned.
	TagAmplification float64
}

// Run drives cfg.Replicas independent replicas through a randomized
// add/remove workload over the broadcast middleware, then walks merge
// rounds over the sync topology and reports whether the group converged.
func Run(cfg *Config) (*Result, error) {
	ids := cfg.ReplicaIDs
	if len(ids) == 0 {
		ids = make([]string, cfg.Replicas)
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	}

	topo, err := topology.New(cfg.Topology, ids)
	if err != nil {
		return nil, err
	}

	channels := make(map[string]chan communication.Update, len(ids))
	for _, id := range ids {
		channels[id] = make(chan communication.Update)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	log.Println("[info] sim:", len(ids), "replicas,", cfg.Ops, "ops each,", cfg.Topology, "topology, seed", seed)

	replicas := make(map[string]*replica.Replica, len(ids))
	for _, id := range ids {
		replicas[id] = replica.New(id, channels, broadcast.Options{
			DuplicateProb: cfg.DuplicateProb,
			MaxDelay:      cfg.maxDelay,
			Seed:          seed,
		})
	}

	choices := []randutil.Choice{
		{Weight: cfg.AddWeight, Item: "add"},
		{Weight: cfg.RemoveWeight, Item: "rem"},
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(r *replica.Replica, rng *rand.Rand) {
			defer wg.Done()
			for j := 0; j < cfg.Ops; j++ {
				element := fmt.Sprintf("element_%d", rng.Intn(cfg.Universe))
				op, err := randutil.WeightedChoice(choices)
				if err != nil || op.Item == "add" {
					r.Add(element)
				} else {
					r.Remove(element)
				}
			}
		}(replicas[id], rand.New(rand.NewSource(seed+int64(i))))
	}
	wg.Wait()

	// let in-flight middleware deliveries land before state-based sync
	if cfg.settle > 0 {
		time.Sleep(cfg.settle)
	}

	for round := 0; round < cfg.Rounds; round++ {
		for _, e := range topo.Edges() {
			replicas[e.A].Merge(replicas[e.B])
			replicas[e.B].Merge(replicas[e.A])
		}
	}

	first := replicas[ids[0]]
	converged := lo.EveryBy(ids, func(id string) bool {
		return replicas[id].Elements().Equal(first.Elements())
	})

	res := &Result{
		Replicas:     len(ids),
		Converged:    converged,
		Elements:     first.Size(),
		InternalSize: first.InternalSize(),
	}
	if res.Elements > 0 {
		res.TagAmplification = float64(res.InternalSize) / float64(res.Elements)
	}

	if !converged {
		for _, id := range ids {
			log.Println("[error] replica", id, "elements:", replicas[id].Elements())
		}
		return res, fmt.Errorf("replicas did not converge after %d rounds", cfg.Rounds)
	}
	log.Println("[info] converged:", res.Elements, "elements,", res.InternalSize, "entries,",
		fmt.Sprintf("%.2f", res.TagAmplification), "tags/element")
	return res, nil
}
