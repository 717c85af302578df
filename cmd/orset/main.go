package main

import (
	"fmt"
	"log"
	"os"

	"crdtset/packages/broadcast"
	"crdtset/packages/communication"
	"crdtset/packages/orset"
	"crdtset/packages/replica"
	"crdtset/packages/sim"
	"crdtset/packages/topology"
	"crdtset/packages/user"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/fujiwara/logutils"
	"github.com/mattn/go-isatty"
)

var logLevelFilter = &logutils.LevelFilter{
	Levels: []logutils.LogLevel{"debug", "info", "notice", "warn", "error"},
	ModifierFuncs: []logutils.ModifierFunc{
		nil,
		logutils.Color(color.FgWhite),
		logutils.Color(color.FgHiBlue),
		logutils.Color(color.FgYellow),
		logutils.Color(color.FgRed, color.Bold),
	},
	Writer: os.Stderr,
}

type CLI struct {
	LogLevel string `help:"Set log level (debug, info, notice, warn, error)." default:"info" env:"ORSET_LOG_LEVEL"`
	NoColor  bool   `help:"Disable colored log output." env:"ORSET_NO_COLOR"`

	Demo DemoCmd `cmd:"" help:"Run the two-replica add-wins walkthrough."`
	Sim  SimCmd  `cmd:"" help:"Run a randomized multi-replica convergence simulation."`
	Repl ReplCmd `cmd:"" help:"Interactive session against a local replica group."`
	Dot  DotCmd  `cmd:"" help:"Print the DOT rendering of a sync topology."`
}

type DemoCmd struct{}

// Run replays the reference walkthrough: concurrent adds of the same
// element converge to one member, and a second add survives a remove that
// never observed its tag.
func (c *DemoCmd) Run() error {
	a := orset.New("A")
	b := orset.New("B")

	a.Add("apple")
	b.Add("apple")

	a.Merge(b.Snapshot())
	b.Merge(a.Snapshot())

	fmt.Println("after first merge, A contains apple:", a.Contains("apple"), "size:", a.Size(), "tags:", a.Tags("apple"))
	fmt.Println("after first merge, B contains apple:", b.Contains("apple"), "size:", b.Size(), "tags:", b.Tags("apple"))

	a.Remove("apple")
	b.Add("apple")

	b.Merge(a.Snapshot())
	a.Merge(b.Snapshot())

	fmt.Println("after second merge, A contains apple:", a.Contains("apple"), "tags:", a.Tags("apple"))
	fmt.Println("after second merge, B contains apple:", b.Contains("apple"), "tags:", b.Tags("apple"))
	return nil
}

type SimCmd struct {
	Config string `help:"Load simulation settings from YAML." short:"c" type:"path"`
}

func (c *SimCmd) Run() error {
	cfg := sim.DefaultConfig()
	if c.Config != "" {
		loaded, err := sim.Load(c.Config)
		if err != nil {
			return err
		}
		cfg = loaded
	} else if err := cfg.Validate(); err != nil {
		return err
	}

	res, err := sim.Run(cfg)
	if err != nil {
		return err
	}
	fmt.Printf("replicas=%d converged=%t elements=%d entries=%d tags/element=%.2f\n",
		res.Replicas, res.Converged, res.Elements, res.InternalSize, res.TagAmplification)
	return nil
}

type ReplCmd struct {
	Replicas int `help:"Number of replicas in the group." default:"3"`
}

func (c *ReplCmd) Run() error {
	if c.Replicas < 2 {
		return fmt.Errorf("repl needs at least two replicas, got %d", c.Replicas)
	}
	channels := make(map[string]chan communication.Update, c.Replicas)
	ids := make([]string, c.Replicas)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%d", i+1)
		channels[ids[i]] = make(chan communication.Update)
	}
	replicas := make(map[string]*replica.Replica, c.Replicas)
	for _, id := range ids {
		replicas[id] = replica.New(id, channels, broadcast.Options{})
	}
	fmt.Println("replicas:", ids)
	return user.RunInput(replicas)
}

type DotCmd struct {
	Kind     topology.Kind `help:"Topology kind (ring, mesh, star)." default:"ring"`
	Replicas int           `help:"Number of replicas." default:"5"`
}

func (c *DotCmd) Run() error {
	ids := make([]string, c.Replicas)
	for i := range ids {
		ids[i] = fmt.Sprintf("r%d", i+1)
	}
	topo, err := topology.New(c.Kind, ids)
	if err != nil {
		return err
	}
	fmt.Println(topo.DOT())
	return nil
}

func setLogLevel(level string) {
	if level != "" {
		logLevelFilter.MinLevel = logutils.LogLevel(level)
	}
	log.SetOutput(logLevelFilter)
	log.Println("[debug] setting log level to", level)
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("orset"),
		kong.Description("Observed-remove set replication playground."),
	)
	color.NoColor = cli.NoColor || !isatty.IsTerminal(os.Stderr.Fd())
	setLogLevel(cli.LogLevel)
	ctx.FatalIfErrorf(ctx.Run())
}
