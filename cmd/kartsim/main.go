package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Coronach-Games/nemesis-kart/internal/config"
	"github.com/Coronach-Games/nemesis-kart/internal/race"
	"github.com/Coronach-Games/nemesis-kart/internal/util"
)

func main() {
	var cfgPath string
	var seed int64
	var racers int
	var auto, debug bool
	flag.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flag.Int64Var(&seed, "seed", 0, "rng seed, 0 means time-based")
	flag.IntVar(&racers, "racers", 0, "override num_racers")
	flag.BoolVar(&auto, "auto", false, "start in auto-run mode")
	flag.BoolVar(&debug, "debug", true, "show debug messages")
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false, Prefix: "kartsim"})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}

	cfg := config.Default()
	if cfgPath != "" {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logger.Fatal("load config", "err", err)
		}
	}
	if racers > 0 {
		cfg.NumRacers = racers
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	c := &console{
		game:   race.New(cfg, util.New(seed), logger),
		logger: logger,
		auto:   auto,
	}
	c.run()
}

// console owns the interactive loop: one goroutine scans stdin into an inbox
// channel, and the main loop alone talks to the engine, so every command and
// step applies in submission order.
type console struct {
	game    *race.Race
	logger  *log.Logger
	auto    bool
	pending *race.Action // player action queued for the next step
}

func (c *console) run() {
	lines := make(chan string, 8)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	fmt.Println("--- Nemesis Kart Simulator ---")
	c.printHelp()

	for !c.game.Over() {
		if c.auto {
			delay := time.Duration(c.game.Config().StepDelaySeconds * float64(time.Second))
			select {
			case line, ok := <-lines:
				if !ok || c.handle(line) {
					c.finish()
					return
				}
			case <-time.After(delay):
				c.stepOnce()
			}
		} else {
			line, ok := <-lines
			if !ok || c.handle(line) {
				break
			}
		}
	}
	c.finish()
}

func (c *console) finish() {
	if w := c.game.Winner(); w != "" {
		fmt.Printf("Winner: %s\n", w)
	} else {
		fmt.Println("Race did not finish.")
	}
}

func (c *console) stepOnce() {
	over := c.game.RunStep(c.pending)
	c.pending = nil
	c.printStatus()
	if over {
		c.auto = false
	}
}

// handle runs one command line. Returns true to quit.
func (c *console) handle(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "quit":
		return true
	case "run":
		c.auto = true
		fmt.Println("Running simulation automatically...")
	case "step":
		n := 1
		if len(args) > 0 {
			if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
				n = v
			}
		}
		for i := 0; i < n && !c.game.Over(); i++ {
			c.stepOnce()
		}
		c.auto = false
	case "status":
		if len(args) > 0 {
			c.printDetails(args[0])
		} else {
			c.printStatus()
		}
	case "config":
		c.configCmd(args)
	case "give":
		c.giveCmd(args)
	case "use":
		c.useCmd(args)
	case "rel":
		c.relCmd(args)
	case "debug":
		if c.logger.GetLevel() == log.DebugLevel {
			c.logger.SetLevel(log.InfoLevel)
			fmt.Println("Debug messages OFF")
		} else {
			c.logger.SetLevel(log.DebugLevel)
			fmt.Println("Debug messages ON")
		}
	case "help":
		c.printHelp()
	default:
		fmt.Printf("Unknown command: %s. Type 'help' for the list.\n", cmd)
	}
	return false
}

func (c *console) configCmd(args []string) {
	switch len(args) {
	case 0:
		fmt.Println("--- Current Configuration ---")
		for _, key := range config.Keys() {
			v, _ := c.game.ConfigValue(key)
			fmt.Printf("%s: %s\n", key, v)
		}
	case 1:
		v, err := c.game.ConfigValue(args[0])
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("%s: %s\n", args[0], v)
	case 2:
		if err := c.game.SetConfigValue(args[0], args[1]); err != nil {
			fmt.Println(err)
			return
		}
		fmt.Printf("Set %s = %s\n", args[0], args[1])
	default:
		fmt.Println("Usage: config [key] [value]")
	}
}

func (c *console) giveCmd(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: give [racer] [item]")
		return
	}
	item, err := race.ParseItem(args[1])
	if err != nil {
		fmt.Printf("Invalid item name: %s. Use Boost, Green_Shell, Red_Shell, or Banana.\n", args[1])
		return
	}
	if err := c.game.GiveItem(args[0], item); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("Gave %s to %s.\n", item, args[0])
}

func (c *console) useCmd(args []string) {
	if !c.game.Config().PlayerControlled {
		fmt.Println("Player is not enabled (player_controlled=false).")
		return
	}
	target := ""
	if len(args) > 0 {
		target = args[0]
		if _, err := c.game.RacerDetails(target); err != nil {
			fmt.Printf("Target racer '%s' not found. Item may fizzle.\n", target)
		}
	}
	act, err := c.game.PlayerUse(target)
	if err != nil {
		if errors.Is(err, race.ErrNoItemHeld) {
			fmt.Println("Player has no item to use.")
		} else {
			fmt.Println(err)
		}
		return
	}
	c.pending = act
	det, _ := c.game.RacerDetails(race.PlayerName)
	if act.Target != "" {
		fmt.Printf("Player action set: use %s targeting %s\n", det.CurrentItem, act.Target)
	} else {
		fmt.Printf("Player action set: use %s\n", det.CurrentItem)
	}
}

func (c *console) relCmd(args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: rel [racer1] [racer2] [value]")
		return
	}
	score, err := strconv.Atoi(args[2])
	if err != nil {
		fmt.Println("Invalid relationship value, must be an integer.")
		return
	}
	if err := c.game.SetRelationship(args[0], args[1], score); err != nil {
		fmt.Println(err)
		return
	}
	det, _ := c.game.RacerDetails(args[0])
	fmt.Printf("Set %s's relationship towards %s to %d.\n", args[0], args[1], det.Relationships[args[1]])
}

func traitList(traits []race.Trait) string {
	if len(traits) == 0 {
		return "None"
	}
	names := make([]string, len(traits))
	for i, t := range traits {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

func (c *console) printStatus() {
	snap := c.game.Snapshot()
	fmt.Printf("\n--- Race Status (Step %d) ---\n", snap.Step)
	w := tabwriter.NewWriter(os.Stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Place\tName\tPosition\tSpeed\tItem\tBoost\tHit\tTraits")
	for i, s := range snap.Standings {
		item := "None"
		if s.Item != "" {
			item = string(s.Item)
		}
		boost := "No"
		if s.BoostTimer > 0 {
			boost = fmt.Sprintf("Yes (%d)", s.BoostTimer)
		}
		hit := "No"
		if s.HitTimer > 0 {
			hit = fmt.Sprintf("Yes (%d)", s.HitTimer)
		}
		fmt.Fprintf(w, "%d\t%s\t%.1f/%.0f\t%.1f\t%s\t%s\t%s\t%s\n",
			i+1, s.Name, s.Position, snap.TrackLength, s.BaseSpeed, item, boost, hit, traitList(s.Traits))
	}
	w.Flush()
	if len(snap.Obstacles) > 0 {
		fmt.Println("Obstacles on track:")
		for _, obs := range snap.Obstacles {
			fmt.Printf("  - %s at %.1f (Owner: %s)\n", obs.Kind, obs.Position, obs.Owner)
		}
	}
}

func (c *console) printDetails(name string) {
	det, err := c.game.RacerDetails(name)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Printf("--- Details for %s ---\n", det.Name)
	fmt.Printf("Position: %.1f\n", det.Position)
	fmt.Printf("Base Speed: %.1f\n", det.BaseSpeed)
	item := "None"
	if det.CurrentItem != "" {
		item = string(det.CurrentItem)
	}
	fmt.Printf("Current Item: %s\n", item)
	fmt.Printf("Boost Timer: %d\n", det.BoostTimer)
	fmt.Printf("Hit Timer: %d\n", det.HitTimer)
	if det.LastHitBy != "" || det.LastHitByItem != "" {
		fmt.Printf("Last Hit By: %s (%s)\n", det.LastHitBy, det.LastHitByItem)
	}
	fmt.Printf("Traits: %s\n", traitList(det.Traits))
	fmt.Println("Item Uses:")
	for _, it := range []race.Item{race.ItemBoost, race.ItemGreenShell, race.ItemRedShell, race.ItemBanana} {
		fmt.Printf("  - %s: %d\n", it, det.ItemUses[it])
	}
	fmt.Println("Times Hit By Item:")
	for _, it := range []race.Item{race.ItemGreenShell, race.ItemRedShell, race.ItemBanana} {
		fmt.Printf("  - %s: %d\n", it, det.TimesHitBy[it])
	}
	fmt.Println("Relationships:")
	type rel struct {
		name  string
		score int
	}
	rels := make([]rel, 0, len(det.Relationships))
	for name, score := range det.Relationships {
		rels = append(rels, rel{name, score})
	}
	sort.Slice(rels, func(i, j int) bool {
		if rels[i].score != rels[j].score {
			return rels[i].score < rels[j].score
		}
		return rels[i].name < rels[j].name
	})
	for _, r := range rels {
		fmt.Printf("  - Towards %s: %d\n", r.name, r.score)
	}
	printCounts := func(header string, counts map[string]int, prefix string) {
		fmt.Println(header)
		names := make([]string, 0, len(counts))
		for name, n := range counts {
			if n > 0 {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		if len(names) == 0 {
			fmt.Println("  None")
			return
		}
		for _, name := range names {
			fmt.Printf("  - %s %s: %d\n", prefix, name, counts[name])
		}
	}
	printCounts("Hit By Count:", det.HitByCount, "From")
	printCounts("Hit Others Count:", det.HitOthersCount, "Towards")
}

func (c *console) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  run                  - Run the simulation automatically until the end.")
	fmt.Println("  step [n=1]           - Advance the simulation by n steps.")
	fmt.Println("  status [name]        - Show racer status (or all if no name).")
	fmt.Println("  config [key] [value] - View or set a config value.")
	fmt.Println("  give [racer] [item]  - Give an item (Boost, Green_Shell, Red_Shell, Banana).")
	fmt.Println("  use [target?]        - Use the held item next step (target for shells).")
	fmt.Println("  rel [r1] [r2] [val]  - Set relationship score for r1 towards r2.")
	fmt.Println("  debug                - Toggle debug messages.")
	fmt.Println("  help                 - Show this help message.")
	fmt.Println("  quit                 - Exit the simulator.")
}
