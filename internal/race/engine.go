package race

import (
	"fmt"
	"io"
	"math/rand"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Coronach-Games/nemesis-kart/internal/config"
)

// PlayerName is the fixed identity of the human-controllable racer.
const PlayerName = "Player"

// env is the shared read side every racer sees: the active config, the race's
// RNG and the debug log stream. The config pointer is only ever swapped as a
// whole by SetConfigValue.
type env struct {
	cfg *config.Config
	rng *rand.Rand
	log *log.Logger
}

type hitEvent struct {
	attacker string
	target   string
	item     Item
}

// stepView is the immutable view taken at step start that all decisions and
// updates of that step read from.
type stepView struct {
	standings []Standing
	racers    map[string]*Racer
	obstacles []Obstacle
}

func (v *stepView) leaderPos() float64 {
	if len(v.standings) == 0 {
		return 0
	}
	return v.standings[0].Position
}

// stepEffects collects what item uses produce during a step: shell hits to
// resolve after movement, and obstacles to add to the track.
type stepEffects struct {
	racers  map[string]*Racer
	pending []hitEvent
	dropped []Obstacle
}

// Race owns the racers and the track-side state and advances them one
// synchronous step at a time. It is not safe for concurrent use; callers
// serialize RunStep externally.
type Race struct {
	ID uuid.UUID

	env    *env
	racers map[string]*Racer
	order  []string // creation order, the engine's deterministic iteration order

	obstacles []Obstacle
	stepCount int
	winner    string
	over      bool
}

// New builds a race from the config: one Player slot (human-controlled if the
// config says so) plus CPU_1..CPU_{n-1}. A nil logger silences the debug
// stream.
func New(cfg config.Config, rng *rand.Rand, logger *log.Logger) *Race {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	e := &env{cfg: &cfg, rng: rng, log: logger}
	r := &Race{
		ID:     uuid.New(),
		env:    e,
		racers: map[string]*Racer{},
	}

	add := func(name string, isPlayer bool) {
		r.racers[name] = newRacer(name, isPlayer, e)
		r.order = append(r.order, name)
	}
	add(PlayerName, cfg.PlayerControlled)
	for i := 1; i < cfg.NumRacers; i++ {
		add(fmt.Sprintf("CPU_%d", i), false)
	}

	all := make([]*Racer, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.racers[name])
	}
	for _, rc := range all {
		rc.initRelationships(all)
	}

	logger.Debug("race created", "race", r.ID, "racers", len(r.order), "track", cfg.TrackLength)
	return r
}

// standingsOf sorts name/position pairs by position descending, name
// ascending. The same order decides ranks, the winner, and finish-ahead
// penalties, so ties resolve identically everywhere.
func standingsOf(positions map[string]float64) []Standing {
	s := make([]Standing, 0, len(positions))
	for name, pos := range positions {
		s = append(s, Standing{Name: name, Position: pos})
	}
	sort.Slice(s, func(i, j int) bool {
		if s[i].Position != s[j].Position {
			return s[i].Position > s[j].Position
		}
		return s[i].Name < s[j].Name
	})
	return s
}

func (r *Race) positions() map[string]float64 {
	m := make(map[string]float64, len(r.racers))
	for name, rc := range r.racers {
		m[name] = rc.Position
	}
	return m
}

func (r *Race) view() *stepView {
	obstacles := make([]Obstacle, len(r.obstacles))
	copy(obstacles, r.obstacles)
	return &stepView{
		standings: r.fullStandings(),
		racers:    r.racers,
		obstacles: obstacles,
	}
}

// RunStep advances the simulation one step. playerAction is the player's
// choice for this step; nil means drive. Returns true once the race is over,
// including on calls after the finish, which change nothing.
func (r *Race) RunStep(playerAction *Action) bool {
	if r.over {
		return true
	}
	r.stepCount++
	r.env.log.Debug("step", "n", r.stepCount)

	view := r.view()
	fx := &stepEffects{racers: r.racers}

	// 1. Decisions against the step-start view.
	actions := make(map[string]Action, len(r.order))
	for _, name := range r.order {
		rc := r.racers[name]
		if rc.IsPlayer {
			if playerAction != nil {
				actions[name] = *playerAction
			} else {
				actions[name] = Action{Kind: ActionDrive}
			}
		} else {
			actions[name] = rc.DecideAction(view)
		}
	}

	// 2. Pre-step positions, for collision intervals and overtake ranks.
	lastPositions := r.positions()
	prevRank := rankIndex(standingsOf(lastPositions))

	// 3. Item uses, then movement. Movement is unconditional.
	for _, name := range r.order {
		rc := r.racers[name]
		if act := actions[name]; act.Kind == ActionUseItem {
			rc.UseItem(act.Target, fx)
		}
		rc.UpdateStep(view)
	}
	r.obstacles = append(r.obstacles, fx.dropped...)

	// 4. Shell hits land now, against post-movement state.
	for _, ev := range fx.pending {
		if tgt, ok := r.racers[ev.target]; ok {
			tgt.ApplyHit(ev.attacker, ev.item)
		}
	}

	// 5. Obstacle collisions: first non-immune racer whose step interval
	// crossed the obstacle consumes it.
	r.resolveObstacles(lastPositions)

	// 6. Overtakes, as a full pairwise order diff: every pair that swapped
	// relative order charges the overtaken racer's score toward the
	// overtaker, once per pair per step.
	curRank := rankIndex(standingsOf(r.positions()))
	for _, a := range r.order {
		for _, b := range r.order {
			if a == b {
				continue
			}
			if curRank[a] < curRank[b] && prevRank[a] > prevRank[b] {
				r.env.log.Debug("overtake", "racer", a, "overtook", b)
				r.racers[b].UpdateRelationship(a, r.env.cfg.NemesisOvertakePenalty)
			}
		}
	}

	// 7. Win check. Standings order breaks simultaneous finishes.
	r.checkWinner()

	// 8. Trait refresh for everyone.
	for _, name := range r.order {
		r.racers[name].CheckTraitConditions()
	}

	return r.over
}

func rankIndex(standings []Standing) map[string]int {
	m := make(map[string]int, len(standings))
	for i, s := range standings {
		m[s.Name] = i
	}
	return m
}

func (r *Race) resolveObstacles(lastPositions map[string]float64) {
	kept := make([]Obstacle, 0, len(r.obstacles))
	for _, obs := range r.obstacles {
		consumed := false
		for _, name := range r.order {
			rc := r.racers[name]
			lo, hi := lastPositions[name], rc.Position
			if lo > hi {
				lo, hi = hi, lo
			}
			if lo < obs.Position && obs.Position <= hi && rc.HitTimer <= 0 {
				r.env.log.Debug("obstacle collision", "racer", name, "owner", obs.Owner, "item", obs.Kind, "position", obs.Position)
				rc.ApplyHit(obs.Owner, obs.Kind)
				consumed = true
				break
			}
		}
		if !consumed {
			kept = append(kept, obs)
		}
	}
	r.obstacles = kept
}

func (r *Race) checkWinner() {
	standings := standingsOf(r.positions())
	if len(standings) == 0 || standings[0].Position < r.env.cfg.TrackLength {
		return
	}
	r.winner = standings[0].Name
	r.over = true
	r.env.log.Debug("race won", "winner", r.winner, "step", r.stepCount)

	// Everyone resents every racer that finished ahead of them.
	for i, s := range standings {
		loser := r.racers[s.Name]
		for j := 0; j < i; j++ {
			loser.UpdateRelationship(standings[j].Name, r.env.cfg.NemesisFinishAheadPenalty)
		}
	}
}

// Over reports whether the race has finished.
func (r *Race) Over() bool { return r.over }

// Winner returns the winning racer's name, empty while the race runs.
func (r *Race) Winner() string { return r.winner }

// StepCount returns how many steps have been simulated.
func (r *Race) StepCount() int { return r.stepCount }

// Config returns a copy of the active configuration.
func (r *Race) Config() config.Config { return *r.env.cfg }

// ConfigValue reads one named config value, formatted for display.
func (r *Race) ConfigValue(key string) (string, error) {
	return r.env.cfg.Value(key)
}

// SetConfigValue validates and applies a single override by copying the
// active config, mutating the copy, and swapping the reference. A rejected
// value leaves the old config in place.
func (r *Race) SetConfigValue(key, raw string) error {
	next := *r.env.cfg
	if err := next.Set(key, raw); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	r.env.cfg = &next
	r.env.log.Debug("config override", "key", key, "value", raw)
	return nil
}

// GiveItem is a debug hook that forces an item into a racer's slot.
func (r *Race) GiveItem(name string, item Item) error {
	rc, ok := r.racers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRacer, name)
	}
	rc.CurrentItem = item
	r.env.log.Debug("item granted", "racer", name, "item", item)
	return nil
}

// PlayerUse validates that the player holds an item and returns the action to
// queue for the next step. Targets only make sense for shells and are dropped
// otherwise.
func (r *Race) PlayerUse(target string) (*Action, error) {
	p, ok := r.racers[PlayerName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRacer, PlayerName)
	}
	if p.CurrentItem == "" {
		return nil, ErrNoItemHeld
	}
	if !p.CurrentItem.Offensive() {
		target = ""
	}
	return &Action{Kind: ActionUseItem, Target: target}, nil
}

// SetRelationship is a debug hook that sets from's score toward to as an
// absolute value, clamped to the score range.
func (r *Race) SetRelationship(from, to string, score int) error {
	src, ok := r.racers[from]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRacer, from)
	}
	if _, ok := r.racers[to]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRacer, to)
	}
	if from == to {
		return ErrSelfRelationship
	}
	src.UpdateRelationship(to, clampScore(score)-src.Relationships[to])
	r.env.log.Debug("relationship set", "from", from, "to", to, "score", src.Relationships[to])
	return nil
}
