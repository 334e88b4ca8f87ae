package race

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Standing is one row of the race order: position-sorted racer state, enough
// for both AI decisions and rendering.
type Standing struct {
	Name       string
	IsPlayer   bool
	Position   float64
	BaseSpeed  float64
	Item       Item
	BoostTimer int
	HitTimer   int
	Traits     []Trait
}

// Snapshot is a read-only copy of the observable race state.
type Snapshot struct {
	RaceID      uuid.UUID
	Step        int
	TrackLength float64
	Standings   []Standing
	Obstacles   []Obstacle
	Winner      string
	Over        bool
}

// RacerDetails is the full per-racer record, for the detail view and debug
// inspection. Every map is a copy.
type RacerDetails struct {
	Name           string
	IsPlayer       bool
	Position       float64
	BaseSpeed      float64
	CurrentItem    Item
	BoostTimer     int
	HitTimer       int
	LastHitBy      string
	LastHitByItem  Item
	Traits         []Trait
	ItemUses       map[Item]int
	TimesHitBy     map[Item]int
	Relationships  map[string]int
	HitByCount     map[string]int
	HitOthersCount map[string]int
	NextItemBoxPos float64
}

func sortedTraits(set map[Trait]bool) []Trait {
	if len(set) == 0 {
		return nil
	}
	out := make([]Trait, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Race) fullStandings() []Standing {
	s := standingsOf(r.positions())
	for i := range s {
		rc := r.racers[s[i].Name]
		s[i].IsPlayer = rc.IsPlayer
		s[i].BaseSpeed = rc.BaseSpeed
		s[i].Item = rc.CurrentItem
		s[i].BoostTimer = rc.BoostTimer
		s[i].HitTimer = rc.HitTimer
		s[i].Traits = sortedTraits(rc.Traits)
	}
	return s
}

// Snapshot returns the current race state for rendering. Never mutates.
func (r *Race) Snapshot() Snapshot {
	obstacles := make([]Obstacle, len(r.obstacles))
	copy(obstacles, r.obstacles)
	return Snapshot{
		RaceID:      r.ID,
		Step:        r.stepCount,
		TrackLength: r.env.cfg.TrackLength,
		Standings:   r.fullStandings(),
		Obstacles:   obstacles,
		Winner:      r.winner,
		Over:        r.over,
	}
}

func copyItemCounts(m map[Item]int) map[Item]int {
	out := make(map[Item]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyNameCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RacerDetails returns the full record for one racer. Never mutates.
func (r *Race) RacerDetails(name string) (RacerDetails, error) {
	rc, ok := r.racers[name]
	if !ok {
		return RacerDetails{}, fmt.Errorf("%w: %s", ErrUnknownRacer, name)
	}
	return RacerDetails{
		Name:           rc.Name,
		IsPlayer:       rc.IsPlayer,
		Position:       rc.Position,
		BaseSpeed:      rc.BaseSpeed,
		CurrentItem:    rc.CurrentItem,
		BoostTimer:     rc.BoostTimer,
		HitTimer:       rc.HitTimer,
		LastHitBy:      rc.LastHitBy,
		LastHitByItem:  rc.LastHitByItem,
		Traits:         sortedTraits(rc.Traits),
		ItemUses:       copyItemCounts(rc.ItemUses),
		TimesHitBy:     copyItemCounts(rc.TimesHitBy),
		Relationships:  copyNameCounts(rc.Relationships),
		HitByCount:     copyNameCounts(rc.HitByCount),
		HitOthersCount: copyNameCounts(rc.HitOthersCount),
		NextItemBoxPos: rc.NextItemBoxPos,
	}, nil
}
