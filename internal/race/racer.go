package race

// Racer is the per-agent mutable state. All methods are called by the engine
// from within a single step; nothing here is safe for concurrent use.
type Racer struct {
	Name     string
	IsPlayer bool

	Position  float64
	BaseSpeed float64

	CurrentItem Item

	BoostTimer    int
	HitTimer      int
	LastHitBy     string
	LastHitByItem Item

	ItemUses   map[Item]int
	TimesHitBy map[Item]int

	// Relationships maps another racer's name to this racer's score toward
	// them, clamped to [-10, 10]. Scores are asymmetric: being hit lowers the
	// victim's score toward the attacker, not the other way round.
	Relationships  map[string]int
	Traits         map[Trait]bool
	HitByCount     map[string]int
	HitOthersCount map[string]int

	NextItemBoxPos float64

	env *env
}

// ActionKind is what a racer chooses to do in a step.
type ActionKind string

const (
	ActionDrive   ActionKind = "drive"
	ActionUseItem ActionKind = "use_item"
)

type Action struct {
	Kind   ActionKind
	Target string
}

func newRacer(name string, isPlayer bool, e *env) *Racer {
	cfg := e.cfg
	speed := cfg.BaseSpeedMin + e.rng.Float64()*(cfg.BaseSpeedMax-cfg.BaseSpeedMin)
	return &Racer{
		Name:      name,
		IsPlayer:  isPlayer,
		BaseSpeed: speed,
		ItemUses: map[Item]int{
			ItemBoost: 0, ItemGreenShell: 0, ItemRedShell: 0, ItemBanana: 0,
		},
		TimesHitBy: map[Item]int{
			ItemGreenShell: 0, ItemRedShell: 0, ItemBanana: 0,
		},
		Relationships:  map[string]int{},
		Traits:         map[Trait]bool{},
		HitByCount:     map[string]int{},
		HitOthersCount: map[string]int{},
		NextItemBoxPos: cfg.ItemBoxSpacing,
		env:            e,
	}
}

func (r *Racer) initRelationships(all []*Racer) {
	for _, other := range all {
		if other.Name == r.Name {
			continue
		}
		r.Relationships[other.Name] = 0
		r.HitByCount[other.Name] = 0
		r.HitOthersCount[other.Name] = 0
	}
}

func clampScore(v int) int {
	if v < -10 {
		return -10
	}
	if v > 10 {
		return 10
	}
	return v
}

// UpdateRelationship shifts this racer's score toward another by delta,
// clamped. Unknown names are ignored: the roster is fixed for the race.
func (r *Racer) UpdateRelationship(other string, delta int) {
	if _, ok := r.Relationships[other]; !ok {
		return
	}
	r.Relationships[other] = clampScore(r.Relationships[other] + delta)
}

func (r *Racer) addTrait(t Trait) {
	if r.Traits[t] {
		return
	}
	r.Traits[t] = true
	r.env.log.Debug("gained trait", "racer", r.Name, "trait", t)
}

// CheckTraitConditions re-derives the trait set from cumulative counters.
// Target Fixated is the only trait that can be lost.
func (r *Racer) CheckTraitConditions() {
	cfg := r.env.cfg

	offensiveUses := r.ItemUses[ItemGreenShell] + r.ItemUses[ItemRedShell]
	if offensiveUses >= cfg.NemesisTraitThreshold {
		r.addTrait(TraitAggressive)
	}

	shellHits := r.TimesHitBy[ItemGreenShell] + r.TimesHitBy[ItemRedShell]
	if shellHits >= cfg.NemesisTraitThreshold {
		r.addTrait(TraitShellShocked)
	}

	fixated := false
	for _, score := range r.Relationships {
		if score <= cfg.NemesisTargetingThreshold {
			fixated = true
			break
		}
	}
	if fixated {
		r.addTrait(TraitTargetFixated)
	} else if r.Traits[TraitTargetFixated] {
		delete(r.Traits, TraitTargetFixated)
		r.env.log.Debug("lost trait", "racer", r.Name, "trait", TraitTargetFixated)
	}
}

// nemesis returns the most hated racer at or below the targeting threshold,
// or nil. Ties go to the lexically smallest name so AI decisions stay
// deterministic under one seed.
func (r *Racer) nemesis(view *stepView) *Racer {
	cfg := r.env.cfg
	var pick *Racer
	best := 0
	for _, s := range view.standings {
		score, ok := r.Relationships[s.Name]
		if !ok || score > cfg.NemesisTargetingThreshold {
			continue
		}
		if pick == nil || score < best || (score == best && s.Name < pick.Name) {
			pick = view.racers[s.Name]
			best = score
		}
	}
	return pick
}

// DecideAction is the AI policy: pick an action from a read-only view of the
// state at step start. Player racers are handled by the engine and never get
// here.
func (r *Racer) DecideAction(view *stepView) Action {
	if r.CurrentItem == "" {
		return Action{Kind: ActionDrive}
	}

	var ahead, behind []*Racer
	for _, s := range view.standings {
		if s.Name == r.Name {
			continue
		}
		other := view.racers[s.Name]
		switch {
		case other.Position > r.Position:
			ahead = append(ahead, other)
		case other.Position < r.Position:
			behind = append(behind, other)
		}
	}

	nemesis := r.nemesis(view)
	aheadOf := func(target *Racer) bool {
		return target != nil && target.Position > r.Position
	}

	switch r.CurrentItem {
	case ItemBoost:
		if r.BoostTimer <= 0 {
			return Action{Kind: ActionUseItem}
		}

	case ItemGreenShell:
		var target *Racer
		if aheadOf(nemesis) {
			target = nemesis
			r.env.log.Debug("targeting nemesis", "racer", r.Name, "target", target.Name, "item", ItemGreenShell)
		} else if len(ahead) > 0 {
			target = ahead[r.env.rng.Intn(len(ahead))]
		}
		if target != nil {
			return Action{Kind: ActionUseItem, Target: target.Name}
		}

	case ItemRedShell:
		var target *Racer
		if aheadOf(nemesis) {
			target = nemesis
			r.env.log.Debug("targeting nemesis", "racer", r.Name, "target", target.Name, "item", ItemRedShell)
		} else if len(ahead) > 0 {
			// standings are sorted by position descending, so the last
			// racer ahead is the closest one.
			target = ahead[len(ahead)-1]
		}
		if target != nil {
			return Action{Kind: ActionUseItem, Target: target.Name}
		}

	case ItemBanana:
		var closeBehind []*Racer
		for _, other := range behind {
			if r.Position-other.Position < bananaThreatRange {
				closeBehind = append(closeBehind, other)
			}
		}
		nemesisClose := false
		for _, other := range closeBehind {
			if nemesis != nil && other.Name == nemesis.Name {
				nemesisClose = true
				break
			}
		}
		switch {
		case nemesisClose:
			r.env.log.Debug("dropping banana on nemesis", "racer", r.Name, "nemesis", nemesis.Name)
			return Action{Kind: ActionUseItem}
		case len(closeBehind) > 0 && r.env.rng.Float64() < bananaDropChance:
			return Action{Kind: ActionUseItem}
		case r.Traits[TraitAggressive] && r.env.rng.Float64() < bananaAggressiveChance:
			return Action{Kind: ActionUseItem}
		}
	}

	return Action{Kind: ActionDrive}
}

// UpdateStep resolves status timers, advances position, and handles item box
// pickups. Runs exactly once per racer per step.
func (r *Racer) UpdateStep(view *stepView) {
	cfg := r.env.cfg
	speed := r.BaseSpeed

	if r.HitTimer > 0 {
		r.HitTimer--
		var penalty float64
		switch r.LastHitByItem {
		case ItemGreenShell, ItemRedShell:
			penalty = cfg.ShellHitSpeedPenalty
		case ItemBanana:
			penalty = cfg.BananaHitSpeedPenalty
		}
		if r.Traits[TraitShellShocked] {
			penalty *= shellShockedPenaltyMult
		}
		speed += penalty
		if r.HitTimer == 0 {
			r.env.log.Debug("recovered from hit", "racer", r.Name)
			r.LastHitBy = ""
			r.LastHitByItem = ""
		}
	} else if r.BoostTimer > 0 {
		speed += cfg.BoostSpeedBonus
		r.BoostTimer--
		if r.BoostTimer == 0 {
			r.env.log.Debug("boost ended", "racer", r.Name)
		}
	}

	// Racers never stall or roll backwards.
	if speed < 1 {
		speed = 1
	}
	r.Position += speed

	for r.Position >= r.NextItemBoxPos {
		if r.CurrentItem == "" {
			r.drawItem(view.leaderPos())
		}
		r.NextItemBoxPos += cfg.ItemBoxSpacing
	}
}

// drawItem samples one of the four items. Trailing the leader past the
// catch-up threshold inflates the boost chance without renormalizing, which
// shrinks the other shares inside the sampling interval. Intentional.
func (r *Racer) drawItem(leaderPos float64) {
	cfg := r.env.cfg
	boost := cfg.ItemChanceBoost
	green := cfg.ItemChanceGreenShell
	red := cfg.ItemChanceRedShell

	if leaderPos-r.Position > cfg.CatchUpAssistThreshold {
		r.env.log.Debug("catch-up assist", "racer", r.Name, "gap", leaderPos-r.Position)
		boost *= cfg.CatchUpItemBoostMult
	}

	v := r.env.rng.Float64()
	switch {
	case v < boost:
		r.CurrentItem = ItemBoost
	case v < boost+green:
		r.CurrentItem = ItemGreenShell
	case v < boost+green+red:
		r.CurrentItem = ItemRedShell
	default:
		r.CurrentItem = ItemBanana
	}
	r.env.log.Debug("picked up item", "racer", r.Name, "item", r.CurrentItem)
}

// UseItem consumes the held item and applies its effect. Shell hits are not
// applied here: they queue on fx and land after every racer has moved, so no
// racer's mid-step state leaks into another's turn. Reports whether an item
// was consumed.
func (r *Racer) UseItem(target string, fx *stepEffects) bool {
	if r.CurrentItem == "" {
		return false
	}
	used := r.CurrentItem
	r.CurrentItem = ""
	r.ItemUses[used]++
	r.env.log.Debug("used item", "racer", r.Name, "item", used, "target", target)

	switch used {
	case ItemBoost:
		// Hit takes precedence over boost: boosting while recovering fizzles,
		// keeping the two timers mutually exclusive.
		if r.HitTimer > 0 {
			r.env.log.Debug("boost fizzled while recovering", "racer", r.Name)
			break
		}
		r.BoostTimer = r.env.cfg.BoostDuration

	case ItemGreenShell:
		if tgt, ok := fx.racers[target]; ok {
			fx.pending = append(fx.pending, hitEvent{attacker: r.Name, target: tgt.Name, item: used})
			// The attempt counts whether or not the hit lands; immunity is
			// checked at resolution.
			r.HitOthersCount[tgt.Name]++
		}

	case ItemRedShell:
		if tgt, ok := fx.racers[target]; ok && tgt.Position > r.Position {
			fx.pending = append(fx.pending, hitEvent{attacker: r.Name, target: tgt.Name, item: used})
			r.HitOthersCount[tgt.Name]++
		} else {
			r.env.log.Debug("red shell fizzled", "racer", r.Name, "target", target)
		}

	case ItemBanana:
		pos := r.Position - r.BaseSpeed/2
		fx.dropped = append(fx.dropped, Obstacle{Kind: ItemBanana, Position: pos, Owner: r.Name})
		r.env.log.Debug("dropped banana", "racer", r.Name, "position", pos)
	}
	return true
}

// ApplyHit lands an attack on this racer. A positive hit timer grants
// immunity and makes this a no-op. attacker may be empty for unattributed
// obstacles.
func (r *Racer) ApplyHit(attacker string, item Item) {
	if r.HitTimer > 0 {
		r.env.log.Debug("hit immunity", "racer", r.Name, "item", item)
		return
	}
	r.env.log.Debug("hit", "racer", r.Name, "attacker", attacker, "item", item)

	r.BoostTimer = 0
	r.LastHitBy = attacker
	r.LastHitByItem = item
	r.TimesHitBy[item]++
	if attacker != "" {
		r.HitByCount[attacker]++
	}

	switch item {
	case ItemGreenShell, ItemRedShell:
		r.HitTimer = r.env.cfg.ShellHitDuration
	case ItemBanana:
		r.HitTimer = r.env.cfg.BananaHitDuration
	}

	if attacker != "" {
		r.UpdateRelationship(attacker, r.env.cfg.NemesisHitPenalty)
		r.env.log.Debug("relationship drop", "racer", r.Name, "toward", attacker, "score", r.Relationships[attacker])
	}

	r.CheckTraitConditions()
}
