package race

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Coronach-Games/nemesis-kart/internal/config"
	"github.com/Coronach-Games/nemesis-kart/internal/util"
)

// testConfig pins the speed range so movement is exact in assertions.
func testConfig(racers int) config.Config {
	cfg := config.Default()
	cfg.NumRacers = racers
	cfg.BaseSpeedMin = 10
	cfg.BaseSpeedMax = 10
	return cfg
}

func newTestRace(t *testing.T, cfg config.Config, seed int64) *Race {
	t.Helper()
	return New(cfg, util.New(seed), nil)
}

func TestRelationshipClamp(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]

	p.UpdateRelationship("CPU_1", -100)
	assert.Equal(t, -10, p.Relationships["CPU_1"])

	p.UpdateRelationship("CPU_1", 200)
	assert.Equal(t, 10, p.Relationships["CPU_1"])

	// Unknown names are ignored, the roster is fixed.
	p.UpdateRelationship("CPU_99", -5)
	assert.NotContains(t, p.Relationships, "CPU_99")
}

func TestApplyHitRecordsEverything(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	cfg := g.Config()
	victim := g.racers["CPU_1"]

	victim.ApplyHit(PlayerName, ItemGreenShell)

	assert.Equal(t, cfg.ShellHitDuration, victim.HitTimer)
	assert.Equal(t, 1, victim.TimesHitBy[ItemGreenShell])
	assert.Equal(t, 1, victim.HitByCount[PlayerName])
	assert.Equal(t, cfg.NemesisHitPenalty, victim.Relationships[PlayerName])
	assert.Equal(t, PlayerName, victim.LastHitBy)
	assert.Equal(t, ItemGreenShell, victim.LastHitByItem)
}

func TestApplyHitImmunityWindow(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	victim := g.racers["CPU_1"]

	victim.ApplyHit(PlayerName, ItemGreenShell)
	timer := victim.HitTimer
	hits := victim.TimesHitBy[ItemGreenShell]
	rel := victim.Relationships[PlayerName]

	victim.ApplyHit(PlayerName, ItemRedShell)

	assert.Equal(t, timer, victim.HitTimer)
	assert.Equal(t, hits, victim.TimesHitBy[ItemGreenShell])
	assert.Equal(t, 0, victim.TimesHitBy[ItemRedShell])
	assert.Equal(t, rel, victim.Relationships[PlayerName])
	assert.Equal(t, ItemGreenShell, victim.LastHitByItem)
}

func TestHitCancelsBoost(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	victim := g.racers["CPU_1"]
	victim.BoostTimer = 3

	victim.ApplyHit(PlayerName, ItemBanana)

	assert.Zero(t, victim.BoostTimer)
	assert.Equal(t, g.Config().BananaHitDuration, victim.HitTimer)
}

func TestUseItemRequiresItem(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	fx := &stepEffects{racers: g.racers}

	assert.False(t, p.UseItem("", fx))

	p.CurrentItem = ItemBoost
	assert.True(t, p.UseItem("", fx))
	assert.Empty(t, p.CurrentItem)
	assert.Equal(t, g.Config().BoostDuration, p.BoostTimer)
	assert.Equal(t, 1, p.ItemUses[ItemBoost])
}

func TestBoostFizzlesWhileRecovering(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.HitTimer = 2
	p.CurrentItem = ItemBoost
	fx := &stepEffects{racers: g.racers}

	assert.True(t, p.UseItem("", fx))
	assert.Zero(t, p.BoostTimer)
	assert.Equal(t, 1, p.ItemUses[ItemBoost])
}

func TestBananaDropsBehind(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.Position = 100
	p.CurrentItem = ItemBanana
	fx := &stepEffects{racers: g.racers}

	require.True(t, p.UseItem("", fx))
	require.Len(t, fx.dropped, 1)
	assert.Equal(t, Obstacle{Kind: ItemBanana, Position: 95, Owner: PlayerName}, fx.dropped[0])
}

func TestGreenShellCountsAttemptOnUse(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	// Target behind the attacker: green shells do not care.
	g.racers["CPU_1"].Position = 0
	p.Position = 50
	p.CurrentItem = ItemGreenShell
	fx := &stepEffects{racers: g.racers}

	require.True(t, p.UseItem("CPU_1", fx))
	require.Len(t, fx.pending, 1)
	assert.Equal(t, hitEvent{attacker: PlayerName, target: "CPU_1", item: ItemGreenShell}, fx.pending[0])
	assert.Equal(t, 1, p.HitOthersCount["CPU_1"])
}

func TestRedShellFizzlesOnTargetBehind(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	g.racers["CPU_1"].Position = 0
	p.Position = 50
	p.CurrentItem = ItemRedShell
	fx := &stepEffects{racers: g.racers}

	require.True(t, p.UseItem("CPU_1", fx))
	assert.Empty(t, fx.pending)
	assert.Zero(t, p.HitOthersCount["CPU_1"])
	assert.Empty(t, p.CurrentItem)
	assert.Equal(t, 1, p.ItemUses[ItemRedShell])
}

func TestAggressiveTraitIsPermanent(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.ItemUses[ItemGreenShell] = 2
	p.ItemUses[ItemRedShell] = 1

	p.CheckTraitConditions()
	assert.True(t, p.Traits[TraitAggressive])

	// Counters never decrease in practice; even if they did, the trait stays.
	p.ItemUses[ItemGreenShell] = 0
	p.ItemUses[ItemRedShell] = 0
	p.CheckTraitConditions()
	assert.True(t, p.Traits[TraitAggressive])
}

func TestTargetFixatedIsRevocable(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]

	p.UpdateRelationship("CPU_1", -6)
	p.CheckTraitConditions()
	assert.True(t, p.Traits[TraitTargetFixated])

	p.UpdateRelationship("CPU_1", 6)
	p.CheckTraitConditions()
	assert.False(t, p.Traits[TraitTargetFixated])
}

func TestShellShockedAmplifiesPenalty(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.Traits[TraitShellShocked] = true
	p.HitTimer = 1
	p.LastHitByItem = ItemGreenShell

	// 10 - 20*1.5 = -20, floored to the minimum speed of 1.
	p.UpdateStep(g.view())
	assert.Equal(t, 1.0, p.Position)
	assert.Zero(t, p.HitTimer)
	assert.Empty(t, p.LastHitBy)
	assert.Empty(t, p.LastHitByItem)
}

func TestSpeedFloor(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.HitTimer = 2
	p.LastHitByItem = ItemGreenShell

	p.UpdateStep(g.view())
	assert.Equal(t, 1.0, p.Position)
	assert.Equal(t, 1, p.HitTimer)
}

func TestItemBoxPickup(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.Position = 195

	p.UpdateStep(g.view())
	assert.NotEmpty(t, p.CurrentItem)
	assert.Equal(t, 400.0, p.NextItemBoxPos)
}

func TestItemBoxSkippedWhenHolding(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	p := g.racers[PlayerName]
	p.Position = 195
	p.CurrentItem = ItemBanana

	p.UpdateStep(g.view())
	assert.Equal(t, ItemBanana, p.CurrentItem)
	assert.Equal(t, 400.0, p.NextItemBoxPos)
}

func TestCatchUpAssistSkewsTowardBoost(t *testing.T) {
	cfg := testConfig(2)
	cfg.CatchUpItemBoostMult = 10 // boost share exceeds 1, so every draw is a boost
	g := newTestRace(t, cfg, 1)
	p := g.racers[PlayerName]
	g.racers["CPU_1"].Position = 1000

	for i := 0; i < 5; i++ {
		p.CurrentItem = ""
		p.drawItem(1000)
		assert.Equal(t, ItemBoost, p.CurrentItem)
	}
}

func TestDecideDriveWithoutItem(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	act := g.racers["CPU_1"].DecideAction(g.view())
	assert.Equal(t, ActionDrive, act.Kind)
}

func TestDecideBoost(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	rc := g.racers["CPU_1"]
	rc.CurrentItem = ItemBoost

	act := rc.DecideAction(g.view())
	assert.Equal(t, ActionUseItem, act.Kind)

	rc.BoostTimer = 2
	act = rc.DecideAction(g.view())
	assert.Equal(t, ActionDrive, act.Kind)
}

func TestDecideGreenShellPrefersNemesis(t *testing.T) {
	g := newTestRace(t, testConfig(3), 1)
	rc := g.racers[PlayerName]
	rc.CurrentItem = ItemGreenShell
	g.racers["CPU_1"].Position = 100
	g.racers["CPU_2"].Position = 200
	rc.UpdateRelationship("CPU_1", -6)

	act := rc.DecideAction(g.view())
	assert.Equal(t, ActionUseItem, act.Kind)
	assert.Equal(t, "CPU_1", act.Target)
}

func TestDecideRedShellClosestAhead(t *testing.T) {
	g := newTestRace(t, testConfig(3), 1)
	rc := g.racers[PlayerName]
	rc.CurrentItem = ItemRedShell
	g.racers["CPU_1"].Position = 50
	g.racers["CPU_2"].Position = 100

	act := rc.DecideAction(g.view())
	assert.Equal(t, ActionUseItem, act.Kind)
	assert.Equal(t, "CPU_1", act.Target)
}

func TestDecideRedShellHoldsWhenLeading(t *testing.T) {
	g := newTestRace(t, testConfig(3), 1)
	rc := g.racers[PlayerName]
	rc.CurrentItem = ItemRedShell
	rc.Position = 500

	act := rc.DecideAction(g.view())
	assert.Equal(t, ActionDrive, act.Kind)
}

func TestDecideBananaAgainstNemesisBehind(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	rc := g.racers[PlayerName]
	rc.Position = 100
	rc.CurrentItem = ItemBanana
	g.racers["CPU_1"].Position = 60
	rc.UpdateRelationship("CPU_1", -6)

	act := rc.DecideAction(g.view())
	assert.Equal(t, ActionUseItem, act.Kind)
}

func TestDecideBananaHoldsWithNobodyClose(t *testing.T) {
	g := newTestRace(t, testConfig(2), 1)
	rc := g.racers[PlayerName]
	rc.Position = 500
	rc.CurrentItem = ItemBanana
	// Nobody behind within range and not aggressive: never drops.
	act := rc.DecideAction(g.view())
	assert.Equal(t, ActionDrive, act.Kind)
}

func TestParseItem(t *testing.T) {
	for in, want := range map[string]Item{
		"boost":       ItemBoost,
		"Green_Shell": ItemGreenShell,
		"red shell":   ItemRedShell,
		"Banana":      ItemBanana,
		"red":         ItemRedShell,
	} {
		got, err := ParseItem(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseItem("mushroom")
	assert.ErrorIs(t, err, ErrUnknownItem)
}
