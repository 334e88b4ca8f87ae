package race

import (
	"fmt"
	"strings"
)

// Item is one of the four pickups a racer can hold. The zero value means an
// empty slot.
type Item string

const (
	ItemBoost      Item = "Boost"
	ItemGreenShell Item = "Green Shell"
	ItemRedShell   Item = "Red Shell"
	ItemBanana     Item = "Banana"
)

var allItems = []Item{ItemBoost, ItemGreenShell, ItemRedShell, ItemBanana}

// Offensive reports whether using the item counts as an attack for trait
// bookkeeping.
func (it Item) Offensive() bool {
	return it == ItemGreenShell || it == ItemRedShell
}

// ParseItem accepts console spellings such as "banana", "red_shell" or
// "Green Shell".
func ParseItem(s string) (Item, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	if want == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownItem)
	}
	for _, it := range allItems {
		name := strings.ReplaceAll(strings.ToLower(string(it)), " ", "_")
		if strings.Contains(name, strings.ReplaceAll(want, " ", "_")) {
			return it, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownItem, s)
}

// Trait is a behavioral modifier earned from accumulated race events.
type Trait string

const (
	TraitAggressive    Trait = "Aggressive"
	TraitShellShocked  Trait = "Shell-Shocked"
	TraitTargetFixated Trait = "Target Fixated"
)

// Obstacle is a dropped item sitting on the track. Bananas are the only kind
// for now.
type Obstacle struct {
	Kind     Item
	Position float64
	Owner    string
}

// shellShockedPenaltyMult scales the hit penalty for Shell-Shocked racers.
const shellShockedPenaltyMult = 1.5

// Banana drop heuristics: how close behind counts as a threat, and the drop
// chances for threatened and aggressive racers.
const (
	bananaThreatRange      = 50.0
	bananaDropChance       = 0.7
	bananaAggressiveChance = 0.3
)
