package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/frontline-missions/internal/types"
)

func TestVictoryChance(t *testing.T) {
	// Setup
	resolver := NewCombatResolver(DefaultTables())
	sniper := types.Player{Class: types.ClassSniper, Weapon: "Sniper Rifle", Health: 100, MaxHealth: 100}

	// Test case 1: Strong loadout on an easy mission hits the ceiling
	assert.Equal(t, MaxVictoryChance, resolver.VictoryChance(sniper, "Advance cautiously", types.DifficultyEasy))

	// Test case 2: Health scales effectiveness before the modifiers
	rifleman := types.Player{Class: types.ClassRifleman, Weapon: "Rifle", Health: 50, MaxHealth: 100}
	assert.Equal(t, 30, resolver.VictoryChance(rifleman, "Attack the bunker", types.DifficultyHard))

	// Test case 3: Neutral action on a medium mission
	rifleman.Health = 100
	assert.Equal(t, 70, resolver.VictoryChance(rifleman, "Look around", types.DifficultyMedium))

	// Test case 4: Hopeless odds hit the floor
	rifleman.Health = 0
	assert.Equal(t, MinVictoryChance, resolver.VictoryChance(rifleman, "Fall back", types.DifficultyHard))
}

func TestVictoryChanceStaysClamped(t *testing.T) {
	// Setup
	tables, err := ParseTables(tablesYAML)
	require.NoError(t, err)
	tables.ClassBonuses["Sniper"] = 5000
	tables.DifficultyModifiers["Hard"] = -5000
	resolver := NewCombatResolver(tables)

	player := types.Player{Class: types.ClassSniper, Weapon: "Rifle", Health: 100, MaxHealth: 100}
	for _, d := range []types.Difficulty{types.DifficultyEasy, types.DifficultyMedium, types.DifficultyHard} {
		for _, action := range []string{"Retreat", "Advance", "Hold position", "Look around"} {
			chance := resolver.VictoryChance(player, action, d)
			assert.GreaterOrEqual(t, chance, MinVictoryChance)
			assert.LessOrEqual(t, chance, MaxVictoryChance)
		}
	}
}

func TestResolve(t *testing.T) {
	// Setup
	resolver := NewCombatResolver(nil)
	player := types.Player{Class: types.ClassGunner, Weapon: "LMG", Health: 100, MaxHealth: 100}

	// Test case 1: A low draw wins with the smallest costs
	result := resolver.Resolve(player, "Engage the gunners", types.DifficultyMedium, constRandom(0))
	assert.True(t, result.Victory)
	assert.Equal(t, 0, result.Damage)
	assert.Equal(t, 1, result.AmmoUsed)
	assert.Equal(t, 90, result.VictoryChance)

	// Test case 2: A high draw loses with the largest costs
	result = resolver.Resolve(player, "Engage the gunners", types.DifficultyMedium, constRandom(99))
	assert.False(t, result.Victory)
	assert.Equal(t, 30, result.Damage)
	assert.Equal(t, 5, result.AmmoUsed)

	// Test case 3: Seeded sources give identical outcomes
	for i := 0; i < 20; i++ {
		a := resolver.Resolve(player, "Attack", types.DifficultyHard, NewSeededDiceRoller(int64(i)))
		b := resolver.Resolve(player, "Attack", types.DifficultyHard, NewSeededDiceRoller(int64(i)))
		assert.Equal(t, a, b)
		if a.Victory {
			assert.LessOrEqual(t, a.Damage, 15)
			assert.GreaterOrEqual(t, a.AmmoUsed, 1)
			assert.LessOrEqual(t, a.AmmoUsed, 3)
		} else {
			assert.GreaterOrEqual(t, a.Damage, 10)
			assert.LessOrEqual(t, a.Damage, 30)
			assert.GreaterOrEqual(t, a.AmmoUsed, 2)
			assert.LessOrEqual(t, a.AmmoUsed, 5)
		}
	}
}

func TestGenerateEncounter(t *testing.T) {
	// Setup
	player := types.Player{Class: types.ClassSniper, Weapon: "Sniper Rifle", Health: 100, MaxHealth: 100}
	mission := types.Mission{Name: "Bridge Sabotage at Orne", Difficulty: types.DifficultyEasy}

	// Test case 1: Environment, size and advantages follow the mission
	encounter := GenerateEncounter(player, mission, "Advance cautiously", constRandom(0))
	assert.Equal(t, "open_field", encounter.Environment)
	require.Len(t, encounter.Enemies, 2)
	assert.Equal(t, "German Soldier", encounter.Enemies[0].Type)
	assert.Equal(t, "enemy_1", encounter.Enemies[0].ID)
	assert.Equal(t, "in a crater", encounter.Enemies[0].Position)
	assert.Equal(t, []string{"Long range training provides accuracy bonus"}, encounter.PlayerAdvantages)
	assert.Equal(t, "Limited natural cover available", encounter.EnvironmentalEffects["cover"])
	assert.Equal(t, "Advance cautiously", encounter.Action)

	// Test case 2: Hard missions field larger forces
	mission.Difficulty = types.DifficultyHard
	encounter = GenerateEncounter(player, mission, "Attack", constRandom(99))
	assert.Len(t, encounter.Enemies, 6)
	for _, e := range encounter.Enemies {
		assert.Equal(t, e.MaxHealth, e.Health)
	}

	// Test case 3: Medics have an advantage anywhere
	medic := types.Player{Class: types.ClassMedic}
	encounter = GenerateEncounter(medic, types.Mission{Name: "Crossing the Rhine"}, "Attack", constRandom(0))
	assert.Equal(t, []string{"Medical training allows squad healing during combat"}, encounter.PlayerAdvantages)
}

func TestEnvironmentFor(t *testing.T) {
	assert.Equal(t, "urban", EnvironmentFor("Raid on the Village"))
	assert.Equal(t, "open_field", EnvironmentFor("Bridge Sabotage at Orne"))
	assert.Equal(t, "bunker", EnvironmentFor("Bunker Assault"))
	assert.Equal(t, "open_field", EnvironmentFor("Omaha Beach Landing"))
	assert.Equal(t, "forest", EnvironmentFor("Battle of the Bulge"))
}
