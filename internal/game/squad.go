package game

import (
	"fmt"
	"strings"

	"github.com/user/frontline-missions/internal/interfaces"
	"github.com/user/frontline-missions/internal/types"
)

var squadSizes = map[string]int{
	"private":    2,
	"corporal":   3,
	"sergeant":   4,
	"lieutenant": 5,
	"captain":    6,
}

var squadTemplates = []struct {
	role, speciality, weapon string
}{
	{"Rifleman", "assault", "M1 Garand"},
	{"Gunner", "support", "BAR"},
	{"Medic", "medical", "Carbine"},
	{"Demolitions", "explosives", "SMG"},
	{"Radioman", "communications", "Carbine"},
	{"Scout", "reconnaissance", "SMG"},
}

// SquadSize returns how many soldiers a rank commands
func SquadSize(rank string) int {
	if n, ok := squadSizes[strings.ToLower(rank)]; ok {
		return n
	}
	return 2
}

// GenerateSquad builds the squad a player of the given rank leads
func GenerateSquad(rank string, rng Random) []types.SquadMember {
	size := SquadSize(rank)
	squad := make([]types.SquadMember, 0, size)
	for i := 0; i < size; i++ {
		tmpl := squadTemplates[rng.Intn(len(squadTemplates))]
		squad = append(squad, types.SquadMember{
			ID:         fmt.Sprintf("squad_%d", i+1),
			Name:       fmt.Sprintf("Pvt. %c", 'A'+i),
			Speciality: tmpl.speciality,
			Weapon:     tmpl.weapon,
			Health:     between(rng, 80, 100),
			MaxHealth:  100,
			Ammo:       between(rng, 20, 30),
			Orders:     "follow",
			Experience: between(rng, 1, 3),
		})
	}
	return squad
}

// DefaultResources returns the loadout issued to a new character
func DefaultResources() types.Resources {
	return types.Resources{
		Ammo:       12,
		Medkits:    2,
		Explosives: 2,
		Intel:      0,
	}
}

// ValidClass reports whether name is a playable class, ignoring case
func ValidClass(name string) (types.CharacterClass, bool) {
	for _, c := range types.Classes {
		if strings.EqualFold(string(c), name) {
			return c, true
		}
	}
	return "", false
}

// ValidRank reports whether name is a known rank, ignoring case
func ValidRank(name string) (string, bool) {
	return matchFold(types.Ranks, name)
}

// ValidWeapon reports whether name is a known weapon, ignoring case
func ValidWeapon(name string) (string, bool) {
	return matchFold(types.Weapons, name)
}

func matchFold(options []string, name string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(o, strings.TrimSpace(name)) {
			return o, true
		}
	}
	return "", false
}

// ParseEnlist reads "<name...> <class> [rank] [weapon...]" into a character request.
// The name is everything before the first class word after the first field.
func ParseEnlist(args []string) (interfaces.CharacterRequest, bool) {
	classAt := -1
	for i := 1; i < len(args); i++ {
		if _, ok := ValidClass(args[i]); ok {
			classAt = i
			break
		}
	}
	if classAt < 1 {
		return interfaces.CharacterRequest{}, false
	}

	req := interfaces.CharacterRequest{
		Name:  strings.Join(args[:classAt], " "),
		Class: args[classAt],
	}
	rest := args[classAt+1:]
	if len(rest) > 0 {
		if _, ok := ValidRank(rest[0]); ok {
			req.Rank = rest[0]
			rest = rest[1:]
		}
	}
	if len(rest) > 0 {
		req.Weapon = strings.Join(rest, " ")
	}
	return req, true
}
