package drop

// Rarity tiers in ascending order. The stored form is the lowercase name;
// the catalog and inventory snapshots both use it.
const (
	RarityCommon    = "common"
	RarityUncommon  = "uncommon"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
	RarityImmortal  = "immortal"
	RarityMythical  = "mythical"
	RarityArcane    = "arcane"
	RarityUltimate  = "ultimate"
)

// Rarities lists all tiers from most to least common.
var Rarities = []string{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RarityImmortal,
	RarityMythical,
	RarityArcane,
	RarityUltimate,
}

var rarityRank = func() map[string]int {
	m := make(map[string]int, len(Rarities))
	for i, r := range Rarities {
		m[r] = i
	}
	return m
}()

// ValidRarity reports whether s names a known tier.
func ValidRarity(s string) bool {
	_, ok := rarityRank[s]
	return ok
}

// RarityRank returns the tier's position in the common→ultimate order,
// -1 for unknown tiers.
func RarityRank(s string) int {
	if r, ok := rarityRank[s]; ok {
		return r
	}
	return -1
}
