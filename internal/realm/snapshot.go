// Collaborator snapshots — everything the engine reads from the wider game.
package realm

// Rank is the feudal title tier of a realm.
type Rank uint8

const (
	RankBarony Rank = iota
	RankCounty
	RankDuchy
	RankKingdom
	RankEmpire
)

var rankNames = [...]string{"barony", "county", "duchy", "kingdom", "empire"}

func (r Rank) String() string {
	if int(r) < len(rankNames) {
		return rankNames[r]
	}
	return "unknown"
}

// Government is the form of rule.
type Government uint8

const (
	GovTribal Government = iota
	GovNomadic
	GovFeudal
	GovTheocracy
	GovAbsoluteMonarchy
	GovRepublic
	GovMerchantRepublic
	GovImperial
	GovConstitutional
)

var governmentNames = [...]string{
	"tribal", "nomadic", "feudal", "theocracy", "absolute_monarchy",
	"republic", "merchant_republic", "imperial", "constitutional",
}

func (g Government) String() string {
	if int(g) < len(governmentNames) {
		return governmentNames[g]
	}
	return "unknown"
}

// Snapshot is a read-only view of a realm's material state.
type Snapshot struct {
	ID         ID         `json:"id"`
	Name       string     `json:"name"`
	Rank       Rank       `json:"rank"`
	Government Government `json:"government"`

	StandingArmy int `json:"standing_army"`
	Levies       int `json:"levies"`

	Treasury      float64 `json:"treasury"`
	MonthlyIncome float64 `json:"monthly_income"`
	TradeVolume   float64 `json:"trade_volume"`

	Provinces  int  `json:"provinces"`
	HasCapital bool `json:"has_capital"`

	Stability  float64 `json:"stability"`  // 0–1
	Legitimacy float64 `json:"legitimacy"` // 0–1

	// MilitaryMaintenance is the share of income spent on armies, 0–1.
	MilitaryMaintenance float64 `json:"military_maintenance"`

	Liege   ID   `json:"liege,omitempty"`
	Vassals []ID `json:"vassals,omitempty"`

	Ruler CharacterID `json:"ruler"`
}

// DynastySnapshot describes the ruling house of a realm.
type DynastySnapshot struct {
	ID          uint64  `json:"id"`
	Parent      uint64  `json:"parent,omitempty"` // non-zero for cadet branches
	Prestige    float64 `json:"prestige"`
	RealmsRuled int     `json:"realms_ruled"`
	Generations int     `json:"generations"`
}

// CharacterID identifies a ruler or courtier.
type CharacterID uint64

// TieKind is a personal or family bond between two characters.
type TieKind uint8

const (
	TieSpouse TieKind = iota
	TieSibling
	TieParentChild
	TieFriend
	TieBloodBrother
	TieRival
)

// Tie links a character of one realm to a character of another.
type Tie struct {
	Kind TieKind `json:"kind"`
	// Bond strength 0–100 (friendships and rivalries).
	Bond float64 `json:"bond"`
	// SpouseFromTarget is set when the spouse comes from the influenced realm.
	SpouseFromTarget bool `json:"spouse_from_target"`
	AllianceMarriage bool `json:"alliance_marriage"`
}

// FaithRelation is how closely two realms' faiths match.
type FaithRelation uint8

const (
	FaithDifferent FaithRelation = iota
	FaithSameGroup
	FaithSameDenomination
	FaithSame
)

// Realms gives access to realm snapshots.
type Realms interface {
	Realm(id ID) (Snapshot, bool)
	IDs() []ID
}

// Dynasties looks up the ruling dynasty of a realm.
type Dynasties interface {
	Dynasty(id ID) (DynastySnapshot, bool)
}

// Characters looks up character bonds between two realms' courts.
type Characters interface {
	Ties(from, to ID) []Tie
	Courtiers(id ID) []CharacterID
}

// Faiths compares the faiths of two realms.
type Faiths interface {
	CompareFaith(a, b ID) FaithRelation
}

// Geography answers province adjacency questions.
type Geography interface {
	Neighbors(id ID) []ID
	SharedBorders(a, b ID) int
}

// Collaborators bundles every query interface the engine needs from the outside world.
type Collaborators interface {
	Realms
	Dynasties
	Characters
	Faiths
	Geography
}
