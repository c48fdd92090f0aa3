package predict

// Tier is the source a candidate's points came from.
type Tier int

const (
	TierDictionary Tier = iota
	TierUnigram
	TierBigram
	TierTrigram
)

func (t Tier) String() string {
	switch t {
	case TierDictionary:
		return "dictionary"
	case TierUnigram:
		return "unigram"
	case TierBigram:
		return "bigram"
	case TierTrigram:
		return "trigram"
	default:
		return "unknown"
	}
}

// base points and per-use weight of each tier
var tierWeights = [...]struct{ base, perUse int }{
	TierDictionary: {10, 0},
	TierUnigram:    {50, 10},
	TierBigram:     {100, 20},
	TierTrigram:    {200, 30},
}

// TierScore returns the points a candidate earns from tier t with frequency freq.
// Dictionary points ignore freq.
func TierScore(t Tier, freq uint32) int {
	if t < TierDictionary || t > TierTrigram {
		return 0
	}
	w := tierWeights[t]
	return w.base + w.perUse*int(freq)
}

// tierForOrder maps an n-gram order to its tier.
func tierForOrder(n int) Tier {
	switch n {
	case 3:
		return TierTrigram
	case 2:
		return TierBigram
	default:
		return TierUnigram
	}
}

// Contribution records the points one tier added to a candidate.
type Contribution struct {
	Tier      Tier   `msgpack:"tier" json:"tier"`
	Frequency uint32 `msgpack:"freq" json:"freq"`
	Points    int    `msgpack:"points" json:"points"`
}

// Candidate is a ranked prediction.
type Candidate struct {
	Word    string         `msgpack:"w" json:"word"`
	Score   int            `msgpack:"s" json:"score"`
	Sources []Contribution `msgpack:"src,omitempty" json:"sources,omitempty"`
}

// From reports whether any of the candidate's points came from tier t.
func (c Candidate) From(t Tier) bool {
	for _, s := range c.Sources {
		if s.Tier == t {
			return true
		}
	}
	return false
}

// Words returns just the words of cs in order.
func Words(cs []Candidate) []string {
	if len(cs) == 0 {
		return nil
	}
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Word
	}
	return out
}
