package utils

// CreateRankList returns ranks 1..count for an already sorted list.
// Ranks saturate at the uint16 maximum.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := range ranks {
		ranks[i] = uint16(min(i+1, 65535))
	}
	return ranks
}
