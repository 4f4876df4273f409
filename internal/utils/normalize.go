package utils

// CreateRankList builds 1-based ranks for an already sorted result list,
// the form the IPC clients expect alongside suggestion payloads.
func CreateRankList(count int) []uint16 {
	if count <= 0 {
		return []uint16{}
	}
	ranks := make([]uint16, count)
	for i := 0; i < count; i++ {
		ranks[i] = uint16(i + 1)
	}
	return ranks
}
