package fuota

import (
	"sort"

	"github.com/rfmesh/hes/internal/pathbook"
)

// Leaves returns every node in book whose own hop-address is never used as
// an intermediate hop in another node's primary route, excluding target —
// the §4.6 NetworkSilence enumeration rule and Testable Property #8.
func Leaves(book *pathbook.Book, target string) []string {
	usedAsIntermediate := make(map[[4]byte]bool)
	for _, mac := range book.Nodes() {
		info, ok := book.Primary(mac)
		if !ok || len(info.Hops) == 0 {
			continue
		}
		for _, hop := range info.Hops[:len(info.Hops)-1] {
			usedAsIntermediate[hop] = true
		}
	}

	var leaves []string
	for _, mac := range book.Nodes() {
		if mac == target {
			continue
		}
		info, ok := book.Primary(mac)
		if !ok || len(info.Hops) == 0 {
			continue
		}
		self := info.Hops[len(info.Hops)-1]
		if !usedAsIntermediate[self] {
			leaves = append(leaves, mac)
		}
	}
	sort.Strings(leaves)
	return leaves
}
