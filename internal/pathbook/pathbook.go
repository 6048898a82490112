// Package pathbook provides primary and alternate mesh routes to a given
// target MAC for a given gateway, backed by a read-through cache populated
// from the store at the start of each pull cycle.
package pathbook

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/rfmesh/hes/internal/store"
)

// PathInfo is an immutable route to a node for the duration of one cycle.
type PathInfo struct {
	HopCount int
	Hops     [][4]byte // one 4-byte group per hop (one group when hop-count is 0), gateway prefix already stripped
}

// Book holds every node's primary and ranked alternate routes for one
// gateway, loaded once per cycle.
type Book struct {
	gatewayID  string
	primary    map[string]PathInfo   // mac -> primary route
	alternates map[string][]PathInfo // mac -> ordered alternates
}

// Load populates all (mac -> PathInfo) entries for non-disconnected nodes
// from the store.
func Load(ctx context.Context, routes store.RouteStore, gatewayID string) (*Book, error) {
	primaryRows, err := routes.LoadPrimaryRoutes(ctx, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("pathbook: load primary routes: %w", err)
	}
	alternateRows, err := routes.LoadAlternateRoutes(ctx, gatewayID)
	if err != nil {
		return nil, fmt.Errorf("pathbook: load alternate routes: %w", err)
	}

	book := &Book{
		gatewayID:  gatewayID,
		primary:    make(map[string]PathInfo, len(primaryRows)),
		alternates: make(map[string][]PathInfo),
	}

	for _, row := range primaryRows {
		info, err := extract(row.HopCount, row.PathHex)
		if err != nil {
			return nil, fmt.Errorf("pathbook: mac %s: %w", row.MAC, err)
		}
		book.primary[row.MAC] = info
	}

	byMAC := make(map[string][]store.NodeRoute)
	for _, row := range alternateRows {
		byMAC[row.MAC] = append(byMAC[row.MAC], row)
	}
	for mac, rows := range byMAC {
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].HopCount != rows[j].HopCount {
				return rows[i].HopCount < rows[j].HopCount
			}
			return rows[i].Ordinal < rows[j].Ordinal
		})
		infos := make([]PathInfo, 0, len(rows))
		for _, row := range rows {
			info, err := extract(row.HopCount, row.PathHex)
			if err != nil {
				return nil, fmt.Errorf("pathbook: mac %s alternate %d: %w", mac, row.Ordinal, err)
			}
			infos = append(infos, info)
		}
		book.alternates[mac] = infos
	}

	return book, nil
}

// extract decodes a stored hex path into hop groups, stripping the 4-byte
// gateway prefix per the engine's path-book invariant.
func extract(hopCount int, pathHex string) (PathInfo, error) {
	raw, err := hex.DecodeString(pathHex)
	if err != nil {
		return PathInfo{}, fmt.Errorf("invalid hex path: %w", err)
	}
	if len(raw) < 4 {
		return PathInfo{}, fmt.Errorf("path too short to strip gateway prefix: %d bytes", len(raw))
	}
	stripped := raw[4:]

	wantLen := hopCount * 4
	if hopCount < 1 {
		wantLen = 4
	}
	if len(stripped) != wantLen {
		return PathInfo{}, fmt.Errorf("hop list length %d does not match hop-count %d (want %d)", len(stripped), hopCount, wantLen)
	}

	hops := make([][4]byte, 0, len(stripped)/4)
	for i := 0; i+4 <= len(stripped); i += 4 {
		var group [4]byte
		copy(group[:], stripped[i:i+4])
		hops = append(hops, group)
	}

	return PathInfo{HopCount: hopCount, Hops: hops}, nil
}

// Nodes returns every MAC known to the book, sorted by MAC.
func (b *Book) Nodes() []string {
	macs := make([]string, 0, len(b.primary))
	for mac := range b.primary {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	return macs
}

// Primary returns mac's primary route.
func (b *Book) Primary(mac string) (PathInfo, bool) {
	info, ok := b.primary[mac]
	return info, ok
}

// Alternates returns mac's ranked alternates, ordered by hop-count
// ascending. When rotating after a failure at a known hop-count, the
// caller should prefer the first alternate matching that hop-count —
// ForHopCount implements that preference directly.
func (b *Book) Alternates(mac string) []PathInfo {
	return b.alternates[mac]
}

// ForHopCount returns mac's alternates reordered to prefer routes with the
// given hop-count first, preserving relative order otherwise.
func ForHopCount(alternates []PathInfo, hopCount int) []PathInfo {
	ordered := make([]PathInfo, 0, len(alternates))
	var rest []PathInfo
	for _, alt := range alternates {
		if alt.HopCount == hopCount {
			ordered = append(ordered, alt)
		} else {
			rest = append(rest, alt)
		}
	}
	return append(ordered, rest...)
}
