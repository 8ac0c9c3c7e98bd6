package dsg

import "sort"

// WordDiff is one differing word. Offset is in bytes from the region start.
type WordDiff struct {
	Offset int
	A, B   uint32
}

// RegionDiff describes how one region differs between two images. OnlyIn is
// "a" or "b" when the region exists in just one of them.
type RegionDiff struct {
	ID           RegionID
	OnlyIn       string
	SizeA, SizeB uint64
	UsedA, UsedB uint64
	Words        []WordDiff
}

// Diff compares the written words of every region in a and b and returns the
// regions that differ, in ascending id order.
func Diff(a, b *File) []RegionDiff {
	ids := make(map[RegionID]struct{})
	for _, r := range a.Regions {
		ids[r.ID] = struct{}{}
	}
	for _, r := range b.Regions {
		ids[r.ID] = struct{}{}
	}
	order := make([]RegionID, 0, len(ids))
	for id := range ids {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var out []RegionDiff
	for _, id := range order {
		ra, rb := a.Region(id), b.Region(id)
		switch {
		case ra == nil:
			out = append(out, RegionDiff{ID: id, OnlyIn: "b", SizeB: rb.Size, UsedB: rb.Used})
			continue
		case rb == nil:
			out = append(out, RegionDiff{ID: id, OnlyIn: "a", SizeA: ra.Size, UsedA: ra.Used})
			continue
		}
		d := RegionDiff{ID: id, SizeA: ra.Size, SizeB: rb.Size, UsedA: ra.Used, UsedB: rb.Used}
		wa, wb := a.Words(id), b.Words(id)
		for i := 0; i < max(len(wa), len(wb)); i++ {
			var va, vb uint32
			if i < len(wa) {
				va = wa[i]
			}
			if i < len(wb) {
				vb = wb[i]
			}
			if va != vb || i >= len(wa) || i >= len(wb) {
				d.Words = append(d.Words, WordDiff{Offset: i * BytesPerWord, A: va, B: vb})
			}
		}
		if d.SizeA != d.SizeB || d.UsedA != d.UsedB || len(d.Words) > 0 {
			out = append(out, d)
		}
	}
	return out
}
