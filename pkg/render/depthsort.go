package render

// DepthSorter orders the splat index buffer by depth key, ascending, so
// indices[0] is the closest visible splat and sentinel-keyed entries
// land at the end. The sort is a collaborator of the pipeline, not part
// of it: the kernels only produce the (index, key) pairs.
type DepthSorter interface {
	Sort(indices []uint32, keys []uint16)
}

// CountingSorter is a stable counting sort over the 16-bit key domain.
// It runs in O(n + 2^16) with no comparisons, which beats comparison
// sorts for the splat counts scenes carry.
type CountingSorter struct {
	counts  [1 << DistancePrecision]uint32
	scratch []uint32
}

// NewCountingSorter returns a sorter with scratch space for n indices.
// The scratch grows on demand, so n is only a hint.
func NewCountingSorter(n int) *CountingSorter {
	return &CountingSorter{scratch: make([]uint32, n)}
}

// Sort reorders indices ascending by keys[index]. keys itself is left
// untouched; it stays addressed by splat id.
func (s *CountingSorter) Sort(indices []uint32, keys []uint16) {
	n := len(indices)
	if n < 2 {
		return
	}
	if cap(s.scratch) < n {
		s.scratch = make([]uint32, n)
	}
	out := s.scratch[:n]

	clear(s.counts[:])
	for _, id := range indices {
		s.counts[keys[id]]++
	}

	// Prefix sums turn counts into start offsets per key.
	var total uint32
	for key := range s.counts {
		count := s.counts[key]
		s.counts[key] = total
		total += count
	}

	for _, id := range indices {
		key := keys[id]
		out[s.counts[key]] = id
		s.counts[key]++
	}

	copy(indices, out)
}
