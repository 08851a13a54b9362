package transform

// maxAlignCells bounds the size of the table used to align the changed
// middle of two texts. Larger changes are mapped as a single chunk.
const maxAlignCells = 1 << 20

// TextDiff returns a map from rune positions in a to rune positions in b.
// The common prefix and suffix are kept in place and the runes in between
// are aligned on their longest common subsequence, so that the characters
// which survive a change keep their positions.
func TextDiff(a, b string) *StepMap {
	if a == b {
		return EmptyStepMap
	}
	ra, rb := []rune(a), []rune(b)
	start := diffStart(ra, rb)
	endA, endB := diffEnd(ra, rb, start)
	midA, midB := ra[start:endA], rb[start:endB]
	if len(midA) == 0 || len(midB) == 0 || len(midA)*len(midB) > maxAlignCells {
		return NewStepMap([]int{start, len(midA), len(midB)})
	}
	return NewStepMap(align(midA, midB, start))
}

// diffStart returns the length of the common prefix of a and b.
func diffStart(a, b []rune) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

// diffEnd returns the ends of the differing parts of a and b, scanning back
// from their ends without crossing start.
func diffEnd(a, b []rune, start int) (int, int) {
	ea, eb := len(a), len(b)
	for ea > start && eb > start && a[ea-1] == b[eb-1] {
		ea--
		eb--
	}
	return ea, eb
}

// align computes the changed chunks between a and b from their longest
// common subsequence. Chunk starts are offset by base.
func align(a, b []rune, base int) []int {
	n, m := len(a), len(b)
	// lcs[i*(m+1)+j] is the length of the LCS of a[i:] and b[j:].
	lcs := make([]int32, (n+1)*(m+1))
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			switch {
			case a[i] == b[j]:
				lcs[i*(m+1)+j] = lcs[(i+1)*(m+1)+j+1] + 1
			case lcs[(i+1)*(m+1)+j] >= lcs[i*(m+1)+j+1]:
				lcs[i*(m+1)+j] = lcs[(i+1)*(m+1)+j]
			default:
				lcs[i*(m+1)+j] = lcs[i*(m+1)+j+1]
			}
		}
	}

	var ranges []int
	i, j := 0, 0
	chunkA, chunkB := 0, 0
	flush := func() {
		if i > chunkA || j > chunkB {
			ranges = append(ranges, base+chunkA, i-chunkA, j-chunkB)
		}
	}
	for i < n && j < m {
		switch {
		case a[i] == b[j]:
			flush()
			i++
			j++
			chunkA, chunkB = i, j
		case lcs[(i+1)*(m+1)+j] >= lcs[i*(m+1)+j+1]:
			i++
		default:
			j++
		}
	}
	i, j = n, m
	flush()
	return ranges
}
