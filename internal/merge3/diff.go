package merge3

// hunk is a single replaced region: base[baseStart:baseEnd) is replaced by
// lines, in base-line coordinates. A pure deletion has len(lines) == 0; a
// pure insertion has baseStart == baseEnd.
type hunk struct {
	baseStart, baseEnd int
	lines              []string
}

// lcsDiff computes an edit script turning base into other, expressed as a
// list of non-overlapping hunks in ascending base-index order, via a
// classic longest-common-subsequence alignment.
func lcsDiff(base, other []string) []hunk {
	n, m := len(base), len(other)
	dp := make([][]int32, n+1)
	for i := range dp {
		dp[i] = make([]int32, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if base[i] == other[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}

	var hunks []hunk
	i, j := 0, 0
	hStart := 0
	var pending []string

	flush := func(bEnd int) {
		if hStart < bEnd || len(pending) > 0 {
			lines := make([]string, len(pending))
			copy(lines, pending)
			hunks = append(hunks, hunk{baseStart: hStart, baseEnd: bEnd, lines: lines})
		}
		pending = nil
	}

	for i < n && j < m {
		if base[i] == other[j] {
			flush(i)
			i++
			j++
			hStart = i
		} else if dp[i+1][j] >= dp[i][j+1] {
			i++
		} else {
			pending = append(pending, other[j])
			j++
		}
	}
	for i < n {
		i++
	}
	for j < m {
		pending = append(pending, other[j])
		j++
	}
	flush(n)

	return hunks
}
