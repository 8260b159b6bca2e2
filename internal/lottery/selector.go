package lottery

// Selection is the result of picking winners from a ledger snapshot.
// Indexes refer to positions in the snapshot.
type Selection struct {
	MainIndex    int
	MinorIndexes []int
	Main         Identity
	Minor        []Identity
}

// Winners converts the selection into pending payout recipients
func (sel Selection) Winners() Winners {
	w := Winners{Main: sel.Main}
	if len(sel.Minor) > 0 {
		w.Minor = append([]Identity(nil), sel.Minor...)
	}
	return w
}

// SelectMain picks the main winner with probability proportional to ticket
// share: r = seed mod total, and the first row whose running ticket sum
// exceeds r wins. ok is false when total is zero or does not cover r.
func SelectMain(seed uint64, snapshot []Weight, total uint64) (index int, ok bool) {
	if total == 0 {
		return 0, false
	}
	r := seed % total
	var acc uint64
	for i, w := range snapshot {
		acc += w.Tickets
		if acc > r {
			return i, true
		}
	}
	return 0, false
}

// SelectMinor picks up to max distinct indexes in [0, n) excluding main.
// Unlike the main draw it is uniform over the remaining participants, not
// ticket weighted. It stops early when no eligible index remains.
func SelectMinor(seed uint64, n, main, max int) []int {
	chosen := make(map[int]bool, max)
	var picks []int

	s := seed * 7
	eligible := make([]int, 0, n)
	for len(picks) < max {
		eligible = eligible[:0]
		for i := 0; i < n; i++ {
			if i == main || chosen[i] {
				continue
			}
			eligible = append(eligible, i)
		}
		if len(eligible) == 0 {
			break
		}
		pick := eligible[s%uint64(len(eligible))]
		chosen[pick] = true
		picks = append(picks, pick)
		s = s*13 + 1
	}
	return picks
}

// Select runs the main and minor selection over snapshot.
func Select(seed uint64, snapshot []Weight, total uint64) (Selection, error) {
	if len(snapshot) == 0 || total == 0 {
		return Selection{}, ErrNotEnoughParticipants
	}
	main, ok := SelectMain(seed, snapshot, total)
	if !ok {
		return Selection{}, invalidConfigf("ledger total %d does not cover the snapshot", total)
	}

	sel := Selection{
		MainIndex:    main,
		Main:         snapshot[main].Participant,
		MinorIndexes: SelectMinor(seed, len(snapshot), main, MaxMinorWinners),
	}
	for _, i := range sel.MinorIndexes {
		sel.Minor = append(sel.Minor, snapshot[i].Participant)
	}
	return sel, nil
}
