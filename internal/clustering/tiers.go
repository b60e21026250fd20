package clustering

import "sort"

// findTitleClusters unions candidates whose normalized titles match exactly.
// Each title group keeps one representative per GUID (the same article via
// branched feed copies is one member, not two) and only forms a cluster when
// the representatives span at least two distinct resolved feeds.
func findTitleClusters(cands []candidate, uf *unionFind) {
	byTitle := make(map[string][]int)
	for i, c := range cands {
		if len(c.title) < TitleMinLength {
			continue
		}
		byTitle[c.title] = append(byTitle[c.title], i)
	}

	for _, group := range byTitle {
		if len(group) < 2 {
			continue
		}
		repByGUID := make(map[string]int, len(group))
		var reps []int
		for _, i := range group {
			if _, seen := repByGUID[cands[i].guid]; !seen {
				repByGUID[cands[i].guid] = i
				reps = append(reps, i)
			}
		}
		feeds := make(map[int64]bool, len(reps))
		for _, i := range reps {
			feeds[cands[i].resolvedFeed] = true
		}
		if len(feeds) < 2 {
			continue
		}
		for _, i := range reps[1:] {
			uf.union(reps[0], i)
		}
	}
}

// findFuzzyClusters unions candidates whose significant-word sets overlap
// with Jaccard similarity of at least FuzzyJaccardMin. Candidates need at
// least FuzzyMinWords significant words; words appearing in more than
// MaxWordPostings candidates are too common to index. Pairs from the same
// resolved feed or sharing a GUID never match.
func findFuzzyClusters(cands []candidate, uf *unionFind) {
	index := make(map[string][]int)
	for i, c := range cands {
		if len(c.words) < FuzzyMinWords {
			continue
		}
		for _, w := range c.words {
			index[w] = append(index[w], i)
		}
	}

	compared := make(map[[2]int]bool)
	for _, postings := range index {
		if len(postings) < 2 || len(postings) > MaxWordPostings {
			continue
		}
		for x := 0; x < len(postings); x++ {
			for y := x + 1; y < len(postings); y++ {
				a, b := postings[x], postings[y]
				if a > b {
					a, b = b, a
				}
				pair := [2]int{a, b}
				if compared[pair] {
					continue
				}
				compared[pair] = true

				ca, cb := cands[a], cands[b]
				if ca.resolvedFeed == cb.resolvedFeed || ca.guid == cb.guid {
					continue
				}
				if jaccard(ca.words, cb.words) >= FuzzyJaccardMin {
					uf.union(a, b)
				}
			}
		}
	}
}

func jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, w := range a {
		set[w] = true
	}
	intersection := 0
	for _, w := range b {
		if set[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// validateClusters turns union-find components into clusters. A component
// must span at least two unique GUIDs and two distinct resolved feeds.
// Members sort oldest first; the oldest member's hash becomes the cluster
// id; oversized clusters truncate to MaxClusterSize.
func validateClusters(cands []candidate, uf *unionFind) []Cluster {
	var clusters []Cluster
	for _, members := range uf.components() {
		guids := make(map[string]bool, len(members))
		feeds := make(map[int64]bool, len(members))
		for _, i := range members {
			guids[cands[i].guid] = true
			feeds[cands[i].resolvedFeed] = true
		}
		if len(guids) < 2 || len(feeds) < 2 {
			continue
		}

		sort.Slice(members, func(x, y int) bool {
			a, b := cands[members[x]].story, cands[members[y]].story
			if !a.Date.Equal(b.Date) {
				return a.Date.Before(b.Date)
			}
			return a.StoryHash < b.StoryHash
		})
		if len(members) > MaxClusterSize {
			members = members[:MaxClusterSize]
		}

		cluster := Cluster{ID: cands[members[0]].story.StoryHash}
		for _, i := range members {
			cluster.Members = append(cluster.Members, cands[i].story)
		}
		clusters = append(clusters, cluster)
	}

	sort.Slice(clusters, func(i, j int) bool { return clusters[i].ID < clusters[j].ID })
	return clusters
}
