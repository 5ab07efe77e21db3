// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package quality

import (
	"math"
	"slices"
)

// SourcedTotal returns the sum of all tagged source counts.
func (q *Quality) SourcedTotal() int {
	total := 0
	for _, s := range q.Sources {
		total += s.Count
	}
	return total
}

// Unsourced returns the implicit untagged bucket: level not attributed to any tag.
func (q *Quality) Unsourced() int {
	if n := q.Level - q.SourcedTotal(); n > 0 {
		return n
	}
	return 0
}

// SourceCount returns how many units carry the given tag.
func (q *Quality) SourceCount(tag string) int {
	for _, s := range q.Sources {
		if s.Tag == tag {
			return s.Count
		}
	}
	return 0
}

// LatestSource returns the most recently added source tag.
func (q *Quality) LatestSource() (string, bool) {
	if len(q.Sources) == 0 {
		return "", false
	}
	return q.Sources[len(q.Sources)-1].Tag, true
}

// ConsumeLatestSource removes the most recently added source entry and
// returns its tag. The entry's units move to the untagged bucket, so the
// level is unchanged.
func (q *Quality) ConsumeLatestSource() (string, bool) {
	tag, ok := q.LatestSource()
	if !ok {
		return "", false
	}
	q.Sources = q.Sources[:len(q.Sources)-1]
	return tag, true
}

// AddSourced increases the level by n and credits n units to tag. An
// existing entry for the tag is merged and becomes the most recent.
func (q *Quality) AddSourced(tag string, n int) {
	if q.Level > 0 && n > math.MaxInt-q.Level {
		n = math.MaxInt - q.Level
	}
	if n <= 0 {
		return
	}
	q.Level += n
	if tag == "" {
		return
	}
	for i, s := range q.Sources {
		if s.Tag == tag {
			s.Count += n
			q.Sources = append(slices.Delete(q.Sources, i, i+1), s)
			return
		}
	}
	q.Sources = append(q.Sources, Source{Tag: tag, Count: n})
}

// Spend decreases the level by n, keeping tagged sources consistent.
// Units come from tag first (when given), then the untagged bucket, then
// the remaining sources are pruned: duplicates first, unique tags last.
// Unsigned types never drop below zero. It returns the units actually spent.
func (q *Quality) Spend(n int, tag string) int {
	if n <= 0 {
		return 0
	}
	if q.Type.Unsigned() && n > q.Level {
		n = q.Level
	}
	q.Level -= n
	remaining := n

	if tag != "" {
		for i := range q.Sources {
			if q.Sources[i].Tag != tag {
				continue
			}
			take := min(q.Sources[i].Count, remaining)
			q.Sources[i].Count -= take
			remaining -= take
			if q.Sources[i].Count == 0 {
				q.Sources = slices.Delete(q.Sources, i, i+1)
			}
			break
		}
	}

	// The untagged bucket is whatever the sources exceed the new level by,
	// measured before this spend.
	unsourced := q.Level + remaining - q.SourcedTotal()
	if unsourced > 0 {
		remaining -= min(unsourced, remaining)
	}
	if remaining > 0 {
		q.Sources = Prune(q.Sources, remaining)
	}
	if q.Level < 0 && len(q.Sources) > 0 {
		q.Sources = nil
	}
	return n
}

// Prune removes n units from sources and returns the result. Duplicate
// groups are drained first: the entry with the highest count (oldest
// wins ties) is reduced to a single unit before the next is touched.
// Once every entry is singular, entries are removed oldest-first.
// The input slice is not modified.
func Prune(sources []Source, n int) []Source {
	out := slices.Clone(sources)
	for n > 0 {
		idx := -1
		for i, s := range out {
			if s.Count > 1 && (idx < 0 || s.Count > out[idx].Count) {
				idx = i
			}
		}
		if idx < 0 {
			break
		}
		take := min(out[idx].Count-1, n)
		out[idx].Count -= take
		n -= take
	}
	for n > 0 && len(out) > 0 {
		out[0].Count--
		if out[0].Count <= 0 {
			out = out[1:]
		}
		n--
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
