// Copyright 2026 The Watchtower Authors
// SPDX-License-Identifier: Apache-2.0

package presence

// Feed is the bounded on-screen presence list, ordered most recent
// arrival first. It never holds more than its display limit: an
// insertion into a full feed evicts the last (oldest) item, and that
// insert-then-truncate rule is the only way anything ever leaves the
// feed between loads. A participant who departed the realm therefore
// lingers until enough arrivals push them off the bottom — eviction
// is lazy and eventual, bounded by churn and the limit, never an
// immediate splice driven by the removed set.
//
// Feed is a plain data structure owned by a single Synchronizer and
// is not safe for concurrent use on its own; the Synchronizer
// serializes all access and hands copies outward.
type Feed struct {
	limit int
	items []Sighting
}

// NewFeed returns an empty feed holding at most limit sightings.
// Panics when limit is not positive.
func NewFeed(limit int) *Feed {
	if limit <= 0 {
		panic("presence: feed limit must be positive")
	}
	return &Feed{
		limit: limit,
		items: make([]Sighting, 0, limit),
	}
}

// Limit returns the display limit the feed was created with.
func (feed *Feed) Limit() int { return feed.limit }

// Len returns the number of sightings currently in the feed.
func (feed *Feed) Len() int { return len(feed.items) }

// Items returns a copy of the feed contents, most recent arrival
// first.
func (feed *Feed) Items() []Sighting {
	items := make([]Sighting, len(feed.items))
	copy(items, feed.items)
	return items
}

// Insert places a sighting at the top of the feed. Any existing item
// with the same identity is removed first, so a participant who left
// and rejoined moves to the top instead of appearing twice. When the
// feed then exceeds its limit, the bottom item is dropped.
func (feed *Feed) Insert(sighting Sighting) {
	kept := feed.items[:0]
	for _, existing := range feed.items {
		if existing.Identity != sighting.Identity {
			kept = append(kept, existing)
		}
	}
	feed.items = kept

	feed.items = append(feed.items, Sighting{})
	copy(feed.items[1:], feed.items)
	feed.items[0] = sighting

	if len(feed.items) > feed.limit {
		feed.items = feed.items[:feed.limit]
	}
}

// Replace discards the current contents and fills the feed with up to
// limit sightings from the given list, preserving its order. Used for
// the initial bulk load, where trickling every row in would animate
// an arrival burst the user never witnessed.
func (feed *Feed) Replace(sightings []Sighting) {
	count := len(sightings)
	if count > feed.limit {
		count = feed.limit
	}
	feed.items = feed.items[:0]
	feed.items = append(feed.items, sightings[:count]...)
}

// Clear empties the feed. Used when access to the realm is revoked
// and the locked state replaces the list.
func (feed *Feed) Clear() {
	feed.items = feed.items[:0]
}
