package linker

import (
	"sort"
	"time"

	"digestpipe/internal/domain"
)

// dedupLinks builds one StoryLink per item, then collapses links with an
// identical URL to a single entry. When duplicates disagree on tier, the
// lower (better) tier wins — consistent with tier's role as a primary-link
// ranking signal elsewhere in this package.
func dedupLinks(items []domain.Item) []domain.StoryLink {
	byURL := make(map[string]domain.StoryLink)
	var urls []string

	for _, item := range items {
		link := domain.StoryLink{
			URL:      item.URL,
			LinkType: inferLinkType(item),
			SourceID: item.SourceID,
			Tier:     item.Tier,
			Title:    item.Title,
		}
		existing, ok := byURL[link.URL]
		if !ok {
			byURL[link.URL] = link
			urls = append(urls, link.URL)
			continue
		}
		if link.Tier < existing.Tier {
			existing.Tier = link.Tier
			byURL[link.URL] = existing
		}
	}

	sort.Strings(urls)
	links := make([]domain.StoryLink, 0, len(urls))
	for _, u := range urls {
		links = append(links, byURL[u])
	}
	return links
}

// choosePrimaryLink ranks candidates by: position in PreferLinkOrder (links
// of an unlisted type rank last), then source tier ascending, then source ID
// alphabetically. links is never empty for a group built from at least one
// item.
func (l *Linker) choosePrimaryLink(links []domain.StoryLink) domain.StoryLink {
	rank := func(lt domain.LinkType) int {
		for i, t := range l.PreferLinkOrder {
			if t == lt {
				return i
			}
		}
		return len(l.PreferLinkOrder)
	}

	best := links[0]
	bestRank := rank(best.LinkType)
	for _, candidate := range links[1:] {
		candidateRank := rank(candidate.LinkType)
		switch {
		case candidateRank < bestRank:
			best, bestRank = candidate, candidateRank
		case candidateRank == bestRank && candidate.Tier < best.Tier:
			best, bestRank = candidate, candidateRank
		case candidateRank == bestRank && candidate.Tier == best.Tier && candidate.SourceID < best.SourceID:
			best, bestRank = candidate, candidateRank
		}
	}
	return best
}

// publishedAtForPrimary uses the published date from whichever raw item
// produced the primary link — the item the primary-link ranking already
// judged "best" for this story.
func publishedAtForPrimary(items []domain.Item, primary domain.StoryLink) *time.Time {
	for _, item := range items {
		if item.URL == primary.URL && item.SourceID == primary.SourceID {
			return item.PublishedAt
		}
	}
	return nil
}

func dedupSortedStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	sort.Strings(in)
	out := in[:0:0]
	var last string
	for i, s := range in {
		if i == 0 || s != last {
			out = append(out, s)
			last = s
		}
	}
	return out
}
