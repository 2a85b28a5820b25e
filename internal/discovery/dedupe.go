package discovery

import (
	"sort"
	"strings"

	"launch-radar/internal/domain"
)

// DedupeAssets removes repeated (chain, address) pairs, case-insensitively
// on the address. The first occurrence wins, so callers append
// higher-priority strategy output first. The same contract address can
// exist on several EVM chains, hence the chain in the key.
func DedupeAssets(assets []*domain.Asset) []*domain.Asset {
	seen := make(map[string]bool, len(assets))
	out := make([]*domain.Asset, 0, len(assets))
	for _, a := range assets {
		key := string(a.Chain) + "|" + strings.ToLower(a.Address)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

// SortAssetsByLaunch orders assets most recently launched first.
func SortAssetsByLaunch(assets []*domain.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		return assets[i].LaunchedAt > assets[j].LaunchedAt
	})
}

// DedupeNews removes items sharing a normalized title, keeping the first.
func DedupeNews(items []*domain.NewsItem) []*domain.NewsItem {
	seen := make(map[string]bool, len(items))
	out := make([]*domain.NewsItem, 0, len(items))
	for _, n := range items {
		key := n.TitleKey
		if key == "" {
			key = domain.NormalizeTitle(n.Title)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, n)
	}
	return out
}

// SortNewsByPublished orders items most recently published first.
func SortNewsByPublished(items []*domain.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt > items[j].PublishedAt
	})
}
