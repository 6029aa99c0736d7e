package linker

import (
	"strings"

	"digestpipe/internal/domain"
)

// inferLinkType classifies an item's URL/kind into the typed StoryLink
// variant the ranker's prefer_primary_link_order compares against. Host
// matches take precedence over the item's content kind, since a paper
// mirrored on a project blog should still be typed "blog" there while the
// arxiv.org copy is typed "arxiv".
func inferLinkType(item domain.Item) domain.LinkType {
	switch {
	case strings.Contains(item.URL, "arxiv.org/"):
		return domain.LinkArxiv
	case strings.Contains(item.URL, "huggingface.co/"):
		return domain.LinkHuggingFace
	case strings.Contains(item.URL, "github.com/"):
		return domain.LinkGitHub
	}

	switch item.Kind {
	case domain.KindPaper:
		return domain.LinkPaper
	case domain.KindBlog:
		return domain.LinkBlog
	case domain.KindNews:
		return domain.LinkNews
	case domain.KindModel, domain.KindDataset:
		return domain.LinkModel
	default:
		return domain.LinkOfficial
	}
}
