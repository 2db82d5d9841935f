package feed

import (
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
)

// customSourceKey carries the RSS <source> name through gofeed's universal item.
const customSourceKey = "source"

// sourceTranslator is the default RSS translator plus the per-item <source> element,
// which the universal item type does not expose.
type sourceTranslator struct {
	base *gofeed.DefaultRSSTranslator
}

func newSourceTranslator() *sourceTranslator {
	return &sourceTranslator{base: &gofeed.DefaultRSSTranslator{}}
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	out, err := t.base.Translate(feed)
	if err != nil {
		return nil, err
	}

	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return out, nil
	}
	for i, item := range rssFeed.Items {
		if i >= len(out.Items) || item == nil || item.Source == nil {
			continue
		}
		name := strings.TrimSpace(item.Source.Title)
		if name == "" {
			continue
		}
		if out.Items[i].Custom == nil {
			out.Items[i].Custom = make(map[string]string)
		}
		out.Items[i].Custom[customSourceKey] = name
	}
	return out, nil
}
