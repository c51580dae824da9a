package extract

import (
	"github.com/pevans/chatexport/dom"
	"github.com/pevans/chatexport/platform"
)

// candidate is one message found by a strategy, before attribution.
type candidate struct {
	sender    string
	timestamp string
	text      string
}

// runStrategies tries each extraction strategy in priority order and
// returns the first non-empty result. Grouped extraction reads the page the
// way it is usually structured; the flat and probe strategies pick up the
// slack when the grouping markup has drifted.
func (e *Extractor) runStrategies() []candidate {
	for _, strategy := range []func() []candidate{
		e.collectGrouped,
		e.collectFlat,
		e.collectProbe,
	} {
		if candidates := strategy(); len(candidates) > 0 {
			return candidates
		}
	}
	return nil
}

// collectGrouped iterates sender/time blocks and attributes every message
// bubble inside a block to that block's sender and time.
func (e *Extractor) collectGrouped() []candidate {
	groups := dom.All(e.page, e.platform.Selector(platform.MessageGroup))
	var out []candidate
	for _, group := range groups {
		sender := dom.Text(group, e.platform.Selector(platform.GroupSender))
		timestamp := dom.Text(group, e.platform.Selector(platform.GroupTime))
		for _, bubble := range dom.All(group, e.platform.Selector(platform.MessageBubble)) {
			text := bubble.Text()
			if text == "" {
				continue
			}
			out = append(out, candidate{sender: sender, timestamp: timestamp, text: text})
		}
	}
	return out
}

// collectFlat iterates individual message elements, each carrying its own
// sender and time.
func (e *Extractor) collectFlat() []candidate {
	items := dom.All(e.page, e.platform.Selector(platform.MessageItem))
	var out []candidate
	for _, item := range items {
		text := dom.Text(item, e.platform.Selector(platform.MessageText))
		if text == "" {
			continue
		}
		out = append(out, candidate{
			sender:    dom.Text(item, e.platform.Selector(platform.ItemSender)),
			timestamp: dom.Text(item, e.platform.Selector(platform.ItemTime)),
			text:      text,
		})
	}
	return out
}

// collectProbe is the last resort: scan for message-text nodes anywhere in
// the document and infer sender/time from the nearest enclosing list item.
// A node with no resolvable sender is treated as authored by the user.
// That inference is a heuristic, not a structural guarantee: system and
// notification rows can be misattributed.
func (e *Extractor) collectProbe() []candidate {
	texts := dom.All(e.page, e.platform.Selector(platform.MessageText))
	var out []candidate
	for _, el := range texts {
		text := el.Text()
		if text == "" {
			continue
		}
		c := candidate{text: text}
		if container, ok := el.Closest("li"); ok {
			c.sender = dom.Text(container, e.platform.Selector(platform.ItemSender))
			if c.sender == "" {
				c.sender = dom.Text(container, e.platform.Selector(platform.GroupSender))
			}
			c.timestamp = dom.Text(container, e.platform.Selector(platform.ItemTime))
		}
		out = append(out, c)
	}
	return out
}
