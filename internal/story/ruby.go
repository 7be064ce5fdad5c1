package story

import (
	"strconv"
	"strings"

	"uma-voxdump/internal/objectreader"
)

// ApplyRuby overlays ruby annotations onto blocks, keyed by BlockIndex.
// Per §4.5, only the first MonoBehaviour object whose aliased DataArray
// yields a non-empty list is used; any decode failure here is the
// caller's to swallow, leaving blocks without ruby text.
func ApplyRuby(rubyObjects []objectreader.Object, blocks map[int]*Block) {
	for _, obj := range rubyObjects {
		entries := obj.List("DataArray", "m_DataArray")
		if len(entries) == 0 {
			continue
		}

		for _, entry := range entries {
			idx := entry.Int(-1, "BlockIndex", "m_BlockIndex")
			block, ok := blocks[idx]
			if !ok {
				continue
			}

			items := entry.List("RubyDataList", "m_RubyDataList")
			if len(items) == 0 {
				continue
			}

			parts := make([]string, 0, len(items))
			for _, item := range items {
				charX := item.Float(0, "CharX", "CharIndex")
				text := item.String("", "RubyText")
				parts = append(parts, formatCharX(charX)+":"+text)
			}
			if len(parts) > 0 {
				block.RubyInfo = strings.Join(parts, " | ")
			}
		}
		return
	}
}

// formatCharX renders a float the way Python's str() would: the
// shortest decimal representation with at least one fractional digit,
// matching the "1.5:あ | 3.0:い" shape from §8 scenario 4.
func formatCharX(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
