// Package story assembles dialogue blocks from a timeline's object
// graph and overlays ruby annotations onto them, per §4.4/§4.5 of the
// design: BlockIndex is reconstructed from each object's NextBlock
// pointer, not read directly, because the underlying asset format never
// stores it.
package story

import (
	"log"

	"uma-voxdump/internal/objectreader"
)

// Block is one dialogue line, identified within a story by BlockIndex.
type Block struct {
	BlockIndex   int
	SpeakerName  string
	Text         string
	CharaID      int
	VoiceSheetID string
	CueID        int
	RubyInfo     string
}

// ParseBlocks builds the BlockIndex -> Block mapping from a timeline
// asset's object list. Objects lacking a Text attribute entirely are not
// considered dialogue and are excluded from the raw list (step 1).
func ParseBlocks(objects []objectreader.Object) map[int]*Block {
	type raw struct {
		nextBlock int
		obj       objectreader.Object
	}

	var rawObjects []raw
	for _, obj := range objects {
		if !obj.Has("Text", "m_Text") {
			continue
		}
		rawObjects = append(rawObjects, raw{
			nextBlock: obj.Int(-1, "NextBlock", "m_NextBlock"),
			obj:       obj,
		})
	}
	if len(rawObjects) == 0 {
		return map[int]*Block{}
	}

	lastBlockNum := 0
	for _, r := range rawObjects {
		if r.nextBlock != -1 && r.nextBlock > lastBlockNum {
			lastBlockNum = r.nextBlock
		}
	}

	out := make(map[int]*Block, len(rawObjects))
	for _, r := range rawObjects {
		var idx int
		if r.nextBlock == -1 {
			idx = lastBlockNum
		} else {
			idx = r.nextBlock - 1
		}

		if prev, ok := out[idx]; ok && prev.Text != "" && r.obj.String("", "Text", "m_Text") == "" {
			// The terminal "end" node shares last_block_num with the last
			// real block and typically carries empty Text; overwriting a
			// non-empty block with an empty one here is the documented
			// benign case, but we still note it happened.
			log.Printf("story: block %d overwritten by terminal node (previous text discarded)", idx)
		}

		out[idx] = &Block{
			BlockIndex:   idx,
			SpeakerName:  r.obj.String("", "Name", "m_Name"),
			Text:         r.obj.String("", "Text", "m_Text"),
			CharaID:      r.obj.Int(0, "CharaId", "m_CharaId"),
			VoiceSheetID: r.obj.String("", "VoiceSheetId", "m_VoiceSheetId"),
			CueID:        r.obj.Int(-1, "CueId", "m_CueId"),
			RubyInfo:     "",
		}
	}
	return out
}
