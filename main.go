package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"uma-voxdump/internal/audioext"
	"uma-voxdump/internal/cipher"
	"uma-voxdump/internal/config"
	"uma-voxdump/internal/engine"
	"uma-voxdump/internal/manifest"
	"uma-voxdump/internal/masterdb"
	"uma-voxdump/internal/metastore"
	"uma-voxdump/internal/objectreader"
	"uma-voxdump/internal/stress"
)

const configPath = "config/keys.json"

// newObjectFactory and newContainerOpener wire the external collaborators
// described in the design: a real Unity-style asset deserializer and a
// real acb/awb+HCA decoder. Neither ships in this module (they are
// out-of-scope external libraries); these stubs fail loudly if ever
// invoked without a concrete implementation swapped in, while still
// letting the rest of the pipeline compile and be tested against fakes.
func newObjectFactory() objectreader.Factory {
	return func(decrypted []byte) (objectreader.Backend, error) {
		return nil, fmt.Errorf("objectreader: no asset deserializer backend configured")
	}
}

func newContainerOpener() audioext.ContainerOpener {
	return func(acbPath, awbPath, hcaKeys string) (audioext.Container, error) {
		return nil, fmt.Errorf("audioext: no container backend configured")
	}
}

func newDecoder() audioext.Decoder {
	return func(payload []byte, codecHint string) ([]byte, error) {
		return nil, fmt.Errorf("audioext: no codec backend configured")
	}
}

func main() {
	if _, err := os.Stat(configPath); err != nil {
		fmt.Printf("Error: %s not found.\n", configPath)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	reader := bufio.NewReader(os.Stdin)
	doStress, doSystem, doStory, doTest := promptSelection(reader, cfg.ExposeStressMode)

	fmt.Println("\nStarting Engine...")

	cph := cipher.New(cfg.ABKey, cfg.HeaderSize)
	store, err := metastore.Open(cfg.Paths.Meta, cfg.BaseKey, cfg.RawKeyJP)
	if err != nil {
		log.Fatalf("failed to open manifest: %v", err)
	}
	defer store.Close()

	idx := manifest.New(store, cfg.Paths.Dat)
	extractor := audioext.New(newContainerOpener(), newDecoder(), cfg.UmaHCAKey)
	objFactory := newObjectFactory()

	if doStress {
		packets := loadStoryPackets(idx)
		stress.Run(packets, cph, objFactory)
	} else {
		if doSystem {
			runSystemScan(cfg, idx, extractor, doTest)
		}
		if doStory {
			packets := loadStoryPackets(idx)
			if err := engine.RunStoryScan(packets, cfg.Paths.Output, cph, objFactory, extractor, doTest); err != nil {
				log.Printf("story scan failed: %v", err)
			}
		}
	}

	fmt.Println("\nALL OPERATIONS COMPLETE.")
}

func runSystemScan(cfg *config.Config, idx *manifest.Indexer, extractor *audioext.Extractor, testMode bool) {
	db, err := masterdb.Open(cfg.Paths.Master)
	if err != nil {
		log.Printf("system scan failed: %v", err)
		return
	}
	defer db.Close()

	rows, err := masterdb.SystemText(db)
	if err != nil {
		log.Printf("system scan failed: %v", err)
		return
	}

	sheets, err := idx.SheetAudioIndex()
	if err != nil {
		log.Printf("system scan failed: %v", err)
		return
	}

	entries := engine.BuildSystemEntries(rows, sheets)
	if err := engine.RunSystemScan(entries, cfg.Paths.Output, extractor, testMode); err != nil {
		log.Printf("system scan failed: %v", err)
	}
}

func loadStoryPackets(idx *manifest.Indexer) []manifest.StoryPacket {
	rubyIndex, err := idx.RubyIndex()
	if err != nil {
		log.Fatalf("failed to build ruby index: %v", err)
	}
	audioMap, err := idx.VoiceAudioIndex()
	if err != nil {
		log.Fatalf("failed to build voice audio index: %v", err)
	}
	packets, err := idx.StoryPackets(rubyIndex, audioMap)
	if err != nil {
		log.Fatalf("failed to enumerate story timelines: %v", err)
	}
	return packets
}

// promptSelection runs the interactive menu loop, matching the
// confirm-then-restart shape of the reference CLI: any rejected
// confirmation sends the user back to the top of the menu.
func promptSelection(reader *bufio.Reader, exposeStress bool) (doStress, doSystem, doStory, doTest bool) {
	for {
		fmt.Println("\n=== UMA VOICE DATASET CREATOR & STRESS TESTER ===")
		qn := 1

		doStress = false
		if exposeStress {
			doStress = askYesNo(reader, fmt.Sprintf("%d. Do story scan stress test? (Y/N): ", qn))
			qn++
		}

		doSystem, doStory = false, false
		if !doStress {
			doSystem = askYesNo(reader, fmt.Sprintf("%d. Do system text scan? (Y/N): ", qn))
			qn++
			doStory = askYesNo(reader, fmt.Sprintf("%d. Do full story scan? (Y/N): ", qn))
			qn++
		}

		if !doStress && !doSystem && !doStory {
			fmt.Println("\nAt least system or story has to be selected. Restarting selection...")
			continue
		}

		doTest = false
		if !doStress && (doSystem || doStory) {
			doTest = askYesNo(reader, fmt.Sprintf("%d. Enable Test Mode (Limit 1000 rows)? (Y/N): ", qn))
			qn++
		}

		fmt.Println("\n--- CONFIRM OPTIONS ---")
		if exposeStress {
			fmt.Printf("  > Stress Test:   %s\n", yesNoLabel(doStress, "[YES] (Infinite Loop)"))
		}
		if !doStress {
			fmt.Printf("  > System Scan:   %s\n", yesNoLabel(doSystem, "[YES]"))
			fmt.Printf("  > Story Scan:    %s\n", yesNoLabel(doStory, "[YES]"))
			fmt.Printf("  > Test Mode:     %s\n", yesNoLabel(doTest, "[YES] (Limit 1000)"))
		}
		fmt.Println("-----------------------")

		if askYesNo(reader, "Confirm selection? (Y/N): ") {
			return
		}
		fmt.Println("\nRestarting selection...")
	}
}

func yesNoLabel(v bool, yesLabel string) string {
	if v {
		return yesLabel
	}
	return "[NO]"
}

func askYesNo(reader *bufio.Reader, prompt string) bool {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.ToUpper(strings.TrimSpace(line)) == "Y"
}
