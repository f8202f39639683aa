// Command app runs batch transcription without the desktop shell. Files
// listed on the command line are processed with the persisted settings;
// progress streams to stdout.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/waltervanheuven/speech2text/internal/config"
	"github.com/waltervanheuven/speech2text/internal/domain"
	"github.com/waltervanheuven/speech2text/internal/engine"
	"github.com/waltervanheuven/speech2text/internal/jobs"
	"github.com/waltervanheuven/speech2text/internal/orchestrator"
)

func main() {
	language := flag.String("language", "", "override the configured language (ISO 639-1 code or 'auto')")
	format := flag.String("format", "", "override the configured output format (vtt, srt, json, tsv, lrc, txt)")
	overwrite := flag.Bool("overwrite", false, "replace existing output files without asking")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "usage: app [flags] file...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	store := config.NewJSONStore(config.DefaultSettingsPath())
	settings, err := store.Load()
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	if *language != "" {
		settings.Language = *language
	}
	if *format != "" {
		settings.OutputFormat = domain.OutputFormat(*format)
	}
	settings = config.Normalize(settings)

	queue := jobs.NewQueue()
	bus := jobs.NewEventBus(1000)
	bus.SetNotify(func(event jobs.Event) {
		if event.Message != "" {
			fmt.Println(event.Message)
		}
	})

	done := make(chan int, 1)
	adapters := engine.NewAdapters(nil)
	orch := orchestrator.New(queue, bus, adapters, orchestrator.Callbacks{
		OnRunFinished:  func(duration time.Duration) { done <- 0 },
		OnRunFailed:    func(message string) { done <- 1 },
		OnRunCancelled: func() { done <- 1 },
		ConfirmOverwrite: func(path string, remaining int) domain.OverwriteDecision {
			if *overwrite {
				return domain.OverwriteYesToAll
			}
			return domain.OverwriteNoToAll
		},
		// A terminal invocation is deliberate; plain-http URLs proceed.
		ConfirmInsecureURL: func(url string) bool { return true },
	})

	orch.SubmitFiles(files)
	if err := orch.StartRun(settings); err != nil {
		log.Fatalf("start run: %v", err)
	}

	os.Exit(<-done)
}
