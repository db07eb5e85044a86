package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/mylibrary/mylibrary/pkg/books"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/reader"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

func main() {
	log := logger.New()

	var opts struct {
		CoverOutput string `short:"o" long:"cover-output" description:"A path to output the cover image"`
		Steps       int    `short:"n" long:"steps" default:"5" description:"How many positions to step through"`
		StartPage   int    `short:"p" long:"start-page" description:"Resume from this page (paginated formats)"`
		StartAt     string `short:"l" long:"start-location" description:"Resume from this location token (EPUB)"`
		JSON        bool   `long:"json" description:"Print each progress event as JSON"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		os.Exit(1)
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/inspect-book [options] <path/to/book>")
		os.Exit(1)
	}
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		log.Err(err).Fatal("read file error")
	}

	fileType, err := books.DetectFileType(filepath.Base(path), data)
	if err != nil {
		log.Err(err).Fatal("file type error")
	}

	metadata, err := books.ParseMetadata(fileType, data)
	if err != nil {
		log.Err(err).Warn("metadata parse error")
	}
	fmt.Printf("File Type:       %s\n%s\n\n", fileType, metadata)

	if opts.CoverOutput != "" && metadata.CoverData != nil {
		if err := os.WriteFile(opts.CoverOutput, metadata.CoverData, 0600); err != nil {
			log.Err(err).Fatal("file write error")
		}
	}

	reporter := reader.NewReporter()
	remove := reporter.Subscribe(func(ev reader.ProgressEvent) {
		if opts.JSON {
			b, _ := json.Marshal(ev)
			fmt.Println(string(b))
			return
		}
		fmt.Printf("#%-3d %3d%%  %s\n", ev.Seq, ev.Progress.ProgressPercent, describe(ev.Position))
	})
	defer remove()

	registry := reader.NewRegistry()
	session := reader.NewSession(reporter, reader.NewViewport(80, 24), reader.WithRegistry(registry))

	var prior *models.ReadingProgress
	if opts.StartPage > 0 || opts.StartAt != "" {
		prior = &models.ReadingProgress{UpdatedAt: time.Now()}
		if opts.StartPage > 0 {
			prior.CurrentPage = &opts.StartPage
			total := opts.StartPage
			if metadata.PageCount != nil {
				total = *metadata.PageCount
			}
			prior.TotalPages = &total
		}
		if opts.StartAt != "" {
			prior.Location = &opts.StartAt
		}
	}

	book := &models.Book{ID: 1, Title: metadata.Title, FileType: fileType}
	if err := session.Open(context.Background(), book, data, prior); err != nil {
		log.Err(err).Fatal("open error")
	}
	for i := 0; i < opts.Steps; i++ {
		session.Navigate(reader.Forward)
	}
	if outline := session.Outline(); len(outline) > 0 {
		fmt.Println("\nOutline:")
		for _, entry := range outline {
			fmt.Printf("  %-40s %s\n", entry.Title, entry.Target)
		}
	}
	session.Close()

	fmt.Printf("\nOutstanding handles after close: %d\n", registry.Outstanding())
}

func describe(pos reader.PositionDescriptor) string {
	if pos.Family.Paginated() {
		return fmt.Sprintf("page %d/%d", pos.Page, pos.TotalPages)
	}
	return fmt.Sprintf("%.4f %s", pos.Fraction, pos.Location)
}
