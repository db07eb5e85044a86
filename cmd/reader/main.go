package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mylibrary/mylibrary/pkg/apiclient"
	"github.com/mylibrary/mylibrary/pkg/config"
	"github.com/mylibrary/mylibrary/pkg/host"
	"github.com/mylibrary/mylibrary/pkg/library"
	"github.com/mylibrary/mylibrary/pkg/models"
	"github.com/mylibrary/mylibrary/pkg/offline"
	"github.com/mylibrary/mylibrary/pkg/progresssync"
	"github.com/mylibrary/mylibrary/pkg/reader"
	"github.com/mylibrary/mylibrary/pkg/tui"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

// app holds everything the commands share. It is built in Before and torn
// down in After.
type app struct {
	cfg         *config.ReaderConfig
	store       *offline.Store
	client      *apiclient.Client
	coordinator *progresssync.Coordinator
	input       *tui.Input
	host        *host.Host
	library     *library.Library
}

func main() {
	a := &app{}

	cliApp := &cli.App{
		Name:        "reader",
		Usage:       "read books from your library in the terminal",
		Description: "Lists, downloads, and reads books. Reading progress is queued locally and synced to the server.",
		Before:      a.setup,
		After:       a.teardown,
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list books on the server, or downloaded books when offline",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "fuzzy filter by title and author"},
					&cli.BoolFlag{Name: "offline", Usage: "only list downloaded books"},
				},
				Action: a.list,
			},
			{
				Name:      "download",
				Usage:     "download a book for offline reading",
				ArgsUsage: "<book id>",
				Action:    a.download,
			},
			{
				Name:      "read",
				Usage:     "open a book in the reader",
				ArgsUsage: "<book id>",
				Action:    a.read,
			},
			{
				Name:   "flush",
				Usage:  "push queued reading progress to the server",
				Action: a.flush,
			},
			{
				Name:   "status",
				Usage:  "show downloaded books and queued progress",
				Action: a.status,
			},
			{
				Name:   "login",
				Usage:  "log in with the configured credentials and print the token",
				Action: a.login,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) setup(c *cli.Context) error {
	cfg, err := config.NewReader()
	if err != nil {
		return err
	}
	a.cfg = cfg

	log := logger.NewWithLevel(cfg.LogLevel)
	c.Context = log.WithContext(c.Context)

	store, err := offline.Open(cfg.OfflineDBPath)
	if err != nil {
		return err
	}
	a.store = store

	a.client = apiclient.New(apiclient.Options{
		BaseURL: cfg.ServerURL,
		Token:   cfg.Token,
		Timeout: cfg.HTTPTimeout,
	})
	if cfg.Token == "" && cfg.HasCredentials() && c.Args().First() != "login" {
		if _, err := a.client.Login(c.Context, cfg.Username, cfg.Password); err != nil {
			// Reading offline still works without a session.
			log.Err(err).Warn("login failed")
		}
	}

	a.coordinator = progresssync.NewCoordinator(store, a.client)
	a.input = tui.NewInput()
	a.host = host.New(c.Context, host.Options{
		Viewport: terminalViewport(),
		Registry: reader.NewRegistry(),
		Input:    a.input,
		Sink:     a.coordinator,
	})
	a.library = library.New(a.client, store, a.coordinator, a.host)
	return nil
}

func (a *app) teardown(c *cli.Context) error {
	if a.host != nil {
		a.host.Shutdown()
	}
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func terminalViewport() *reader.Viewport {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return reader.NewViewport(80, 24)
	}
	return reader.NewViewport(width, height)
}

func bookIDArg(c *cli.Context) (int, error) {
	if c.NArg() != 1 {
		return 0, errors.Errorf("expected exactly one book id, got %d arguments", c.NArg())
	}
	id, err := strconv.Atoi(c.Args().First())
	if err != nil || id < 1 {
		return 0, errors.Errorf("invalid book id %q", c.Args().First())
	}
	return id, nil
}

func printBooks(books []*models.Book) {
	if len(books) == 0 {
		fmt.Println("No books found")
		return
	}
	for _, b := range books {
		line := fmt.Sprintf("%5d  [%s]  %s", b.ID, b.FileType, b.Title)
		if author := b.DisplayAuthor(); author != "" {
			line += " by " + author
		}
		if b.Progress != nil {
			line += fmt.Sprintf(" (%d%%)", b.Progress.ProgressPercent)
		}
		fmt.Println(line)
	}
}

func (a *app) list(c *cli.Context) error {
	var books []*models.Book
	var err error
	if c.Bool("offline") {
		books, err = a.library.OfflineBooks(c.Context)
	} else {
		books, err = a.library.Books(c.Context)
	}
	if err != nil {
		return err
	}
	printBooks(library.Search(books, c.String("search")))
	return nil
}

func (a *app) download(c *cli.Context) error {
	id, err := bookIDArg(c)
	if err != nil {
		return err
	}
	book, err := a.library.Download(c.Context, id)
	if err != nil {
		return err
	}
	fmt.Printf("Downloaded %q\n", book.Title)
	return nil
}

func (a *app) read(c *cli.Context) error {
	id, err := bookIDArg(c)
	if err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("read needs an interactive terminal")
	}
	log := logger.FromContext(c.Context)

	book, err := a.library.Open(c.Context, id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	scheduler := progresssync.NewScheduler(a.coordinator, a.cfg.SyncInterval)
	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	program := tea.NewProgram(tui.New(book, a.host.Session(), a.input), tea.WithAltScreen(), tea.WithContext(ctx))
	_, runErr := program.Run()

	a.host.Close()
	result := a.library.Flush(c.Context)
	log.Info("reading finished", logger.Data{"book_id": id, "sent": result.Sent, "failed": result.Failed})
	if result.Failed > 0 {
		fmt.Printf("%d progress update(s) could not be synced and stay queued\n", result.Failed)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return runErr
	}
	return nil
}

func (a *app) flush(c *cli.Context) error {
	// Being offline is the normal case for a queue, so failures are reported
	// rather than returned.
	result := a.library.Flush(c.Context)
	out := c.App.Writer
	fmt.Fprintf(out, "Sent %d, superseded %d, failed %d\n", result.Sent, result.Superseded, result.Failed)
	if result.Failed > 0 {
		fmt.Fprintf(out, "%d progress update(s) stay queued for the next flush\n", result.Failed)
	}
	return nil
}

func (a *app) status(c *cli.Context) error {
	status, err := a.library.Status(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Server: %s\n", a.cfg.ServerURL)
	fmt.Printf("Downloaded books: %d\n", len(status.Downloaded))
	printBooks(status.Downloaded)
	fmt.Printf("Progress synced: %d, pending: %d\n", status.Synced, len(status.Pending))
	for _, rec := range status.Pending {
		fmt.Printf("  book %d at %d%% (recorded %s)\n", rec.BookID, rec.Progress.ProgressPercent, rec.Progress.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func (a *app) login(c *cli.Context) error {
	if !a.cfg.HasCredentials() {
		return errors.New("set READER_USERNAME and READER_PASSWORD to log in")
	}
	session, err := a.client.Login(c.Context, a.cfg.Username, a.cfg.Password)
	if err != nil {
		return err
	}
	fmt.Printf("Logged in as %s\n", session.User.Username)
	fmt.Printf("export READER_TOKEN=%s\n", session.Token)
	return nil
}
