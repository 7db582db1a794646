package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brogergvhs/noveld/internal/config"
	"github.com/brogergvhs/noveld/internal/library"
)

var (
	flagSearchTitle  bool
	flagSearchAuthor bool
	flagLibraryPath  string
)

var searchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Search downloaded works by title or author",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagSearchTitle && flagSearchAuthor {
			return errors.New("--title and --author are mutually exclusive")
		}

		lib, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		var entries []library.Entry
		switch {
		case flagSearchTitle:
			entries, err = lib.SearchByTitle(cmd.Context(), args[0])
		case flagSearchAuthor:
			entries, err = lib.SearchByAuthor(cmd.Context(), args[0])
		default:
			entries, err = lib.Search(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List every work recorded in the library",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer lib.Close()

		entries, err := lib.List(cmd.Context())
		if err != nil {
			return err
		}

		printEntries(cmd.OutOrStdout(), entries)
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVar(&flagSearchTitle, "title", false, "match titles only")
	searchCmd.Flags().BoolVar(&flagSearchAuthor, "author", false, "match authors only")

	for _, c := range []*cobra.Command{searchCmd, libraryCmd} {
		c.Flags().StringVar(&flagLibraryPath, "library", "", "library database path")
		rootCmd.AddCommand(c)
	}
}

func openLibrary(cmd *cobra.Command) (*library.Library, error) {
	cfg, _, err := loadConfig(config.Options{LibraryPath: flagLibraryPath})
	if err != nil {
		return nil, err
	}
	newLogger(cfg).Debugf("library: %s", cfg.LibraryPath)

	return library.Open(cmd.Context(), cfg.LibraryPath)
}

func printEntries(w io.Writer, entries []library.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No works found.")
		return
	}

	fmt.Fprintln(w, renderEntries(entries))
}

func renderEntries(entries []library.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Title,
			e.Author,
			strconv.Itoa(e.Chapters),
			e.Destination,
			e.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}

	return renderTable(
		[]string{"Title", "Author", "Chapters", "Destination", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight},
	)
}
