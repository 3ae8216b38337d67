package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/format-smormat/backend/internal/config"
	"github.com/format-smormat/backend/internal/converter"
	"github.com/format-smormat/backend/internal/intake"
	"github.com/format-smormat/backend/internal/logging"
	"github.com/format-smormat/backend/internal/models"
	"github.com/format-smormat/backend/internal/records"
)

// errFailures makes the command exit non-zero after the summary is printed.
var errFailures = errors.New("some files were not converted")

type convertOptions struct {
	OutDir      string
	Overwrite   bool
	Jobs        int
	MaxFileSize int64
}

type convertSummary struct {
	Converted int
	Failed    int
	Rejected  int
}

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert HTML files to Markdown",
	Long: `Convert reads every .html / .htm file given on the command line, infers a
Markdown file name from its <title> and writes the converted document to the
output directory. Files that are not HTML are rejected.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		logger, err := logging.New(config.LoggingConfig{Level: level, Encoding: "console"})
		if err != nil {
			return err
		}
		defer logger.Sync()

		var opts convertOptions
		opts.OutDir, _ = cmd.Flags().GetString("out")
		opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
		opts.Jobs, _ = cmd.Flags().GetInt("jobs")
		opts.MaxFileSize, _ = cmd.Flags().GetInt64("max-size")

		summary, err := runConvert(args, opts, cmd.OutOrStdout(), logger)
		if err != nil {
			return err
		}
		if summary.Failed > 0 || summary.Rejected > 0 {
			return errFailures
		}
		return nil
	},
}

func init() {
	convertCmd.Flags().StringP("out", "o", ".", "output directory")
	convertCmd.Flags().Bool("overwrite", false, "replace existing files instead of numbering new ones")
	convertCmd.Flags().IntP("jobs", "j", 4, "number of files written concurrently")
	convertCmd.Flags().Int64("max-size", 0, "reject inputs larger than this many bytes (0 = no limit)")
	convertCmd.Flags().String("log-level", "warn", "log level: debug, info, warn, error")

	rootCmd.AddCommand(convertCmd)
}

// runConvert converts paths with no cosmetic delays and writes every
// completed record to opts.OutDir. One line per input goes to out.
func runConvert(paths []string, opts convertOptions, out io.Writer, logger *zap.Logger) (convertSummary, error) {
	var summary convertSummary

	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return summary, fmt.Errorf("creating %s: %w", opts.OutDir, err)
	}

	files := make([]intake.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, localFile(p))
	}

	store := records.NewStore()
	manager := intake.NewManager(store, converter.NewEngine(), intake.Options{MaxFileSize: opts.MaxFileSize}, logger)

	batch, err := manager.Submit(files)
	if err != nil {
		var unsupported *intake.UnsupportedFileTypeError
		if errors.As(err, &unsupported) {
			for _, name := range unsupported.Names {
				fmt.Fprintf(out, "skipped   %s\n", name)
			}
			summary.Rejected = len(unsupported.Names)
			fmt.Fprintf(out, "%s\n", intake.UnsupportedMessage)
			return summary, nil
		}
		return summary, err
	}
	manager.Wait()

	for _, name := range batch.Rejected {
		fmt.Fprintf(out, "skipped   %s\n", name)
	}
	summary.Rejected = len(batch.Rejected)

	names := newNameAllocator(opts.OutDir, opts.Overwrite)
	lines := make([]string, len(batch.Records))

	g := new(errgroup.Group)
	if opts.Jobs > 0 {
		g.SetLimit(opts.Jobs)
	}

	for i, created := range batch.Records {
		rec, ok := store.Get(created.ID)
		if !ok || rec.Status != models.StatusCompleted {
			lines[i] = fmt.Sprintf("failed    %s: %s", created.OriginalName, models.FailureMessage)
			summary.Failed++
			continue
		}

		target := names.next(rec.MarkdownName)
		lines[i] = fmt.Sprintf("converted %s -> %s", rec.OriginalName, target)
		summary.Converted++

		g.Go(func() error {
			return writeMarkdown(target, rec.Content, opts.Overwrite)
		})
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	for _, line := range lines {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "%d converted, %d failed, %d skipped\n", summary.Converted, summary.Failed, summary.Rejected)
	return summary, nil
}

func localFile(path string) intake.File {
	f := intake.File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
	if info, err := os.Stat(path); err == nil {
		f.Size = info.Size()
	}
	return f
}

func writeMarkdown(path, content string, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := io.WriteString(f, content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// nameAllocator hands out distinct output paths. Names already taken in
// this run, or on disk unless overwriting, get a " (n)" suffix.
type nameAllocator struct {
	dir       string
	overwrite bool
	taken     map[string]bool
}

func newNameAllocator(dir string, overwrite bool) *nameAllocator {
	return &nameAllocator{dir: dir, overwrite: overwrite, taken: make(map[string]bool)}
}

func (a *nameAllocator) next(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for n := 1; a.unavailable(candidate); n++ {
		candidate = fmt.Sprintf("%s (%d)%s", stem, n, ext)
	}
	a.taken[strings.ToLower(candidate)] = true
	return filepath.Join(a.dir, candidate)
}

func (a *nameAllocator) unavailable(name string) bool {
	if a.taken[strings.ToLower(name)] {
		return true
	}
	if a.overwrite {
		return false
	}
	_, err := os.Stat(filepath.Join(a.dir, name))
	return err == nil
}
