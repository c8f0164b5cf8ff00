package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/exambuilder/internal/client"
	"github.com/pavelanni/exambuilder/internal/model"
	"github.com/pavelanni/exambuilder/internal/poller"
	"github.com/pavelanni/exambuilder/internal/results"
	"github.com/pavelanni/exambuilder/internal/store"
)

func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", "http://localhost:8080", "Base URL of a running exambuilder server")
	f.StringP("username", "u", "admin", "Operator username")
	f.String("password", "", "Operator password (or set EXAMBUILDER_PASSWORD)")
	f.Duration("interval", poller.DefaultInterval, "Manifest polling interval")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file.pdf|url>",
		Short: "Upload an exam PDF to a running server and watch its processing",
		Args:  cobra.ExactArgs(1),
		RunE:  runUpload,
	}
	addClientFlags(cmd)
	f := cmd.Flags()
	f.String("slug", "", "Exam slug (defaults to the file name)")
	f.String("exam-type", "", "Exam type id from the catalog")
	f.Int("year", 0, "Exam year")
	f.Bool("no-watch", false, "Return right after the upload is accepted")
	return cmd
}

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <slug>",
		Short: "Print processing progress of an exam until it completes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	addClientFlags(cmd)
	return cmd
}

func resultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results",
		Short: "Print the evaluation results table",
		RunE:  runResults,
	}
	f := cmd.Flags()
	f.String("results-dir", "data/results", "Directory with evaluation results and index.json")
	f.String("sort", string(results.DefaultSort.Field), "Sort column (star, exam, model, provider, accuracy, score, time, date)")
	f.Bool("desc", true, "Sort in descending order")
	f.String("log-level", "warn", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export image-to-JSON extraction records as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "exambuilder.db", "SQLite database path")
	f.String("slug", "", "Export a single exam (default: all exams)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

// loginClient logs in to the server configured on cmd.
func loginClient(ctx context.Context, v *viper.Viper) (*client.Client, error) {
	c := client.New(v.GetString("server"))
	if err := c.Login(ctx, v.GetString("username"), v.GetString("password")); err != nil {
		return nil, err
	}
	return c, nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := loginClient(ctx, v)
	if err != nil {
		return err
	}

	up := client.UploadRequest{
		Slug:     v.GetString("slug"),
		ExamType: v.GetString("exam-type"),
		Year:     v.GetInt("year"),
	}
	src := args[0]
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		up.URL = src
	} else {
		up.File = src
	}
	if up.Slug == "" {
		up.Slug = defaultSlug(src)
	}

	resp, err := c.Upload(ctx, up)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s", resp.Metadata.Slug, resp.Message)
	if resp.SizeHuman != "" {
		fmt.Fprintf(out, " (%s)", resp.SizeHuman)
	}
	fmt.Fprintln(out)
	if v.GetBool("no-watch") {
		return nil
	}
	return watch(ctx, c, resp.Metadata.Slug, v, out)
}

// defaultSlug derives an exam slug from a file name or URL path.
func defaultSlug(src string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	base = strings.ToLower(base)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}

func runWatch(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := loginClient(ctx, v)
	if err != nil {
		return err
	}
	return watch(ctx, c, args[0], v, cmd.OutOrStdout())
}

// watch prints one line per manifest change until processing completes
// or fails.
func watch(ctx context.Context, c *client.Client, slug string, v *viper.Viper, out io.Writer) error {
	var (
		last    string
		failure string
	)
	pollCtx, stop := context.WithCancel(ctx)
	defer stop()
	p := poller.New(c, v.GetDuration("interval"))
	sess := p.Start(pollCtx, slug, func(m *model.Manifest) {
		line := progressLine(m)
		if line != last {
			fmt.Fprintln(out, line)
			last = line
		}
		if m.Metadata.Error != "" {
			failure = m.Metadata.Error
			stop()
		}
	})
	if err := sess.Wait(ctx); err != nil {
		p.Stop()
		return err
	}
	if failure != "" {
		return fmt.Errorf("processing %s failed: %s", slug, failure)
	}
	return ctx.Err()
}

func progressLine(m *model.Manifest) string {
	md := m.Metadata
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", md.Slug, md.ProcessingStatus)
	if md.FileTotalPages > 0 {
		fmt.Fprintf(&b, " [%d/%d pages]", md.ProcessingPagesComplete, md.FileTotalPages)
	}
	if md.FileSizeBytes > 0 {
		fmt.Fprintf(&b, " %s", humanize.Bytes(uint64(md.FileSizeBytes)))
	}
	return b.String()
}

func runResults(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dir := results.Desc
	if !v.GetBool("desc") {
		dir = results.Asc
	}
	cfg, err := results.ParseSort(v.GetString("sort"), string(dir))
	if err != nil {
		return err
	}
	idx, err := results.NewRepository(v.GetString("results-dir")).Index()
	if err != nil {
		return err
	}
	return printResults(cmd.OutOrStdout(), idx, cfg)
}

func printResults(out io.Writer, idx *results.Index, cfg results.SortConfig) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tEXAM\tMODEL\tPROVIDER\tACCURACY\tSCORE\tTIME\tDATE")
	for _, e := range results.Sort(idx.Results, cfg) {
		star := ""
		if e.IsBest {
			star = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			star, e.Exam, e.Model, results.ProviderDisplayName(e.Provider),
			results.FormatAccuracy(e.Accuracy), results.FormatScore(e.Score, e.TotalPossible),
			results.FormatTime(e.Time), results.FormatDate(e))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if md := idx.Metadata; md.AuthorName != "" {
		fmt.Fprintf(out, "\nGenerated %s by %s\n", md.GeneratedOn, md.AuthorName)
	}
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportExtractions(v.GetString("slug"))
	if err != nil {
		return fmt.Errorf("export extractions: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = cmd.OutOrStdout()
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	slog.Info("exported extractions", "exams", len(export.Exams), "total", export.Total, "failed", export.Failed)
	return nil
}
