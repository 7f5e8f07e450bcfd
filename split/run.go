// Package split implements "split" subcommand: breaks Twee source into
// individual passage files.
package split

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/h2non/filetype"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"twsplit/common"
	"twsplit/config"
	"twsplit/state"
	"twsplit/twee"
)

// UsageError reports malformed command line, program exits with different
// status in this case.
type UsageError struct {
	err error
}

func (e *UsageError) Error() string {
	return e.err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.err
}

func usageError(format string, args ...any) error {
	return &UsageError{err: fmt.Errorf(format, args...)}
}

// Flags returns "split" subcommand flags.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "no-subfolders", Aliases: []string{"ns"}, Usage: "do not sort passages into subfolders"},
		&cli.BoolFlag{Name: "no-moresplit", Aliases: []string{"nm"}, Usage: "do not split story stylesheet and javascript into individual files"},
		&cli.StringFlag{Name: "decoding", Aliases: []string{"dec"}, Usage: "force `CHARSET` for the input file (see IANA.org for character set names)"},
		&cli.StringFlag{Name: "encoding", Aliases: []string{"enc"}, Usage: "force `CHARSET` for the output files (see IANA.org for character set names)"},
		&cli.StringFlag{Name: "collisions",
			Usage: "`POLICY` for passages resolving to the same file name (" + strings.Join(common.CollisionPolicyNames(), ", ") + ")"},
	}
}

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("split")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return usageError("no input source has been specified")
	}
	if src, err = filepath.Abs(src); err != nil {
		return err
	}
	if err := checkSource(src); err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		dst = defaultDestination(src)
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	cfg := &env.Cfg.Split
	env.Subfolders = cfg.Subfolders && !cmd.Bool("no-subfolders")
	env.MoreSplit = cfg.MoreSplit && !cmd.Bool("no-moresplit")

	env.Collisions = cfg.Collisions
	if cmd.IsSet("collisions") {
		if env.Collisions, err = common.ParseCollisionPolicy(cmd.String("collisions")); err != nil {
			return usageError("unknown collision policy: %w", err)
		}
	}

	dec, enc := cfg.Decoding, cfg.Encoding
	if cmd.IsSet("decoding") {
		dec = cmd.String("decoding")
	}
	if cmd.IsSet("encoding") {
		enc = cmd.String("encoding")
	}
	if env.Decoding, err = lookupCharset(dec); err != nil {
		return usageError("unknown input character set: %w", err)
	}
	if env.Encoding, err = lookupCharset(enc); err != nil {
		return usageError("unknown output character set: %w", err)
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst),
		zap.String("decoding", dec), zap.String("encoding", enc), zap.Stringer("run", env.RunID))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process runs split pipeline independently of CLI framework: passages are
// segmented and written first, aggregates are split only after every passage
// is on disk.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)
	cfg := &env.Cfg.Split

	text, err := readSource(src, env.Decoding)
	if err != nil {
		return err
	}
	if err := env.Rpt.StoreCopy("source", src); err != nil {
		log.Warn("Unable to store source in debug report", zap.Error(err))
	}

	opts := []twee.WriterOption{
		twee.WithPassageExt(cfg.PassageExt),
		twee.WithEncoding(env.Encoding),
		twee.WithCollisionPolicy(env.Collisions),
		twee.WithTransliteration(cfg.TransliterateNames),
	}
	var router *twee.Router
	if env.Subfolders {
		router = newRouter(cfg)
		opts = append(opts, twee.WithRouter(router))
	}
	w := twee.NewWriter(dst, log, opts...)
	// stored on every return, errors included
	defer storeResults(env.Rpt, router, w, log)

	count := 0
	for p := range twee.Passages(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.WritePassage(p); err != nil {
			return err
		}
		count++
	}
	if count == 0 {
		log.Warn("No passages found, nothing to do", zap.String("source", src))
		return nil
	}
	log.Info("Passages written", zap.Int("count", count), zap.Bool("subfolders", env.Subfolders))

	if env.MoreSplit {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := twee.PostSplit(w, newAggregates(cfg)...)
		if err != nil {
			return err
		}
		log.Info("Aggregates split", zap.Int("sections", n))
	}

	summarize(w, log)
	return nil
}

// storeResults puts routing rules, produced layout and output tree into debug
// report.
func storeResults(rpt *config.Report, router *twee.Router, w *twee.Writer, log *zap.Logger) {
	if rpt == nil {
		return
	}
	rpt.StoreData("layout.txt", []byte(router.String()+"\n"+w.String()))
	if _, err := os.Stat(w.Root()); err != nil {
		// nothing has been written
		return
	}
	if err := rpt.StoreCopy("output", w.Root()); err != nil {
		log.Warn("Unable to store output in debug report", zap.Error(err))
	}
}

func newRouter(cfg *config.SplitConfig) *twee.Router {
	rules := make([]twee.Rule, 0, len(cfg.TagRoutes)+2)
	for _, r := range cfg.TagRoutes {
		rules = append(rules, twee.TagRule(strings.ToLower(r.Keyword), r.Folder))
	}
	rules = append(rules,
		twee.TitleRule("special", cfg.Special.Folder, cfg.Special.Titles...),
		twee.TitleRule("story-data", cfg.StoryData.Folder, cfg.StoryData.Titles...),
	)
	return twee.NewRouter(rules...)
}

func newAggregates(cfg *config.SplitConfig) []twee.Aggregate {
	return []twee.Aggregate{
		twee.NewAggregate("stylesheet", cfg.Stylesheet.Passage, cfg.Stylesheet.Folder, cfg.Stylesheet.Marker, cfg.Stylesheet.Ext),
		twee.NewAggregate("script", cfg.Script.Passage, cfg.Script.Folder, cfg.Script.Marker, cfg.Script.Ext),
	}
}

// summarize logs number of files per output folder.
func summarize(w *twee.Writer, log *zap.Logger) {
	var (
		folders []string
		counts  = make(map[string]int)
	)
	for _, rel := range w.Written() {
		log.Debug("Output file", zap.String("file", rel))
		dir := filepath.Dir(rel)
		if _, seen := counts[dir]; !seen {
			folders = append(folders, dir)
		}
		counts[dir]++
	}
	fields := make([]zap.Field, 0, len(folders))
	for _, dir := range folders {
		fields = append(fields, zap.Int(dir, counts[dir]))
	}
	log.Info("Output layout", fields...)
}

// checkSource makes sure source could be processed at all, it is called
// before any output is produced.
func checkSource(src string) error {
	fi, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("input file does not exist: %s", src)
	}
	if err != nil {
		return fmt.Errorf("unable to access input file: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("input is a directory, but a file is expected: %s", src)
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("unexpected path mode for input: %s", src)
	}
	return nil
}

// readSource reads and decodes the whole source. BOM, if present, overrides
// requested decoding.
func readSource(src string, dec encoding.Encoding) (string, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return "", fmt.Errorf("unable to read input: %w", err)
	}
	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		return "", fmt.Errorf("input does not look like text, detected %s: %s", kind.MIME.Value, src)
	}
	text, err := twee.Decode(data, dec, true)
	if err != nil {
		return "", fmt.Errorf("unable to decode input: %w", err)
	}
	return text, nil
}

func lookupCharset(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return nil, fmt.Errorf("character set %q is not supported", name)
	}
	return enc, nil
}

// defaultDestination strips extension from the source, for sources without
// extension suffix is added so directory does not clash with the file.
func defaultDestination(src string) string {
	base := filepath.Base(src)
	if ext := filepath.Ext(base); len(ext) > 0 && ext != base {
		return strings.TrimSuffix(src, ext)
	}
	return src + "_split"
}
