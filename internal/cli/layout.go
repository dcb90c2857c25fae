package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seqlane/seqlane/pkg/cache"
	"github.com/seqlane/seqlane/pkg/errors"
	"github.com/seqlane/seqlane/pkg/export"
	"github.com/seqlane/seqlane/pkg/ingest"
	"github.com/seqlane/seqlane/pkg/layout"
	"github.com/seqlane/seqlane/pkg/layout/transform"
	"github.com/seqlane/seqlane/pkg/observability"
	"github.com/seqlane/seqlane/pkg/track"
)

// layoutOptions collects every flag of the layout command.
type layoutOptions struct {
	seqs   string
	feats  []string
	genes  []string
	links  []string
	output string

	gap       int
	strict    bool
	zeroStart bool
	marginal  string
	binOrder  string
	seqOrder  string

	flip   string
	pick   string
	focus  []string
	margin int

	noCache bool
}

// layoutCommand creates the layout command: ingest, lay out, transform,
// export.
func (c *CLI) layoutCommand() *cobra.Command {
	var opts layoutOptions

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute a layout from sequence, feature, and link tables",
		Long: `Compute a layout from sequence, feature, and link tables.

Input formats are detected by extension: .gff/.gff3, .bed, .paf, and .tsv.
Feature and link tracks may be given more than once, optionally named with
name=path. Without --seqs, sequences are inferred from the first feature
track (else the first link track).

Transforms are applied in a fixed order: --flip, then --pick, then --focus.
The result is a layout document (JSON) with every projected track.`,
		Example: `  seqlane layout --seqs seqs.tsv --feats genes=ann.gff --links aln.paf
  seqlane layout --feats genes.bed --flip plasmid2 -o out.json
  seqlane layout --seqs seqs.tsv --feats ann.gff --focus chr1:20000-45000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLayout(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.seqs, "seqs", "", "sequence table (TSV with seq_id, length, optional bin_id)")
	cmd.Flags().StringArrayVar(&opts.feats, "feats", nil, "feature track ([name=]path.tsv|.gff|.bed), repeatable")
	cmd.Flags().StringArrayVar(&opts.genes, "genes", nil, "gene track, shorthand for --feats genes=path")
	cmd.Flags().StringArrayVar(&opts.links, "links", nil, "link track ([name=]path.tsv|.paf), repeatable")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "layout.json", "output file, - for stdout")

	cmd.Flags().IntVar(&opts.gap, "gap", -1, "spacer between sequences of a bin (default from config)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "fail on unresolved seq_id references")
	cmd.Flags().BoolVar(&opts.zeroStart, "zero-start", false, "extend inferred sequences back to coordinate zero")
	cmd.Flags().StringVar(&opts.marginal, "marginal", "", "policy for rows outside their window: trim, drop, keep")
	cmd.Flags().StringVar(&opts.binOrder, "bin-order", "", "comma-separated bin order (subset drops the rest)")
	cmd.Flags().StringVar(&opts.seqOrder, "seq-order", "", "comma-separated within-bin sequence order")

	cmd.Flags().StringVar(&opts.flip, "flip", "", "comma-separated bin or sequence ids to flip")
	cmd.Flags().StringVar(&opts.pick, "pick", "", "comma-separated bin order to pick")
	cmd.Flags().StringArrayVar(&opts.focus, "focus", nil, "focus window seq:start-end, repeatable")
	cmd.Flags().IntVar(&opts.margin, "margin", 0, "expand each focus window by this many positions")

	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the layout document cache")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, opts layoutOptions) error {
	logger := loggerFromContext(ctx)

	lopts, err := c.engineOptions(opts)
	if err != nil {
		return err
	}

	store := c.newCache(ctx, opts.noCache)
	defer store.Close()

	reg, inputHash, err := c.ingestTracks(ctx, store, opts)
	if err != nil {
		return err
	}

	// Cached documents short-circuit the rest of the pipeline for repeated
	// runs on big inputs.
	key := cache.DocumentKey(inputHash, struct {
		Gap       int
		Strict    bool
		ZeroStart bool
		Marginal  layout.MarginalPolicy
		BinOrder  []string
		SeqOrder  []string
		Flip      string
		Pick      string
		Focus     []string
		Margin    int
	}{lopts.Gap, lopts.Strict, lopts.ZeroStart, lopts.Marginal, lopts.BinOrder, lopts.SeqOrder,
		opts.flip, opts.pick, opts.focus, opts.margin})

	if data, hit, err := store.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "doc")
		logger.Debug("document cache hit", "key", key[:16])
		return writeOutput(opts.output, data)
	}
	observability.Cache().OnCacheMiss(ctx, "doc")

	p := newProgress(logger)
	observability.Layout().OnLayoutStart(ctx, len(reg.Sequences()))
	l, err := layout.New(reg, lopts)
	observability.Layout().OnLayoutComplete(ctx, len(reg.Sequences()), time.Since(p.start), err)
	if err != nil {
		return err
	}

	if l, err = c.applyTransforms(ctx, l, opts); err != nil {
		return err
	}

	for _, d := range l.Diagnostics() {
		observability.Layout().OnRowsDropped(ctx, d.Track, d.Dropped)
		printWarning("track %s: dropped %d rows with unresolved seq_ids (e.g. %s)",
			d.Track, d.Dropped, strings.Join(d.Examples, ", "))
	}

	doc, err := export.Snapshot(l)
	if err != nil {
		return err
	}
	data, err := doc.Marshal()
	if err != nil {
		return err
	}
	cachePut(ctx, store, "doc", key, data)

	if err := writeOutput(opts.output, data); err != nil {
		return err
	}
	p.done("Layout complete")

	printSuccess("Layout complete")
	if opts.output != "-" {
		printFile(opts.output)
	}
	featCount, linkCount := 0, 0
	for _, td := range doc.FeatTracks {
		featCount += len(td.Rows)
	}
	for _, td := range doc.LinkTracks {
		linkCount += len(td.Rows)
	}
	printStats(len(doc.Seqs), featCount, linkCount)

	return nil
}

// engineOptions merges config defaults with the command's flags.
func (c *CLI) engineOptions(opts layoutOptions) (layout.Options, error) {
	lopts := c.cfg.LayoutOptions()
	if opts.gap >= 0 {
		lopts.Gap = opts.gap
	}
	if opts.strict {
		lopts.Strict = true
	}
	if opts.zeroStart {
		lopts.ZeroStart = true
	}
	if opts.marginal != "" {
		policy, err := layout.ParseMarginalPolicy(opts.marginal)
		if err != nil {
			return layout.Options{}, err
		}
		lopts.Marginal = policy
	}
	lopts.BinOrder = splitList(opts.binOrder)
	lopts.SeqOrder = splitList(opts.seqOrder)
	return lopts, nil
}

// ingestTracks reads every input file into a registry, hashing the raw
// inputs for the document cache key. Parsed tables are cached keyed on the
// file's content hash, so repeated runs over unchanged inputs skip parsing.
func (c *CLI) ingestTracks(ctx context.Context, store cache.Cache, opts layoutOptions) (*track.Registry, string, error) {
	logger := loggerFromContext(ctx)
	reg := track.New()
	hasher := newInputHasher()

	if opts.seqs != "" {
		rows, err := c.readWithHooks(ctx, "tsv", opts.seqs, hasher, func(hash string) (int, error) {
			rows, err := cachedTable(ctx, store, "seqs", hash, func() ([]track.Sequence, error) {
				return ingest.ReadSequencesTSVFile(opts.seqs)
			})
			if err != nil {
				return 0, err
			}
			return len(rows), reg.SetSequences(rows)
		})
		if err != nil {
			return nil, "", err
		}
		logger.Debug("sequences loaded", "path", opts.seqs, "rows", rows)
	}

	feats := make([]trackArg, 0, len(opts.feats)+len(opts.genes))
	for _, arg := range opts.feats {
		feats = append(feats, parseTrackArg(arg))
	}
	for _, path := range opts.genes {
		feats = append(feats, trackArg{name: track.DefaultGenesTrack, path: path})
	}

	for _, arg := range feats {
		format := featFormat(arg.path)
		rows, err := c.readWithHooks(ctx, format, arg.path, hasher, func(hash string) (int, error) {
			rows, err := cachedTable(ctx, store, "feats-"+format, hash, func() ([]track.Feature, error) {
				return readFeats(format, arg.path)
			})
			if err != nil {
				return 0, err
			}
			_, err = reg.AddFeats(arg.name, rows)
			return len(rows), err
		})
		if err != nil {
			return nil, "", err
		}
		logger.Debug("feature track loaded", "path", arg.path, "format", format, "rows", rows)
	}

	for _, raw := range opts.links {
		arg := parseTrackArg(raw)
		format := linkFormat(arg.path)
		rows, err := c.readWithHooks(ctx, format, arg.path, hasher, func(hash string) (int, error) {
			tbl, err := cachedTable(ctx, store, "links-"+format, hash, func() (linkTable, error) {
				rows, seqs, err := readLinks(format, arg.path)
				return linkTable{Links: rows, Seqs: seqs}, err
			})
			if err != nil {
				return 0, err
			}
			// PAF lengths seed the sequence table when none was given.
			if len(tbl.Seqs) > 0 && !reg.HasSequences() {
				if err := reg.SetSequences(tbl.Seqs); err != nil {
					return 0, err
				}
			}
			_, err = reg.AddLinks(arg.name, tbl.Links)
			return len(tbl.Links), err
		})
		if err != nil {
			return nil, "", err
		}
		logger.Debug("link track loaded", "path", arg.path, "format", format, "rows", rows)
	}

	return reg, hasher.sum(), nil
}

// readWithHooks wraps one ingest call with observability events and input
// hashing; read receives the file's content hash for table-cache keying.
func (c *CLI) readWithHooks(ctx context.Context, format, path string, h *inputHasher, read func(contentHash string) (int, error)) (int, error) {
	observability.Layout().OnIngestStart(ctx, format, path)
	start := time.Now()

	hash, err := h.addFile(path)
	if err != nil {
		observability.Layout().OnIngestComplete(ctx, format, path, 0, time.Since(start), err)
		return 0, err
	}
	rows, err := read(hash)
	observability.Layout().OnIngestComplete(ctx, format, path, rows, time.Since(start), err)
	return rows, err
}

// linkTable bundles the two results of a link read so they cache as one
// entry.
type linkTable struct {
	Links []track.Link
	Seqs  []track.Sequence
}

// cachedTable returns parsed rows for one input table, going through the
// byte cache keyed on the parser kind and the file's content hash. Cache
// failures fall back to parsing.
func cachedTable[T any](ctx context.Context, store cache.Cache, kind, contentHash string, parse func() (T, error)) (T, error) {
	key := cache.TableKey(kind, contentHash)
	if data, hit, err := store.Get(ctx, key); err == nil && hit {
		var rows T
		if json.Unmarshal(data, &rows) == nil {
			observability.Cache().OnCacheHit(ctx, "table")
			return rows, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "table")

	rows, err := parse()
	if err != nil {
		return rows, err
	}
	if data, err := json.Marshal(rows); err == nil {
		cachePut(ctx, store, "table", key, data)
	}
	return rows, nil
}

// cachePut writes one cache entry, logging degradation instead of failing
// the run.
func cachePut(ctx context.Context, store cache.Cache, keyType, key string, data []byte) {
	if err := store.Set(ctx, key, data, 0); err != nil {
		loggerFromContext(ctx).Debug("cache write failed", "kind", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// applyTransforms runs the flag-driven transforms in their fixed order.
func (c *CLI) applyTransforms(ctx context.Context, l *layout.Layout, opts layoutOptions) (*layout.Layout, error) {
	run := func(op string, fn func() (*layout.Layout, error)) error {
		start := time.Now()
		next, err := fn()
		observability.Layout().OnTransform(ctx, op, time.Since(start), err)
		if err != nil {
			return err
		}
		l = next
		return nil
	}

	if targets := splitList(opts.flip); len(targets) > 0 {
		if err := run("flip", func() (*layout.Layout, error) {
			return transform.Flip(l, targets...)
		}); err != nil {
			return nil, err
		}
	}
	if bins := splitList(opts.pick); len(bins) > 0 {
		if err := run("pick", func() (*layout.Layout, error) {
			return transform.Pick(l, bins...)
		}); err != nil {
			return nil, err
		}
	}
	if len(opts.focus) > 0 {
		subs, err := parseFocusArgs(opts.focus)
		if err != nil {
			return nil, err
		}
		if err := run("focus", func() (*layout.Layout, error) {
			return transform.Focus(l, transform.FocusOptions{
				Subseqs:    subs,
				MarginUp:   opts.margin,
				MarginDown: opts.margin,
			})
		}); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// trackArg is one [name=]path track flag value.
type trackArg struct {
	name string
	path string
}

func parseTrackArg(arg string) trackArg {
	if name, path, found := strings.Cut(arg, "="); found {
		return trackArg{name: name, path: path}
	}
	return trackArg{path: arg}
}

// parseFocusArgs parses seq:start-end window specs.
func parseFocusArgs(args []string) ([]transform.Subseq, error) {
	subs := make([]transform.Subseq, 0, len(args))
	for _, arg := range args {
		seqID, span, found := strings.Cut(arg, ":")
		if !found {
			return nil, errors.New(errors.ErrCodeValidation, "invalid focus window %q, expected seq:start-end", arg)
		}
		lo, hi, found := strings.Cut(span, "-")
		if !found {
			return nil, errors.New(errors.ErrCodeValidation, "invalid focus window %q, expected seq:start-end", arg)
		}
		start, err1 := strconv.Atoi(lo)
		end, err2 := strconv.Atoi(hi)
		if err1 != nil || err2 != nil {
			return nil, errors.New(errors.ErrCodeValidation, "invalid focus window %q, expected seq:start-end", arg)
		}
		subs = append(subs, transform.Subseq{SeqID: seqID, Start: start, End: end})
	}
	return subs, nil
}

func featFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gff", ".gff3":
		return "gff"
	case ".bed":
		return "bed"
	default:
		return "tsv"
	}
}

func linkFormat(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".paf") {
		return "paf"
	}
	return "tsv"
}

func readFeats(format, path string) ([]track.Feature, error) {
	switch format {
	case "gff":
		return ingest.ReadGFFFile(path)
	case "bed":
		return ingest.ReadBEDFile(path)
	default:
		return ingest.ReadFeatsTSVFile(path)
	}
}

func readLinks(format, path string) ([]track.Link, []track.Sequence, error) {
	if format == "paf" {
		return ingest.ReadPAFFile(path)
	}
	links, err := ingest.ReadLinksTSVFile(path)
	return links, nil, err
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// inputHasher accumulates the content hash of every input file.
type inputHasher struct {
	hashes []string
}

func newInputHasher() *inputHasher { return &inputHasher{} }

// addFile hashes one input file's content, accumulating it for the document
// key and returning it for the table key.
func (h *inputHasher) addFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", errors.New(errors.ErrCodeFileNotFound, "file not found: %s", path)
		}
		return "", errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	hash := cache.Hash(data)
	h.hashes = append(h.hashes, hash)
	return hash, nil
}

func (h *inputHasher) sum() string {
	return cache.Hash([]byte(strings.Join(h.hashes, "\n")))
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
