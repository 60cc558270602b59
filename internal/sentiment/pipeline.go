package sentiment

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/ycsa-dashboard/backend/internal/analysis"
	"github.com/ycsa-dashboard/backend/internal/plotly"
	"github.com/ycsa-dashboard/backend/internal/table"
)

// NoChartsHint is shown when the table has nothing to score.
const NoChartsHint = "No charts were produced. Make sure the CSV has a comment text column (for example `comment`, `text` or `textDisplay`) with at least one non-empty row."

// Chart names in the order they are produced.
const (
	ChartDistribution = "sentiment_distribution"
	ChartHistogram    = "compound_histogram"
	ChartOverTime     = "sentiment_over_time"
	ChartTopWords     = "top_words"
	ChartLikes        = "likes_vs_sentiment"
	ChartAuthors      = "top_authors"
)

const (
	histogramBins = 20
	topN          = 10
)

var labelColors = map[Label]string{
	Positive: "#2ca02c",
	Neutral:  "#7f7f7f",
	Negative: "#d62728",
}

// Options configures a Pipeline.
type Options struct {
	Lexicon *Lexicon
	// Threads bounds DuckDB worker threads per analysis.
	Threads int
}

// Pipeline is the typed sentiment analysis engine. It implements
// analysis.Analyzer.
type Pipeline struct {
	lexicon *Lexicon
	threads int
	logger  *zap.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(opts Options, logger *zap.Logger) *Pipeline {
	if opts.Lexicon == nil {
		opts.Lexicon = DefaultLexicon()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{lexicon: opts.Lexicon, threads: opts.Threads, logger: logger.Named("sentiment")}
}

func (p *Pipeline) Name() string { return "pipeline" }

func (p *Pipeline) NoChartsHint() string { return NoChartsHint }

// Analyze scores every comment and builds the charts its columns allow.
func (p *Pipeline) Analyze(ctx context.Context, in analysis.Input) ([]analysis.Figure, error) {
	t := in.Table
	if t == nil {
		data, err := os.ReadFile(in.CSVPath)
		if err != nil {
			return nil, analysis.ExecutionFailed(fmt.Errorf("reading input: %w", err))
		}
		if t, err = table.Parse(data); err != nil {
			return nil, analysis.ExecutionFailed(err)
		}
	}

	start := time.Now()
	cols := DetectColumns(t)
	if !cols.HasText() {
		p.logger.Info("no comment text column", zap.Strings("header", t.Header))
		return nil, nil
	}

	rows, err := p.score(ctx, t, cols)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	figs, err := p.chart(ctx, rows, cols)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, analysis.ExecutionFailed(err)
	}
	p.logger.Info("sentiment analysis complete",
		zap.Int("comments", len(rows)),
		zap.String("text_column", t.Header[cols.Text]),
		zap.Int("charts", len(figs)),
		zap.Duration("elapsed", time.Since(start)))
	return figs, nil
}

func (p *Pipeline) score(ctx context.Context, t *table.Table, cols Columns) ([]scored, error) {
	rows := make([]scored, 0, len(t.Rows))
	for i, rec := range t.Rows {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		text := strings.TrimSpace(rec[cols.Text])
		if text == "" {
			continue
		}
		s := p.lexicon.Score(text)
		r := scored{
			Compound: s.Compound,
			Label:    s.Label,
			Positive: s.Positive,
			Negative: s.Negative,
		}
		if cols.Author >= 0 {
			r.Author = strings.TrimSpace(rec[cols.Author])
		}
		if cols.Date >= 0 {
			r.Day, _ = parseDay(rec[cols.Date])
		}
		if cols.Likes >= 0 {
			if v, ok := parseCount(rec[cols.Likes]); ok {
				r.Likes = &v
			}
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// aggregates holds every query result needed for the charts.
type aggregates struct {
	counts    map[Label]int64
	days      []dayStat
	posWords  []wordCount
	negWords  []wordCount
	authors   []authorStat
	likes     []float64
	likeScore []float64
}

func (p *Pipeline) aggregate(ctx context.Context, rows []scored, cols Columns) (*aggregates, error) {
	store, err := openAggStore(ctx, p.threads)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	if err := store.load(ctx, rows); err != nil {
		return nil, err
	}

	agg := &aggregates{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		agg.counts, err = store.labelCounts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		agg.posWords, err = store.topWords(gctx, Positive, topN)
		return err
	})
	g.Go(func() error {
		var err error
		agg.negWords, err = store.topWords(gctx, Negative, topN)
		return err
	})
	if cols.Date >= 0 {
		g.Go(func() error {
			var err error
			agg.days, err = store.daily(gctx)
			return err
		})
	}
	if cols.Author >= 0 {
		g.Go(func() error {
			var err error
			agg.authors, err = store.topAuthors(gctx, topN)
			return err
		})
	}
	if cols.Likes >= 0 {
		g.Go(func() error {
			var err error
			agg.likes, agg.likeScore, err = store.likesAndScores(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return agg, nil
}

func (p *Pipeline) chart(ctx context.Context, rows []scored, cols Columns) ([]analysis.Figure, error) {
	agg, err := p.aggregate(ctx, rows, cols)
	if err != nil {
		return nil, err
	}
	compounds := make([]float64, len(rows))
	for i, r := range rows {
		compounds[i] = r.Compound
	}

	var figs []analysis.Figure
	add := func(name, source string, f *plotly.Figure) error {
		if f == nil {
			return nil
		}
		raw, err := f.JSON()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		figs = append(figs, analysis.Figure{Name: name, Source: source, Payload: raw})
		return nil
	}

	steps := []struct {
		name   string
		source string
		build  func() (*plotly.Figure, error)
	}{
		{ChartDistribution, fmt.Sprintf("label counts over %d comments", len(rows)),
			func() (*plotly.Figure, error) { return distributionChart(agg.counts), nil }},
		{ChartHistogram, "compound scores in 20 bins over [-1, 1]",
			func() (*plotly.Figure, error) { return histogramChart(compounds) }},
		{ChartOverTime, "daily mean compound score and comment volume",
			func() (*plotly.Figure, error) { return overTimeChart(agg.days), nil }},
		{ChartTopWords, "most frequent lexicon words per polarity",
			func() (*plotly.Figure, error) { return topWordsChart(agg.posWords, agg.negWords), nil }},
		{ChartLikes, "like counts against compound score",
			func() (*plotly.Figure, error) { return likesChart(agg.likes, agg.likeScore), nil }},
		{ChartAuthors, "top authors by comment count",
			func() (*plotly.Figure, error) { return authorsChart(agg.authors), nil }},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := s.build()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.name, err)
		}
		if err := add(s.name, s.source, f); err != nil {
			return nil, err
		}
	}
	return figs, nil
}

func distributionChart(counts map[Label]int64) *plotly.Figure {
	var labels []string
	var values []float64
	var colors []string
	for _, l := range Labels {
		if n := counts[l]; n > 0 {
			labels = append(labels, string(l))
			values = append(values, float64(n))
			colors = append(colors, labelColors[l])
		}
	}
	return plotly.New("Sentiment Distribution", "", "",
		plotly.Pie(labels, values).WithColors(colors))
}

func histogramChart(compounds []float64) (*plotly.Figure, error) {
	mean, err := stats.Mean(compounds)
	if err != nil {
		return nil, err
	}
	median, err := stats.Median(compounds)
	if err != nil {
		return nil, err
	}

	dividers := make([]float64, histogramBins+1)
	floats.Span(dividers, -1, 1)
	// The upper bound is exclusive; widen it so a compound of exactly 1
	// lands in the last bin.
	dividers[histogramBins] = math.Nextafter(1, 2)

	sorted := append([]float64(nil), compounds...)
	sort.Float64s(sorted)
	counts := stat.Histogram(nil, dividers, sorted, nil)

	centers := make([]string, histogramBins)
	for i := range centers {
		centers[i] = fmt.Sprintf("%.2f", (dividers[i]+math.Min(dividers[i+1], 1))/2)
	}
	title := fmt.Sprintf("Compound Score Histogram (mean %.2f, median %.2f)", mean, median)
	return plotly.New(title, "Compound score", "Comments",
		plotly.Bar("comments", centers, counts).WithColor("#1f77b4")), nil
}

func overTimeChart(days []dayStat) *plotly.Figure {
	if len(days) == 0 {
		return nil
	}
	x := make([]string, len(days))
	means := make([]float64, len(days))
	volume := make([]float64, len(days))
	for i, d := range days {
		x[i] = d.Day
		means[i] = d.Mean
		volume[i] = float64(d.Count)
	}
	f := plotly.New("Sentiment Over Time", "Day", "Mean compound",
		plotly.Bar("comments", x, volume).WithColor("#c7d7e8").OnSecondaryAxis(),
		plotly.Line("mean compound", x, means).WithColor("#1f77b4"),
	)
	f.SetLayout("yaxis2", map[string]any{
		"title":      map[string]any{"text": "Comments"},
		"overlaying": "y",
		"side":       "right",
	})
	return f
}

func topWordsChart(pos, neg []wordCount) *plotly.Figure {
	if len(pos) == 0 && len(neg) == 0 {
		return nil
	}
	var traces []plotly.Trace
	if len(pos) > 0 {
		words, counts := wordSeries(pos, 1)
		traces = append(traces, plotly.HorizontalBar(string(Positive), words, counts).WithColor(labelColors[Positive]))
	}
	if len(neg) > 0 {
		words, counts := wordSeries(neg, -1)
		traces = append(traces, plotly.HorizontalBar(string(Negative), words, counts).WithColor(labelColors[Negative]))
	}
	f := plotly.New("Top Words by Sentiment", "Occurrences", "", traces...)
	f.SetLayout("barmode", "relative")
	return f
}

func wordSeries(words []wordCount, sign float64) ([]string, []float64) {
	labels := make([]string, len(words))
	counts := make([]float64, len(words))
	for i, w := range words {
		labels[i] = w.Word
		counts[i] = sign * float64(w.Count)
	}
	return labels, counts
}

func likesChart(likes, compounds []float64) *plotly.Figure {
	if len(likes) < 2 {
		return nil
	}
	title := "Likes vs Sentiment (r = n/a)"
	if r := stat.Correlation(compounds, likes, nil); !math.IsNaN(r) {
		title = fmt.Sprintf("Likes vs Sentiment (r = %.2f", r)
		if p, ok := pearsonP(r, len(likes)); ok {
			title += fmt.Sprintf(", p = %.3f", p)
		}
		title += ")"
	}
	return plotly.New(title, "Compound score", "Likes",
		plotly.Scatter("comments", compounds, likes).WithColor("#9467bd"))
}

// pearsonP is the two-sided p-value of a Pearson r over n samples.
func pearsonP(r float64, n int) (float64, bool) {
	if n < 3 || math.Abs(r) >= 1 {
		return 0, false
	}
	df := float64(n - 2)
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return 2 * (1 - dist.CDF(math.Abs(t))), true
}

func authorsChart(authors []authorStat) *plotly.Figure {
	if len(authors) == 0 {
		return nil
	}
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Author
	}
	var traces []plotly.Trace
	for _, l := range Labels {
		counts := make([]float64, len(authors))
		for i, a := range authors {
			counts[i] = float64(a.ByLabel[l])
		}
		traces = append(traces, plotly.Bar(string(l), names, counts).WithColor(labelColors[l]))
	}
	f := plotly.New("Most Active Authors", "Author", "Comments", traces...)
	f.SetLayout("barmode", "stack")
	return f
}
