package sentiment

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb"
)

// scored is one comment after scoring.
type scored struct {
	Author   string
	Day      string // empty when unknown
	Likes    *float64
	Compound float64
	Label    Label
	Positive []string
	Negative []string
}

// aggStore is a throwaway in-memory DuckDB database for one analysis.
type aggStore struct {
	db *sql.DB
}

func openAggStore(ctx context.Context, threads int) (*aggStore, error) {
	if threads <= 0 {
		threads = 2
	}
	connector, err := duckdb.NewConnector("", func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA threads=%d", threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	schema := []string{
		`CREATE TABLE comments (
			idx INTEGER,
			author VARCHAR,
			day VARCHAR,
			likes DOUBLE,
			compound DOUBLE,
			label VARCHAR
		)`,
		`CREATE TABLE words (
			label VARCHAR,
			word VARCHAR
		)`,
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}
	return &aggStore{db: db}, nil
}

func (s *aggStore) Close() error {
	return s.db.Close()
}

// load appends scored comments with the native Appender API.
func (s *aggStore) load(ctx context.Context, rows []scored) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	return conn.Raw(func(driverConn interface{}) error {
		dConn, ok := driverConn.(*duckdb.Conn)
		if !ok {
			return fmt.Errorf("failed to cast to duckdb.Conn")
		}

		comments, err := duckdb.NewAppenderFromConn(dConn, "", "comments")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer comments.Close()
		words, err := duckdb.NewAppenderFromConn(dConn, "", "words")
		if err != nil {
			return fmt.Errorf("failed to create appender: %w", err)
		}
		defer words.Close()

		for i, r := range rows {
			var likes, author, day any
			if r.Likes != nil {
				likes = *r.Likes
			}
			if r.Author != "" {
				author = r.Author
			}
			if r.Day != "" {
				day = r.Day
			}
			if err := comments.AppendRow(int32(i), author, day, likes, r.Compound, string(r.Label)); err != nil {
				return fmt.Errorf("failed to append row %d: %w", i, err)
			}
			for _, w := range r.Positive {
				if err := words.AppendRow(string(Positive), w); err != nil {
					return fmt.Errorf("failed to append word: %w", err)
				}
			}
			for _, w := range r.Negative {
				if err := words.AppendRow(string(Negative), w); err != nil {
					return fmt.Errorf("failed to append word: %w", err)
				}
			}
		}
		if err := comments.Flush(); err != nil {
			return err
		}
		return words.Flush()
	})
}

// labelCounts returns comments per label.
func (s *aggStore) labelCounts(ctx context.Context) (map[Label]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, COUNT(*) FROM comments GROUP BY label`)
	if err != nil {
		return nil, fmt.Errorf("label counts: %w", err)
	}
	defer rows.Close()

	out := make(map[Label]int64, len(Labels))
	for rows.Next() {
		var label string
		var n int64
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		out[Label(label)] = n
	}
	return out, rows.Err()
}

// dayStat is the sentiment of one calendar day.
type dayStat struct {
	Day   string
	Mean  float64
	Count int64
}

func (s *aggStore) daily(ctx context.Context) ([]dayStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, AVG(compound), COUNT(*)
		FROM comments
		WHERE day IS NOT NULL
		GROUP BY day
		ORDER BY day
	`)
	if err != nil {
		return nil, fmt.Errorf("daily sentiment: %w", err)
	}
	defer rows.Close()

	var out []dayStat
	for rows.Next() {
		var d dayStat
		if err := rows.Scan(&d.Day, &d.Mean, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// wordCount is how often a lexicon word contributed to a label.
type wordCount struct {
	Word  string
	Count int64
}

func (s *aggStore) topWords(ctx context.Context, label Label, limit int) ([]wordCount, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT word, COUNT(*) AS n
		FROM words
		WHERE label = ?
		GROUP BY word
		ORDER BY n DESC, word
		LIMIT %d
	`, limit), string(label))
	if err != nil {
		return nil, fmt.Errorf("top %s words: %w", label, err)
	}
	defer rows.Close()

	var out []wordCount
	for rows.Next() {
		var w wordCount
		if err := rows.Scan(&w.Word, &w.Count); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// authorStat counts one author's comments by label.
type authorStat struct {
	Author  string
	Total   int64
	ByLabel map[Label]int64
}

func (s *aggStore) topAuthors(ctx context.Context, limit int) ([]authorStat, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT author,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE label = 'positive'),
			COUNT(*) FILTER (WHERE label = 'neutral'),
			COUNT(*) FILTER (WHERE label = 'negative')
		FROM comments
		WHERE author IS NOT NULL
		GROUP BY author
		ORDER BY total DESC, author
		LIMIT %d
	`, limit))
	if err != nil {
		return nil, fmt.Errorf("top authors: %w", err)
	}
	defer rows.Close()

	var out []authorStat
	for rows.Next() {
		var a authorStat
		var pos, neu, neg int64
		if err := rows.Scan(&a.Author, &a.Total, &pos, &neu, &neg); err != nil {
			return nil, err
		}
		a.ByLabel = map[Label]int64{Positive: pos, Neutral: neu, Negative: neg}
		out = append(out, a)
	}
	return out, rows.Err()
}

// likesAndScores returns paired likes and compounds for rows with likes.
func (s *aggStore) likesAndScores(ctx context.Context) (likes, compounds []float64, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT likes, compound FROM comments WHERE likes IS NOT NULL ORDER BY idx`)
	if err != nil {
		return nil, nil, fmt.Errorf("likes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l, c float64
		if err := rows.Scan(&l, &c); err != nil {
			return nil, nil, err
		}
		likes = append(likes, l)
		compounds = append(compounds, c)
	}
	return likes, compounds, rows.Err()
}
