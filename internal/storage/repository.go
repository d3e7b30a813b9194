package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"thongke/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ReadDataset implements sheets.DatasetReader. The seven registers are
// loaded concurrently; the first failure cancels the others.
func (r *SQLiteRepository) ReadDataset(ctx context.Context) (core.Dataset, error) {
	start := time.Now()
	var ds core.Dataset
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		ds.Houses, err = queryAll(gctx, r.db, "houses", `SELECT id, status, created_at, updated_at, number, street, owner FROM houses ORDER BY created_at`,
			func(rows *sql.Rows) (core.HouseRecord, error) {
				var h core.HouseRecord
				var ts timestamps
				err := rows.Scan(&h.ID, &h.Status, &ts.created, &ts.updated, &h.Number, &h.Street, &h.Owner)
				ts.apply(&h.Meta)
				return h, err
			})
		return err
	})
	g.Go(func() (err error) {
		ds.Lands, err = queryAll(gctx, r.db, "lands", `SELECT id, status, created_at, updated_at, parcel, sheet, area, usage FROM lands ORDER BY created_at`,
			func(rows *sql.Rows) (core.LandRecord, error) {
				var l core.LandRecord
				var ts timestamps
				var area sql.NullFloat64
				err := rows.Scan(&l.ID, &l.Status, &ts.created, &ts.updated, &l.Parcel, &l.Sheet, &area, &l.Usage)
				ts.apply(&l.Meta)
				l.Area = core.SquareMeters(area.Float64)
				return l, err
			})
		return err
	})
	g.Go(func() (err error) {
		ds.Generals, err = queryAll(gctx, r.db, "generals", `SELECT id, status, created_at, updated_at, full_name, rank, tier FROM generals ORDER BY created_at`,
			func(rows *sql.Rows) (core.GeneralRecord, error) {
				var gr core.GeneralRecord
				var ts timestamps
				err := rows.Scan(&gr.ID, &gr.Status, &ts.created, &ts.updated, &gr.FullName, &gr.Rank, &gr.Tier)
				ts.apply(&gr.Meta)
				return gr, err
			})
		return err
	})
	g.Go(func() (err error) {
		ds.Merits, err = queryBenefits(gctx, r.db, "merits", func(b benefit) core.MeritRecord {
			return core.MeritRecord{Meta: b.meta, FullName: b.name, Kind: b.kind, Amount: b.amount}
		})
		return err
	})
	g.Go(func() (err error) {
		ds.Medals, err = queryBenefits(gctx, r.db, "medals", func(b benefit) core.MedalRecord {
			return core.MedalRecord{Meta: b.meta, FullName: b.name, Medal: b.kind, Amount: b.amount}
		})
		return err
	})
	g.Go(func() (err error) {
		ds.Policies, err = queryBenefits(gctx, r.db, "policies", func(b benefit) core.PolicyRecord {
			return core.PolicyRecord{Meta: b.meta, FullName: b.name, Kind: b.kind, Amount: b.amount}
		})
		return err
	})
	g.Go(func() (err error) {
		ds.Socials, err = queryBenefits(gctx, r.db, "socials", func(b benefit) core.SocialRecord {
			return core.SocialRecord{Meta: b.meta, FullName: b.name, Kind: b.kind, Amount: b.amount}
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return core.Dataset{}, err
	}

	slog.DebugContext(ctx, "Dataset loaded from SQLite",
		"records", ds.Len(),
		"duration_ms", time.Since(start).Milliseconds())
	return ds, nil
}

// ImportDataset upserts every record of ds in a single transaction.
func (r *SQLiteRepository) ImportDataset(ctx context.Context, ds core.Dataset) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, h := range ds.Houses {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO houses (id, status, created_at, updated_at, number, street, owner) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			h.ID, string(h.Status), formatTime(h.CreatedAt), nullTime(h.UpdatedAt), h.Number, h.Street, h.Owner); err != nil {
			return fmt.Errorf("import house %s: %w", h.ID, err)
		}
	}
	for _, l := range ds.Lands {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO lands (id, status, created_at, updated_at, parcel, sheet, area, usage) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, string(l.Status), formatTime(l.CreatedAt), nullTime(l.UpdatedAt), l.Parcel, l.Sheet, float64(l.Area), l.Usage); err != nil {
			return fmt.Errorf("import land %s: %w", l.ID, err)
		}
	}
	for _, g := range ds.Generals {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO generals (id, status, created_at, updated_at, full_name, rank, tier) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			g.ID, string(g.Status), formatTime(g.CreatedAt), nullTime(g.UpdatedAt), g.FullName, g.Rank, g.Tier); err != nil {
			return fmt.Errorf("import general %s: %w", g.ID, err)
		}
	}

	benefits := map[string][]benefit{}
	for _, m := range ds.Merits {
		benefits["merits"] = append(benefits["merits"], benefit{m.Meta, m.FullName, m.Kind, m.Amount})
	}
	for _, m := range ds.Medals {
		benefits["medals"] = append(benefits["medals"], benefit{m.Meta, m.FullName, m.Medal, m.Amount})
	}
	for _, p := range ds.Policies {
		benefits["policies"] = append(benefits["policies"], benefit{p.Meta, p.FullName, p.Kind, p.Amount})
	}
	for _, s := range ds.Socials {
		benefits["socials"] = append(benefits["socials"], benefit{s.Meta, s.FullName, s.Kind, s.Amount})
	}
	for table, rows := range benefits {
		q := `INSERT OR REPLACE INTO ` + table + ` (id, status, created_at, updated_at, full_name, kind, amount) VALUES (?, ?, ?, ?, ?, ?, ?)`
		for _, b := range rows {
			if _, err := tx.ExecContext(ctx, q,
				b.meta.ID, string(b.meta.Status), formatTime(b.meta.CreatedAt), nullTime(b.meta.UpdatedAt), b.name, b.kind, b.amount.Dong); err != nil {
				return fmt.Errorf("import %s %s: %w", table, b.meta.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	slog.InfoContext(ctx, "Dataset imported into SQLite", "records", ds.Len())
	return nil
}

// benefit is the shared row shape of the four benefit registers.
type benefit struct {
	meta   core.Meta
	name   string
	kind   string
	amount core.Money
}

func queryBenefits[T any](ctx context.Context, db *sql.DB, table string, build func(benefit) T) ([]T, error) {
	q := `SELECT id, status, created_at, updated_at, full_name, kind, amount FROM ` + table + ` ORDER BY created_at`
	return queryAll(ctx, db, table, q, func(rows *sql.Rows) (T, error) {
		var b benefit
		var ts timestamps
		var amount sql.NullInt64
		err := rows.Scan(&b.meta.ID, &b.meta.Status, &ts.created, &ts.updated, &b.name, &b.kind, &amount)
		ts.apply(&b.meta)
		b.amount = core.Money{Dong: amount.Int64}
		return build(b), err
	})
}

func queryAll[T any](ctx context.Context, db *sql.DB, table, query string, scan func(*sql.Rows) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// timestamps holds the raw text columns until they are parsed into Meta.
// Unparseable values are left as the zero time.
type timestamps struct {
	created string
	updated sql.NullString
}

func (ts timestamps) apply(m *core.Meta) {
	if c, err := core.ParseTimestamp(ts.created); err == nil {
		m.CreatedAt = c
	} else {
		slog.Debug("Unparseable created_at", "id", m.ID, "value", ts.created)
	}
	if ts.updated.Valid {
		if u, err := core.ParseTimestamp(ts.updated.String); err == nil {
			m.UpdatedAt = u
		}
	}
}

func formatTime(t core.Timestamp) string {
	return core.FormatTimestamp(t)
}

func nullTime(t core.Timestamp) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}
