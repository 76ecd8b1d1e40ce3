// Package storage is ledgerd's SQLite repository. It is the sole owner of
// all four collections; ids and creation dates are assigned here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mibalance/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record id does not exist in its collection.
var ErrNotFound = errors.New("record not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
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

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, description, fecha FROM incomes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		var (
			id    int64
			cents int64
			desc  string
			fecha string
		)
		if err := rows.Scan(&id, &cents, &desc, &fecha); err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		date, err := parseStoredDate(fecha)
		if err != nil {
			return nil, fmt.Errorf("income %d: %w", id, err)
		}
		out = append(out, core.Income{
			ID:          strconv.FormatInt(id, 10),
			Amount:      core.Money{Cents: cents},
			Description: desc,
			Date:        date,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateIncome(ctx context.Context, n core.NewIncome, now time.Time) (core.Income, error) {
	fecha := now.UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO incomes (amount_cents, description, fecha) VALUES (?, ?, ?)`,
		n.Amount.Cents, n.Description, fecha)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Income{}, fmt.Errorf("create income id: %w", err)
	}

	slog.InfoContext(ctx, "Income saved",
		"id", id,
		"amount_cents", n.Amount.Cents,
		"description", n.Description)

	return core.Income{
		ID:          strconv.FormatInt(id, 10),
		Amount:      n.Amount,
		Description: n.Description,
		Date:        now.UTC(),
	}, nil
}

func (r *Repository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, amount_cents, categoria, description, fecha FROM expenses ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	var out []core.Expense
	for rows.Next() {
		var (
			id        int64
			cents     int64
			categoria string
			desc      string
			fecha     string
		)
		if err := rows.Scan(&id, &cents, &categoria, &desc, &fecha); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		date, err := parseStoredDate(fecha)
		if err != nil {
			return nil, fmt.Errorf("expense %d: %w", id, err)
		}
		out = append(out, core.Expense{
			ID:          strconv.FormatInt(id, 10),
			Amount:      core.Money{Cents: cents},
			Category:    core.Category(categoria),
			Description: desc,
			Date:        date,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateExpense(ctx context.Context, n core.NewExpense, now time.Time) (core.Expense, error) {
	fecha := now.UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO expenses (amount_cents, categoria, description, fecha) VALUES (?, ?, ?, ?)`,
		n.Amount.Cents, string(n.Category), n.Description, fecha)
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense id: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"amount_cents", n.Amount.Cents,
		"category", string(n.Category),
		"description", n.Description)

	return core.Expense{
		ID:          strconv.FormatInt(id, 10),
		Amount:      n.Amount,
		Category:    n.Category,
		Description: n.Description,
		Date:        now.UTC(),
	}, nil
}

// Balance sums both collections in the store so the served summary always
// matches what a client would compute from the raw records.
func (r *Repository) Balance(ctx context.Context) (core.BalanceSummary, error) {
	var in, out int64
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM incomes`).Scan(&in); err != nil {
		return core.BalanceSummary{}, fmt.Errorf("sum incomes: %w", err)
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM expenses`).Scan(&out); err != nil {
		return core.BalanceSummary{}, fmt.Errorf("sum expenses: %w", err)
	}
	return core.BalanceSummary{
		Incomes:  core.Money{Cents: in},
		Expenses: core.Money{Cents: out},
		Balance:  core.Money{Cents: in - out},
	}, nil
}

func (r *Repository) ListReminders(ctx context.Context) ([]core.Reminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, titulo, fecha, amount_cents, completado FROM reminders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var out []core.Reminder
	for rows.Next() {
		var (
			id     int64
			titulo string
			fecha  string
			cents  int64
			done   int64
		)
		if err := rows.Scan(&id, &titulo, &fecha, &cents, &done); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		date, err := parseStoredDate(fecha)
		if err != nil {
			return nil, fmt.Errorf("reminder %d: %w", id, err)
		}
		out = append(out, core.Reminder{
			ID:     strconv.FormatInt(id, 10),
			Title:  titulo,
			Date:   date,
			Amount: core.Money{Cents: cents},
			Done:   done != 0,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	return out, nil
}

func (r *Repository) CreateReminder(ctx context.Context, n core.NewReminder) (core.Reminder, error) {
	fecha := n.Date.UTC().Format(time.RFC3339)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reminders (titulo, fecha, amount_cents, completado) VALUES (?, ?, ?, 0)`,
		n.Title, fecha, n.Amount.Cents)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Reminder{}, fmt.Errorf("create reminder id: %w", err)
	}

	slog.InfoContext(ctx, "Reminder saved", "id", id, "titulo", n.Title)

	return core.Reminder{
		ID:     strconv.FormatInt(id, 10),
		Title:  n.Title,
		Date:   n.Date.UTC(),
		Amount: n.Amount,
		Done:   false,
	}, nil
}

func (r *Repository) SetReminderDone(ctx context.Context, id string, done bool) (core.Reminder, error) {
	numID, err := parseID(id)
	if err != nil {
		return core.Reminder{}, err
	}
	doneInt := 0
	if done {
		doneInt = 1
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reminders SET completado = ? WHERE id = ?`, doneInt, numID)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("update reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return core.Reminder{}, fmt.Errorf("update reminder: %w", err)
	}
	if affected == 0 {
		return core.Reminder{}, ErrNotFound
	}

	var (
		titulo string
		fecha  string
		cents  int64
	)
	err = r.db.QueryRowContext(ctx,
		`SELECT titulo, fecha, amount_cents FROM reminders WHERE id = ?`, numID).
		Scan(&titulo, &fecha, &cents)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("read updated reminder: %w", err)
	}
	date, err := parseStoredDate(fecha)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("reminder %d: %w", numID, err)
	}

	slog.InfoContext(ctx, "Reminder updated", "id", numID, "completado", done)

	return core.Reminder{
		ID:     id,
		Title:  titulo,
		Date:   date,
		Amount: core.Money{Cents: cents},
		Done:   done,
	}, nil
}

func (r *Repository) DeleteReminder(ctx context.Context, id string) error {
	numID, err := parseID(id)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, numID)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	slog.InfoContext(ctx, "Reminder deleted", "id", numID)
	return nil
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, ErrNotFound
	}
	return n, nil
}

func parseStoredDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored fecha %q: %w", s, err)
	}
	return t, nil
}
