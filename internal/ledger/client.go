// Package ledger is the HTTP client for the remote ledger service. It wraps
// the four collections (ingresos, gastos, balance, recordatorios) and maps
// wire payloads to core records. The remote store owns all data; this client
// never caches, so every read replaces the caller's copy wholesale.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mibalance/internal/core"
)

// StatusError is a non-2xx response from the ledger service.
type StatusError struct {
	Op   string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: ledger returned status %d", e.Op, e.Code)
}

type Client struct {
	base string
	hc   *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, op, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Op: op, Code: resp.StatusCode}
	}
	if out == nil {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) ListIncomes(ctx context.Context) ([]core.Income, error) {
	var wires []incomeWire
	if err := c.do(ctx, "list incomes", http.MethodGet, "/ingresos", nil, &wires); err != nil {
		return nil, err
	}
	out := make([]core.Income, 0, len(wires))
	for _, w := range wires {
		in, err := w.toCore()
		if err != nil {
			return nil, fmt.Errorf("list incomes: record %s: %w", w.ID, err)
		}
		out = append(out, in)
	}
	return out, nil
}

func (c *Client) CreateIncome(ctx context.Context, n core.NewIncome) (core.Income, error) {
	if err := n.Validate(); err != nil {
		return core.Income{}, err
	}
	body := createIncomeBody{Monto: number(n.Amount), Description: n.Description}
	var w incomeWire
	if err := c.do(ctx, "create income", http.MethodPost, "/ingresos", body, &w); err != nil {
		return core.Income{}, err
	}
	created, err := w.toCore()
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	return created, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	var wires []expenseWire
	if err := c.do(ctx, "list expenses", http.MethodGet, "/gastos", nil, &wires); err != nil {
		return nil, err
	}
	out := make([]core.Expense, 0, len(wires))
	for _, w := range wires {
		ex, err := w.toCore()
		if err != nil {
			return nil, fmt.Errorf("list expenses: record %s: %w", w.ID, err)
		}
		out = append(out, ex)
	}
	return out, nil
}

func (c *Client) CreateExpense(ctx context.Context, n core.NewExpense) (core.Expense, error) {
	if err := n.Validate(); err != nil {
		return core.Expense{}, err
	}
	body := createExpenseBody{
		Monto:       number(n.Amount),
		Categoria:   string(n.Category),
		Description: n.Description,
	}
	var w expenseWire
	if err := c.do(ctx, "create expense", http.MethodPost, "/gastos", body, &w); err != nil {
		return core.Expense{}, err
	}
	created, err := w.toCore()
	if err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return created, nil
}

func (c *Client) FetchBalance(ctx context.Context) (core.BalanceSummary, error) {
	var w balanceWire
	if err := c.do(ctx, "fetch balance", http.MethodGet, "/balance", nil, &w); err != nil {
		return core.BalanceSummary{}, err
	}
	summary, err := w.toCore()
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("fetch balance: %w", err)
	}
	return summary, nil
}

func (c *Client) ListReminders(ctx context.Context) ([]core.Reminder, error) {
	var wires []reminderWire
	if err := c.do(ctx, "list reminders", http.MethodGet, "/recordatorios", nil, &wires); err != nil {
		return nil, err
	}
	out := make([]core.Reminder, 0, len(wires))
	for _, w := range wires {
		r, err := w.toCore()
		if err != nil {
			return nil, fmt.Errorf("list reminders: record %s: %w", w.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *Client) CreateReminder(ctx context.Context, n core.NewReminder) (core.Reminder, error) {
	if err := n.Validate(); err != nil {
		return core.Reminder{}, err
	}
	body := createReminderBody{
		Titulo:     n.Title,
		Fecha:      n.Date.Format("2006-01-02"),
		Completado: false,
	}
	if n.Amount.Cents > 0 {
		num := number(n.Amount)
		body.Monto = &num
	}
	var w reminderWire
	if err := c.do(ctx, "create reminder", http.MethodPost, "/recordatorios", body, &w); err != nil {
		return core.Reminder{}, err
	}
	created, err := w.toCore()
	if err != nil {
		return core.Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	return created, nil
}

// ToggleReminder sends the negation of the value the caller last read. A
// toggle from elsewhere between that read and this write is overridden by
// this client's intent; that race is accepted.
func (c *Client) ToggleReminder(ctx context.Context, id string, currentlyDone bool) error {
	body := patchReminderBody{Completado: !currentlyDone}
	path := "/recordatorios/" + url.PathEscape(id)
	return c.do(ctx, "toggle reminder", http.MethodPatch, path, body, nil)
}

func (c *Client) DeleteReminder(ctx context.Context, id string) error {
	path := "/recordatorios/" + url.PathEscape(id)
	return c.do(ctx, "delete reminder", http.MethodDelete, path, nil, nil)
}
