package content

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// InvoiceLines is stored as a JSON array. In forms it is edited as one line
// per position: "description | quantity | unit price".
type InvoiceLines []InvoiceLine

func (ls InvoiceLines) String() string {
	rows := make([]string, 0, len(ls))
	for _, l := range ls {
		rows = append(rows, fmt.Sprintf("%s | %s | %s", l.Description,
			strconv.FormatFloat(l.Quantity, 'f', -1, 64), strconv.FormatFloat(l.UnitPrice, 'f', 2, 64)))
	}
	return strings.Join(rows, "\n")
}

// UnmarshalParam implements echo.BindUnmarshaler.
func (ls *InvoiceLines) UnmarshalParam(param string) error {
	var out InvoiceLines
	for n, row := range strings.Split(param, "\n") {
		row = strings.TrimSpace(row)
		if row == "" {
			continue
		}
		parts := strings.Split(row, "|")
		if len(parts) != 3 {
			return fmt.Errorf("line %d: want \"description | quantity | unit price\"", n+1)
		}
		qty, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid quantity", n+1)
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(strings.ReplaceAll(parts[2], ",", ".")), 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid unit price", n+1)
		}
		out = append(out, InvoiceLine{Description: strings.TrimSpace(parts[0]), Quantity: qty, UnitPrice: price})
	}
	*ls = out
	return nil
}

// Value implements driver.Valuer.
func (ls InvoiceLines) Value() (driver.Value, error) {
	if ls == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]InvoiceLine(ls))
	return string(b), err
}

// Scan implements sql.Scanner.
func (ls *InvoiceLines) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case string:
		b = []byte(v)
	case []byte:
		b = v
	case nil:
		*ls = nil
		return nil
	default:
		return fmt.Errorf("content: cannot scan %T into InvoiceLines", src)
	}
	var out []InvoiceLine
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	*ls = out
	return nil
}

// Invoices is the repository for Invoice records.
type Invoices struct{ s *Store }

const invoiceColumns = `id, number, customer_name, customer_email, lines, currency, vat_rate, status,
	issued_on, due_on, created_at, updated_at`

func scanInvoice(row interface{ Scan(...any) error }) (Invoice, error) {
	var i Invoice
	var created, updated string
	err := row.Scan(&i.ID, &i.Number, &i.CustomerName, &i.CustomerEmail, &i.Lines, &i.Currency,
		&i.VATRate, &i.Status, &i.IssuedOn, &i.DueOn, &created, &updated)
	if err != nil {
		return Invoice{}, err
	}
	i.CreatedAt = parseTime(created)
	i.UpdatedAt = parseTime(updated)
	return i, nil
}

// List returns every invoice, most recently issued first.
func (r *Invoices) List(ctx context.Context) ([]Invoice, error) {
	rows, err := r.s.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY issued_on DESC, number DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// Get returns an invoice by id.
func (r *Invoices) Get(ctx context.Context, id string) (Invoice, error) {
	i, err := scanInvoice(r.s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	return i, mapReadErr(err)
}

// Create validates and inserts i.
func (r *Invoices) Create(ctx context.Context, i Invoice) (Invoice, error) {
	if err := i.normalize(r.s.Today()); err != nil {
		return Invoice{}, err
	}
	stamp(&i.ID, &i.CreatedAt, &i.UpdatedAt, r.s.now(), true)
	if err := insertInvoice(ctx, r.s.db, i); err != nil {
		return Invoice{}, err
	}
	return i, nil
}

func insertInvoice(ctx context.Context, db execer, i Invoice) error {
	_, err := db.ExecContext(ctx, `INSERT INTO invoices (`+invoiceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.ID, i.Number, i.CustomerName, i.CustomerEmail, i.Lines, i.Currency, i.VATRate, i.Status,
		i.IssuedOn, i.DueOn, formatTime(i.CreatedAt), formatTime(i.UpdatedAt))
	return mapWriteErr(err)
}

// Update replaces the mutable fields of invoice id with i.
func (r *Invoices) Update(ctx context.Context, id string, i Invoice) (Invoice, error) {
	existing, err := r.Get(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if err := i.normalize(r.s.Today()); err != nil {
		return Invoice{}, err
	}
	i.ID, i.CreatedAt = existing.ID, existing.CreatedAt
	stamp(&i.ID, &i.CreatedAt, &i.UpdatedAt, r.s.now(), false)
	err = requireAffected(r.s.db.ExecContext(ctx, `UPDATE invoices SET number = ?, customer_name = ?,
		customer_email = ?, lines = ?, currency = ?, vat_rate = ?, status = ?, issued_on = ?, due_on = ?,
		updated_at = ? WHERE id = ?`,
		i.Number, i.CustomerName, i.CustomerEmail, i.Lines, i.Currency, i.VATRate, i.Status,
		i.IssuedOn, i.DueOn, formatTime(i.UpdatedAt), id))
	if err != nil {
		return Invoice{}, err
	}
	return i, nil
}

// Delete removes invoice id.
func (r *Invoices) Delete(ctx context.Context, id string) error {
	return requireAffected(r.s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id))
}
