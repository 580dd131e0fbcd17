package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"prealert/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS master_records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  poNumber TEXT NOT NULL,
  supplierCode TEXT,
  masterCode TEXT,
  description TEXT,
  unitPrice TEXT,
  quantity TEXT,
  source TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_master_po ON master_records(poNumber);
CREATE INDEX IF NOT EXISTS idx_master_po_supplier ON master_records(poNumber, supplierCode);
CREATE INDEX IF NOT EXISTS idx_master_code ON master_records(masterCode);

CREATE TABLE IF NOT EXISTS messages (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS invoices (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  messageId INTEGER,
  provider TEXT NOT NULL,
  sourceRef TEXT NOT NULL,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'extracted',
  rawRef TEXT NOT NULL,
  poNumber TEXT,
  invoiceNumber TEXT,
  invoiceDate TEXT,
  customerNo TEXT,
  dellOrderNo TEXT,
  shippingMethod TEXT,
  edOrder TEXT,
  consolidationFee TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, sourceRef, hash),
  FOREIGN KEY(messageId) REFERENCES messages(id)
);

CREATE TABLE IF NOT EXISTS invoice_lines (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  invoiceId INTEGER NOT NULL,
  lineNo INTEGER NOT NULL,
  source TEXT NOT NULL,
  itemCode TEXT NOT NULL,
  description TEXT,
  quantity TEXT,
  unitPrice TEXT,
  amount TEXT,
  rawLine TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(invoiceId, lineNo),
  FOREIGN KEY(invoiceId) REFERENCES invoices(id)
);

CREATE TABLE IF NOT EXISTS line_outcomes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  lineId INTEGER NOT NULL UNIQUE,
  status TEXT NOT NULL,
  highlight TEXT NOT NULL,
  matchedBy TEXT NOT NULL,
  resolvedCode TEXT,
  resolvedDesc TEXT,
  resolvedPrice TEXT,
  resolvedQty TEXT,
  diagnosticJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(lineId) REFERENCES invoice_lines(id)
);

CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  invoiceId INTEGER,
  timingsJson TEXT NOT NULL,
  countsJson TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(invoiceId) REFERENCES invoices(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceMasterRecords swaps the whole reference table for a fresh snapshot
// from the given source.
func (d *DB) ReplaceMasterRecords(records []internal.MasterRecord, source string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM master_records`); err != nil {
		return err
	}
	if err := insertMasterRecords(tx, records, source); err != nil {
		return err
	}
	return tx.Commit()
}

// AppendMasterRecords adds records on top of the existing table, used by
// incremental syncs. Duplicate keys are fine; the matcher keeps every row.
func (d *DB) AppendMasterRecords(records []internal.MasterRecord, source string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := insertMasterRecords(tx, records, source); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMasterRecords(tx *sql.Tx, records []internal.MasterRecord, source string) error {
	stmt, err := tx.Prepare(`
INSERT INTO master_records (poNumber, supplierCode, masterCode, description, unitPrice, quantity, source, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(r.PONumber, r.SupplierCode, r.MasterCode, r.Description, r.UnitPrice, r.Quantity, source); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) ListMasterRecords() ([]internal.MasterRecord, error) {
	rows, err := d.conn.Query(`
SELECT poNumber, supplierCode, masterCode, description, unitPrice, quantity
FROM master_records ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MasterRecord
	for rows.Next() {
		var r internal.MasterRecord
		if err := rows.Scan(&r.PONumber, &r.SupplierCode, &r.MasterCode, &r.Description, &r.UnitPrice, &r.Quantity); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) UpsertMessage(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.MessageRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO messages (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.MessageRow{}, err
	}

	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, errors.New("failed to upsert message")
	}
	return *row, nil
}

func (d *DB) GetMessageByProviderMessageID(provider, messageID string) (*internal.MessageRow, error) {
	var row internal.MessageRow
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM messages WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) MustMessageByProviderMessageID(provider, messageID string) (internal.MessageRow, error) {
	row, err := d.GetMessageByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.MessageRow{}, err
	}
	if row == nil {
		return internal.MessageRow{}, fmt.Errorf("message not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) ListMessagesByStatus(status string, limit int) ([]internal.MessageRow, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM messages WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MessageRow
	for rows.Next() {
		var row internal.MessageRow
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateMessageStatus(messageID int, status string) error {
	_, err := d.conn.Exec(`UPDATE messages SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, messageID)
	return err
}

func (d *DB) UpsertInvoice(messageID *int, provider, sourceRef, hash, rawRef, status string, header internal.InvoiceHeader) (internal.InvoiceRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO invoices (
  messageId, provider, sourceRef, hash, status, rawRef,
  poNumber, invoiceNumber, invoiceDate, customerNo, dellOrderNo, shippingMethod, edOrder, consolidationFee
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, sourceRef, hash) DO UPDATE SET
  messageId=excluded.messageId,
  status=excluded.status,
  rawRef=excluded.rawRef,
  poNumber=excluded.poNumber,
  invoiceNumber=excluded.invoiceNumber,
  invoiceDate=excluded.invoiceDate,
  customerNo=excluded.customerNo,
  dellOrderNo=excluded.dellOrderNo,
  shippingMethod=excluded.shippingMethod,
  edOrder=excluded.edOrder,
  consolidationFee=excluded.consolidationFee,
  updatedAt=CURRENT_TIMESTAMP
`, messageID, provider, sourceRef, hash, status, rawRef,
		header.PONumber, header.InvoiceNumber, header.InvoiceDate, header.CustomerNo,
		header.DellOrderNo, header.ShippingMethod, header.EDOrder, header.ConsolidationFee)
	if err != nil {
		return internal.InvoiceRow{}, err
	}

	row, err := d.getInvoiceWhere(`provider = ? AND sourceRef = ? AND hash = ?`, provider, sourceRef, hash)
	if err != nil {
		return internal.InvoiceRow{}, err
	}
	if row == nil {
		return internal.InvoiceRow{}, errors.New("failed to upsert invoice")
	}
	return *row, nil
}

func (d *DB) GetInvoiceByID(id int) (*internal.InvoiceRow, error) {
	return d.getInvoiceWhere(`id = ?`, id)
}

func (d *DB) getInvoiceWhere(where string, args ...any) (*internal.InvoiceRow, error) {
	var row internal.InvoiceRow
	var messageID sql.NullInt64
	err := d.conn.QueryRow(`
SELECT id, messageId, provider, sourceRef, hash, status, rawRef,
       poNumber, invoiceNumber, invoiceDate, customerNo, dellOrderNo, shippingMethod, edOrder, consolidationFee
FROM invoices WHERE `+where, args...).Scan(
		&row.ID, &messageID, &row.Provider, &row.SourceRef, &row.Hash, &row.Status, &row.RawRef,
		&row.Header.PONumber, &row.Header.InvoiceNumber, &row.Header.InvoiceDate, &row.Header.CustomerNo,
		&row.Header.DellOrderNo, &row.Header.ShippingMethod, &row.Header.EDOrder, &row.Header.ConsolidationFee,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if messageID.Valid {
		v := int(messageID.Int64)
		row.MessageID = &v
	}
	return &row, nil
}

func (d *DB) ListInvoicesByStatus(status string, limit int) ([]internal.InvoiceRow, error) {
	rows, err := d.conn.Query(`
SELECT id, messageId, provider, sourceRef, hash, status, rawRef,
       poNumber, invoiceNumber, invoiceDate, customerNo, dellOrderNo, shippingMethod, edOrder, consolidationFee
FROM invoices WHERE status = ? ORDER BY id ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.InvoiceRow
	for rows.Next() {
		var row internal.InvoiceRow
		var messageID sql.NullInt64
		if err := rows.Scan(
			&row.ID, &messageID, &row.Provider, &row.SourceRef, &row.Hash, &row.Status, &row.RawRef,
			&row.Header.PONumber, &row.Header.InvoiceNumber, &row.Header.InvoiceDate, &row.Header.CustomerNo,
			&row.Header.DellOrderNo, &row.Header.ShippingMethod, &row.Header.EDOrder, &row.Header.ConsolidationFee,
		); err != nil {
			return nil, err
		}
		if messageID.Valid {
			v := int(messageID.Int64)
			row.MessageID = &v
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateInvoiceStatus(invoiceID int, status string) error {
	_, err := d.conn.Exec(`UPDATE invoices SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, invoiceID)
	return err
}

// ClearInvoiceProcessing drops the lines and outcomes of an invoice so it can
// be re-processed from its stored document.
func (d *DB) ClearInvoiceProcessing(invoiceID int) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
DELETE FROM line_outcomes WHERE lineId IN (SELECT id FROM invoice_lines WHERE invoiceId = ?)
`, invoiceID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM invoice_lines WHERE invoiceId = ?`, invoiceID); err != nil {
		return err
	}

	return tx.Commit()
}

func (d *DB) InsertInvoiceLine(invoiceID int, line internal.InvoiceLine) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO invoice_lines (invoiceId, lineNo, source, itemCode, description, quantity, unitPrice, amount, rawLine)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, invoiceID, line.LineNo, string(line.Source), line.ItemCode, line.Description, line.Quantity, line.UnitPrice, line.Amount, line.RawLine)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) InsertOutcome(lineID int64, outcome internal.MatchOutcome, diag internal.Diagnostic) error {
	diagJSON, _ := json.Marshal(diag)
	_, err := d.conn.Exec(`
INSERT INTO line_outcomes (lineId, status, highlight, matchedBy, resolvedCode, resolvedDesc, resolvedPrice, resolvedQty, diagnosticJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, lineID, string(outcome.Status), string(outcome.Highlight), string(outcome.MatchedBy),
		outcome.ResolvedCode, outcome.ResolvedDesc, outcome.ResolvedPrice, outcome.ResolvedQty, string(diagJSON))
	return err
}

// GetInvoiceLines returns the lines of an invoice in document order, each
// paired with its stored outcome and diagnostic.
func (d *DB) GetInvoiceLines(invoiceID int) ([]internal.LineWithOutcome, error) {
	rows, err := d.conn.Query(`
SELECT
  l.lineNo, l.source, l.itemCode, l.description, l.quantity, l.unitPrice, l.amount, l.rawLine,
  o.status, o.highlight, o.matchedBy, o.resolvedCode, o.resolvedDesc, o.resolvedPrice, o.resolvedQty,
  o.diagnosticJson
FROM invoice_lines l
JOIN line_outcomes o ON o.lineId = l.id
WHERE l.invoiceId = ?
ORDER BY l.lineNo ASC
`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LineWithOutcome
	for rows.Next() {
		var lw internal.LineWithOutcome
		var source, status, highlight, matchedBy, diagJSON string
		if err := rows.Scan(
			&lw.Line.LineNo, &source, &lw.Line.ItemCode, &lw.Line.Description,
			&lw.Line.Quantity, &lw.Line.UnitPrice, &lw.Line.Amount, &lw.Line.RawLine,
			&status, &highlight, &matchedBy,
			&lw.Outcome.ResolvedCode, &lw.Outcome.ResolvedDesc, &lw.Outcome.ResolvedPrice, &lw.Outcome.ResolvedQty,
			&diagJSON,
		); err != nil {
			return nil, err
		}
		lw.Line.Source = internal.LineSource(source)
		lw.Outcome.Status = internal.MatchStatus(status)
		lw.Outcome.Highlight = internal.Highlight(highlight)
		lw.Outcome.MatchedBy = internal.MatchedBy(matchedBy)
		_ = json.Unmarshal([]byte(diagJSON), &lw.Diagnostic)
		out = append(out, lw)
	}
	return out, rows.Err()
}

func (d *DB) InsertRun(traceID string, invoiceID int, timings map[string]float64, counts map[string]int) error {
	timingsJSON, _ := json.Marshal(timings)
	countsJSON, _ := json.Marshal(counts)
	_, err := d.conn.Exec(`INSERT INTO runs (traceId, invoiceId, timingsJson, countsJson) VALUES (?, ?, ?, ?)`, traceID, invoiceID, string(timingsJSON), string(countsJSON))
	return err
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
