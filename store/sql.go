package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"sft-ticketing-backend/model"
)

const (
	eventTable  = "events"
	ticketTable = "tickets"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

var eventCols = []string{"name", "event_date", "event_time", "location", "description", "image", "category",
	"price", "max_resale_price", "max_supply", "available", "creator", "gate_address", "active", "resale_allowed", "gates", "created_at", "version"}

var ticketCols = []string{"ticket_id", "event_id", "holder", "is_resale_active", "resale_price", "is_verified",
	"verified_by", "verified_at", "issued_at", "version"}

var schemas = map[string][]string{
	DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS events (
			event_id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			event_date VARCHAR(10) NOT NULL,
			event_time VARCHAR(5) NOT NULL,
			location VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			category VARCHAR(64) NOT NULL DEFAULT '',
			price BIGINT UNSIGNED NOT NULL,
			max_resale_price BIGINT UNSIGNED NOT NULL,
			max_supply BIGINT UNSIGNED NOT NULL,
			available BIGINT UNSIGNED NOT NULL,
			creator VARCHAR(128) NOT NULL,
			gate_address VARCHAR(128) NOT NULL,
			active TINYINT(1) NOT NULL DEFAULT 1,
			resale_allowed TINYINT(1) NOT NULL DEFAULT 1,
			gates TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			INDEX idx_events_creator (creator),
			CHECK (available <= max_supply)
		)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			seq BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
			ticket_id VARCHAR(64) NOT NULL UNIQUE,
			event_id BIGINT NOT NULL,
			holder VARCHAR(128) NOT NULL,
			is_resale_active TINYINT(1) NOT NULL DEFAULT 0,
			resale_price BIGINT UNSIGNED NOT NULL DEFAULT 0,
			is_verified TINYINT(1) NOT NULL DEFAULT 0,
			verified_by VARCHAR(128) NOT NULL DEFAULT '',
			verified_at DATETIME NULL,
			issued_at DATETIME NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			INDEX idx_tickets_event (event_id),
			INDEX idx_tickets_holder (holder),
			FOREIGN KEY (event_id) REFERENCES events(event_id)
		)`,
	},
	DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS events (
			event_id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			event_date TEXT NOT NULL,
			event_time TEXT NOT NULL,
			location TEXT NOT NULL,
			description TEXT NOT NULL,
			image TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			price INTEGER NOT NULL,
			max_resale_price INTEGER NOT NULL,
			max_supply INTEGER NOT NULL,
			available INTEGER NOT NULL CHECK (available >= 0 AND available <= max_supply),
			creator TEXT NOT NULL,
			gate_address TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT 1,
			resale_allowed BOOLEAN NOT NULL DEFAULT 1,
			gates TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_creator ON events(creator)`,
		`CREATE TABLE IF NOT EXISTS tickets (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id TEXT NOT NULL UNIQUE,
			event_id INTEGER NOT NULL REFERENCES events(event_id),
			holder TEXT NOT NULL,
			is_resale_active BOOLEAN NOT NULL DEFAULT 0,
			resale_price INTEGER NOT NULL DEFAULT 0,
			is_verified BOOLEAN NOT NULL DEFAULT 0,
			verified_by TEXT NOT NULL DEFAULT '',
			verified_at DATETIME NULL,
			issued_at DATETIME NOT NULL,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_event ON tickets(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_tickets_holder ON tickets(holder)`,
	},
}

// NewSQL wraps an open database and creates the schema when missing. Updates
// use optimistic version checks, so two writers racing on the same row see
// model.ErrConflict rather than a lost update.
func NewSQL(ctx context.Context, db *sql.DB, driver string) (Store, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("newSQL: unsupported driver: %s", driver)
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("newSQL: error creating schema: %w", err)
		}
	}
	return &sqlStore{db: db}, nil
}

type sqlStore struct {
	db *sql.DB
}

func (s *sqlStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("view: error begining db transaction: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqlTx{ctx: ctx, tx: tx})
}

func (s *sqlStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update: error begining db transaction: %w", err)
	}

	if err := fn(&sqlTx{ctx: ctx, tx: tx}); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update: could not commit transaction: %w", err)
	}
	return nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

type sqlTx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *sqlTx) InsertEvent(e *model.Event) error {
	gates, err := encodeGates(e.Gates)
	if err != nil {
		return fmt.Errorf("insertEvent: %w", err)
	}
	e.Version = 1
	values := []interface{}{
		e.Name, e.Date, e.Time, e.Location, e.Description, e.Image, e.Category,
		uint64(e.Price), uint64(e.MaxResalePrice), e.MaxSupply, e.Available,
		string(e.Creator), string(e.GateAddress), e.Active, e.ResaleAllowed, gates, e.CreatedAt.UTC(), e.Version,
	}

	id, err := create(t.ctx, t.tx, eventTable, eventCols, values)
	if err != nil {
		return fmt.Errorf("insertEvent: %w", err)
	}
	e.ID = id
	return nil
}

func (t *sqlTx) Event(id int64) (*model.Event, error) {
	q := fmt.Sprintf(`SELECT event_id, %s FROM events WHERE event_id = ?`, strings.Join(eventCols, ", "))
	rows, err := t.tx.QueryContext(t.ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("event: error querying event %d: %w", id, err)
	}
	events, err := eventsScanner(rows)
	if err != nil {
		return nil, fmt.Errorf("event: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("event %d: %w", id, model.ErrNotFound)
	}
	return &events[0], nil
}

func (t *sqlTx) Events() ([]model.Event, error) {
	q := fmt.Sprintf(`SELECT event_id, %s FROM events ORDER BY event_id ASC`, strings.Join(eventCols, ", "))
	rows, err := t.tx.QueryContext(t.ctx, q)
	if err != nil {
		return nil, fmt.Errorf("events: error querying events: %w", err)
	}
	return eventsScanner(rows)
}

func (t *sqlTx) UpdateEvent(e *model.Event) error {
	gates, err := encodeGates(e.Gates)
	if err != nil {
		return fmt.Errorf("updateEvent: %w", err)
	}
	updatedRows, err := update(
		t.ctx,
		t.tx,
		eventTable,
		[]string{"available", "active", "resale_allowed", "gates", "version"},
		[]interface{}{e.Available, e.Active, e.ResaleAllowed, gates, e.Version + 1},
		[]string{"event_id", "version"},
		[]interface{}{e.ID, e.Version},
	)
	if err != nil {
		return fmt.Errorf("updateEvent: %w", err)
	}
	if updatedRows == 0 {
		if _, err := t.Event(e.ID); err != nil {
			return fmt.Errorf("updateEvent: %w", err)
		}
		return fmt.Errorf("updateEvent: event %d changed underneath: %w", e.ID, model.ErrConflict)
	}
	e.Version++
	return nil
}

func (t *sqlTx) InsertTicket(tk *model.Ticket) error {
	tk.Version = 1
	values := []interface{}{
		tk.ID, tk.EventID, string(tk.Holder), tk.IsResaleActive, uint64(tk.ResalePrice), tk.IsVerified,
		string(tk.VerifiedBy), nullTime(tk.VerifiedAt), tk.IssuedAt.UTC(), tk.Version,
	}
	if _, err := create(t.ctx, t.tx, ticketTable, ticketCols, values); err != nil {
		return fmt.Errorf("insertTicket: %w", err)
	}
	return nil
}

func (t *sqlTx) Ticket(id string) (*model.Ticket, error) {
	q := fmt.Sprintf(`SELECT %s FROM tickets WHERE ticket_id = ?`, strings.Join(ticketCols, ", "))
	rows, err := t.tx.QueryContext(t.ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("ticket: error querying ticket %s: %w", id, err)
	}
	tickets, err := ticketsScanner(rows)
	if err != nil {
		return nil, fmt.Errorf("ticket: %w", err)
	}
	if len(tickets) == 0 {
		return nil, fmt.Errorf("ticket %s: %w", id, model.ErrNotFound)
	}
	return &tickets[0], nil
}

func (t *sqlTx) Tickets(tq TicketQuery) ([]model.Ticket, error) {
	var conds []string
	var args []interface{}
	if tq.EventID != 0 {
		conds = append(conds, "event_id = ?")
		args = append(args, tq.EventID)
	}
	if tq.Holder != "" {
		conds = append(conds, "holder = ?")
		args = append(args, string(tq.Holder))
	}
	if tq.ResaleOnly {
		conds = append(conds, "is_resale_active = ?")
		args = append(args, true)
	}

	q := fmt.Sprintf(`SELECT %s FROM tickets`, strings.Join(ticketCols, ", "))
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY seq ASC"

	rows, err := t.tx.QueryContext(t.ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("tickets: error querying tickets: %w", err)
	}
	return ticketsScanner(rows)
}

func (t *sqlTx) UpdateTicket(tk *model.Ticket) error {
	updatedRows, err := update(
		t.ctx,
		t.tx,
		ticketTable,
		[]string{"holder", "is_resale_active", "resale_price", "is_verified", "verified_by", "verified_at", "version"},
		[]interface{}{string(tk.Holder), tk.IsResaleActive, uint64(tk.ResalePrice), tk.IsVerified,
			string(tk.VerifiedBy), nullTime(tk.VerifiedAt), tk.Version + 1},
		[]string{"ticket_id", "version"},
		[]interface{}{tk.ID, tk.Version},
	)
	if err != nil {
		return fmt.Errorf("updateTicket: %w", err)
	}
	if updatedRows == 0 {
		if _, err := t.Ticket(tk.ID); err != nil {
			return fmt.Errorf("updateTicket: %w", err)
		}
		return fmt.Errorf("updateTicket: ticket %s changed underneath: %w", tk.ID, model.ErrConflict)
	}
	tk.Version++
	return nil
}

func eventsScanner(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var (
			e                    model.Event
			price, maxResale     uint64
			creator, gateAddress string
			gates                string
		)
		err := rows.Scan(
			&e.ID,
			&e.Name,
			&e.Date,
			&e.Time,
			&e.Location,
			&e.Description,
			&e.Image,
			&e.Category,
			&price,
			&maxResale,
			&e.MaxSupply,
			&e.Available,
			&creator,
			&gateAddress,
			&e.Active,
			&e.ResaleAllowed,
			&gates,
			&e.CreatedAt,
			&e.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("eventsScanner: error scanning events: %w", err)
		}
		e.Price = model.Amount(price)
		e.MaxResalePrice = model.Amount(maxResale)
		e.Creator = model.Identity(creator)
		e.GateAddress = model.Identity(gateAddress)
		if err := json.Unmarshal([]byte(gates), &e.Gates); err != nil {
			return nil, fmt.Errorf("eventsScanner: error decoding gates of event %d: %w", e.ID, err)
		}
		if len(e.Gates) == 0 {
			e.Gates = nil
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func ticketsScanner(rows *sql.Rows) ([]model.Ticket, error) {
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		var (
			tk                 model.Ticket
			holder, verifiedBy string
			resalePrice        uint64
			verifiedAt         sql.NullTime
		)
		err := rows.Scan(
			&tk.ID,
			&tk.EventID,
			&holder,
			&tk.IsResaleActive,
			&resalePrice,
			&tk.IsVerified,
			&verifiedBy,
			&verifiedAt,
			&tk.IssuedAt,
			&tk.Version,
		)
		if err != nil {
			return nil, fmt.Errorf("ticketsScanner: error scanning tickets: %w", err)
		}
		tk.Holder = model.Identity(holder)
		tk.VerifiedBy = model.Identity(verifiedBy)
		tk.ResalePrice = model.Amount(resalePrice)
		if verifiedAt.Valid {
			at := verifiedAt.Time
			tk.VerifiedAt = &at
		}
		tickets = append(tickets, tk)
	}
	return tickets, rows.Err()
}

func encodeGates(gates []model.Identity) (string, error) {
	if gates == nil {
		gates = []model.Identity{}
	}
	b, err := json.Marshal(gates)
	if err != nil {
		return "", fmt.Errorf("error encoding gates: %w", err)
	}
	return string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func create(ctx context.Context, tx *sql.Tx, table string, cols []string, values []interface{}) (int64, error) {
	var params []string

	for range cols {
		params = append(params, "?")
	}

	tsql := fmt.Sprintf(`INSERT INTO %s(%s) VALUES (%s);`, table, strings.Join(cols, ", "), strings.Join(params, ", "))

	stmt, err := tx.PrepareContext(ctx, tsql)
	if err != nil {
		return -1, fmt.Errorf("create: error preparing sql query: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, values...)
	if err != nil {
		return -1, fmt.Errorf("create: unable to insert record in %s: %w", table, err)
	}

	return result.LastInsertId()
}

func update(ctx context.Context, tx *sql.Tx, table string, cols []string, values []interface{}, column []string, value []interface{}) (int64, error) {
	values = append(values, value...)
	var set []string

	for _, col := range cols {
		set = append(set, fmt.Sprintf("%s = ?", col))
	}

	var conds []string

	for _, c := range column {
		conds = append(conds, fmt.Sprintf("%s = ?", c))
	}

	tsql := fmt.Sprintf(`UPDATE %s SET %s WHERE %s;`, table, strings.Join(set, ", "), strings.Join(conds, " AND "))

	stmt, err := tx.PrepareContext(ctx, tsql)
	if err != nil {
		return -1, fmt.Errorf("update: error preparing sql query: %w", err)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, values...)
	if err != nil {
		return -1, fmt.Errorf("update: unable to update record in %s: %w", table, err)
	}

	return result.RowsAffected()
}
