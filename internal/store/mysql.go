package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/efreitasn/marketplace/internal/domain"
)

// mysqlSchema creates the ledger tables when they are missing.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		name       VARCHAR(64) NOT NULL PRIMARY KEY,
		created_at DATETIME(6) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS wallets (
		username VARCHAR(64) NOT NULL PRIMARY KEY,
		coins    BIGINT      NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_items (
		username VARCHAR(64) NOT NULL,
		item     VARCHAR(64) NOT NULL,
		quantity BIGINT      NOT NULL DEFAULT 0,
		PRIMARY KEY (username, item)
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id         BIGINT      NOT NULL AUTO_INCREMENT PRIMARY KEY,
		item       VARCHAR(64) NOT NULL,
		submitter  VARCHAR(64) NOT NULL,
		direction  VARCHAR(4)  NOT NULL,
		quantity   BIGINT      NOT NULL,
		price      BIGINT      NOT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_listings_book (item, direction, price, id),
		KEY idx_listings_submitter (submitter, direction, id)
	)`,
}

// mysqlErrDuplicateEntry is MySQL error 1062 (ER_DUP_ENTRY).
const mysqlErrDuplicateEntry = 1062

// MySQLStore is a ledger backed by MySQL (InnoDB). Updates run in a
// serializable transaction and lock every row they read.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore wraps an open database handle. The DSN must set
// parseTime=true.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Migrate creates the ledger tables if they do not exist.
func (s *MySQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close implements Store.
func (s *MySQLStore) Close() error { return s.db.Close() }

// Update implements Store.
func (s *MySQLStore) Update(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{ctx: ctx, tx: tx, lock: " FOR UPDATE"}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// View implements Store.
func (s *MySQLStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	return fn(&mysqlTx{ctx: ctx, tx: tx, readOnly: true})
}

type mysqlTx struct {
	ctx      context.Context
	tx       *sql.Tx
	lock     string // locking clause appended to row reads
	readOnly bool
}

func (t *mysqlTx) exec(query string, args ...any) (sql.Result, error) {
	if t.readOnly {
		return nil, ErrReadOnly
	}
	return t.tx.ExecContext(t.ctx, query, args...)
}

const listingColumns = `id, item, submitter, direction, quantity, price, created_at`

func scanListing(row interface{ Scan(...any) error }) (*domain.Listing, error) {
	var l domain.Listing
	var dir string
	if err := row.Scan(&l.ID, &l.Item, &l.Submitter, &dir, &l.Count, &l.Price, &l.CreatedAt); err != nil {
		return nil, err
	}
	l.Direction = domain.Direction(dir)
	return &l, nil
}

func (t *mysqlTx) queryListings(query string, args ...any) ([]*domain.Listing, error) {
	rows, err := t.tx.QueryContext(t.ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var result []*domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func bookOrder(dir domain.Direction) string {
	if dir == domain.DirectionBuy {
		return "price DESC, id ASC"
	}
	return "price ASC, id ASC"
}

func (t *mysqlTx) CreateItem(item *domain.Item) error {
	_, err := t.exec(`INSERT INTO items (name, created_at) VALUES (?, ?)`, item.Name, item.CreatedAt)
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return domain.ErrItemAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (t *mysqlTx) GetItem(name string) (*domain.Item, error) {
	var item domain.Item
	err := t.tx.QueryRowContext(t.ctx, `SELECT name, created_at FROM items WHERE name = ?`, name).
		Scan(&item.Name, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (t *mysqlTx) ListItems() ([]*domain.Item, error) {
	rows, err := t.tx.QueryContext(t.ctx, `SELECT name, created_at FROM items ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := []*domain.Item{}
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.Name, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

func (t *mysqlTx) GetOrCreateWallet(user string) (*domain.Wallet, error) {
	if !t.readOnly {
		if _, err := t.exec(`INSERT IGNORE INTO wallets (username, coins) VALUES (?, 0)`, user); err != nil {
			return nil, fmt.Errorf("insert wallet: %w", err)
		}
	}
	w := domain.Wallet{User: user}
	err := t.tx.QueryRowContext(t.ctx, `SELECT coins FROM wallets WHERE username = ?`+t.lock, user).Scan(&w.Coins)
	if errors.Is(err, sql.ErrNoRows) {
		return &w, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query wallet: %w", err)
	}
	return &w, nil
}

func (t *mysqlTx) UpdateWallet(w *domain.Wallet) error {
	if _, err := t.exec(`UPDATE wallets SET coins = ? WHERE username = ?`, w.Coins, w.User); err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return nil
}

func (t *mysqlTx) GetInventoryItem(user, item string) (*domain.InventoryItem, error) {
	inv := domain.InventoryItem{User: user, Item: item}
	err := t.tx.QueryRowContext(t.ctx,
		`SELECT quantity FROM inventory_items WHERE username = ? AND item = ?`+t.lock, user, item).Scan(&inv.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInventoryItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query inventory item: %w", err)
	}
	return &inv, nil
}

func (t *mysqlTx) GetOrCreateInventoryItem(user, item string) (*domain.InventoryItem, error) {
	if !t.readOnly {
		if _, err := t.exec(`INSERT IGNORE INTO inventory_items (username, item, quantity) VALUES (?, ?, 0)`, user, item); err != nil {
			return nil, fmt.Errorf("insert inventory item: %w", err)
		}
	}
	inv, err := t.GetInventoryItem(user, item)
	if errors.Is(err, domain.ErrInventoryItemNotFound) {
		return &domain.InventoryItem{User: user, Item: item}, nil
	}
	return inv, err
}

func (t *mysqlTx) UpdateInventoryItem(inv *domain.InventoryItem) error {
	if _, err := t.exec(`UPDATE inventory_items SET quantity = ? WHERE username = ? AND item = ?`,
		inv.Count, inv.User, inv.Item); err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	return nil
}

func (t *mysqlTx) ListInventory(user string) ([]*domain.InventoryItem, error) {
	rows, err := t.tx.QueryContext(t.ctx,
		`SELECT item, quantity FROM inventory_items WHERE username = ? ORDER BY item`, user)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	var result []*domain.InventoryItem
	for rows.Next() {
		inv := domain.InventoryItem{User: user}
		if err := rows.Scan(&inv.Item, &inv.Count); err != nil {
			return nil, fmt.Errorf("scan inventory item: %w", err)
		}
		result = append(result, &inv)
	}
	return result, rows.Err()
}

func (t *mysqlTx) CreateListing(l *domain.Listing) error {
	res, err := t.exec(`
		INSERT INTO listings (item, submitter, direction, quantity, price, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.Item, l.Submitter, string(l.Direction), l.Count, l.Price, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("listing id: %w", err)
	}
	l.ID = id
	return nil
}

func (t *mysqlTx) GetListing(id int64) (*domain.Listing, error) {
	l, err := scanListing(t.tx.QueryRowContext(t.ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`+t.lock, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query listing: %w", err)
	}
	return l, nil
}

func (t *mysqlTx) UpdateListing(l *domain.Listing) error {
	res, err := t.exec(`UPDATE listings SET quantity = ?, price = ? WHERE id = ?`, l.Count, l.Price, l.ID)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 for unchanged rows too; confirm existence.
		if _, err := t.GetListing(l.ID); err != nil {
			return err
		}
	}
	return nil
}

func (t *mysqlTx) DeleteListing(id int64) error {
	res, err := t.exec(`DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (t *mysqlTx) BestListing(item string, dir domain.Direction) (*domain.Listing, bool, error) {
	l, err := scanListing(t.tx.QueryRowContext(t.ctx,
		`SELECT `+listingColumns+` FROM listings WHERE item = ? AND direction = ? ORDER BY `+
			bookOrder(dir)+` LIMIT 1`+t.lock, item, string(dir)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query best listing: %w", err)
	}
	return l, true, nil
}

func (t *mysqlTx) WalkListings(item string, dir domain.Direction, fn func(*domain.Listing) bool) error {
	listings, err := t.queryListings(
		`SELECT `+listingColumns+` FROM listings WHERE item = ? AND direction = ? ORDER BY `+bookOrder(dir),
		item, string(dir))
	if err != nil {
		return err
	}
	for _, l := range listings {
		if !fn(l) {
			break
		}
	}
	return nil
}

func (t *mysqlTx) ListingsBySubmitter(user string, dir domain.Direction) ([]*domain.Listing, error) {
	return t.queryListings(
		`SELECT `+listingColumns+` FROM listings WHERE submitter = ? AND direction = ? ORDER BY id DESC`,
		user, string(dir))
}
