package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
)

// rowLocks emulates SELECT ... FOR UPDATE for the fakes: a row lock taken inside a
// transaction is held until that transaction commits or rolls back.
type rowLocks struct {
	mu   sync.Mutex
	rows map[string]*sync.Mutex
	txs  map[*sqlx.Tx]*txRelease
}

type txRelease struct {
	mu      sync.Mutex
	unlocks []func()
}

func (r *txRelease) add(unlock func()) {
	r.mu.Lock()
	r.unlocks = append(r.unlocks, unlock)
	r.mu.Unlock()
}

func (r *txRelease) done() {
	if r == nil {
		return
	}
	r.mu.Lock()
	unlocks := r.unlocks
	r.unlocks = nil
	r.mu.Unlock()
	for _, unlock := range unlocks {
		unlock()
	}
}

type txReleaseKey struct{}

// lockingTxProvider opens real *sqlx.Tx values over a no-op driver whose
// Commit and Rollback release the row locks taken by that transaction.
type lockingTxProvider struct {
	db    *sqlx.DB
	locks *rowLocks
}

func newLockingTxProvider(t *testing.T) *lockingTxProvider {
	t.Helper()
	db := sqlx.NewDb(sql.OpenDB(noopConnector{}), "postgres")
	t.Cleanup(func() { db.Close() })
	return &lockingTxProvider{
		db:    db,
		locks: &rowLocks{rows: map[string]*sync.Mutex{}, txs: map[*sqlx.Tx]*txRelease{}},
	}
}

func (p *lockingTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	release := &txRelease{}
	tx, err := p.db.BeginTxx(context.WithValue(ctx, txReleaseKey{}, release), opts)
	if err != nil {
		return nil, err
	}
	p.locks.mu.Lock()
	p.locks.txs[tx] = release
	p.locks.mu.Unlock()
	return tx, nil
}

// acquire blocks until the row is free, then ties it to exec's transaction.
func (l *rowLocks) acquire(exec sqlx.ExtContext, key string) {
	tx, ok := exec.(*sqlx.Tx)
	if !ok {
		return
	}
	l.mu.Lock()
	row, found := l.rows[key]
	if !found {
		row = &sync.Mutex{}
		l.rows[key] = row
	}
	release := l.txs[tx]
	l.mu.Unlock()
	if release == nil {
		return
	}
	row.Lock()
	release.add(row.Unlock)
}

type noopConnector struct{}

func (noopConnector) Connect(context.Context) (driver.Conn, error) { return noopConn{}, nil }
func (noopConnector) Driver() driver.Driver                        { return noopDriver{} }

type noopDriver struct{}

func (noopDriver) Open(string) (driver.Conn, error) { return noopConn{}, nil }

type noopConn struct{}

func (noopConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}
func (noopConn) Close() error              { return nil }
func (noopConn) Begin() (driver.Tx, error) { return noopTx{}, nil }

func (noopConn) BeginTx(ctx context.Context, _ driver.TxOptions) (driver.Tx, error) {
	release, _ := ctx.Value(txReleaseKey{}).(*txRelease)
	return noopTx{release: release}, nil
}

type noopTx struct{ release *txRelease }

func (t noopTx) Commit() error {
	t.release.done()
	return nil
}

func (t noopTx) Rollback() error {
	t.release.done()
	return nil
}
