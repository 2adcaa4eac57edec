package dummydb

import (
	"context"
	"database/sql"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ruhusa/core"
	"github.com/trezcool/ruhusa/core/directory"
	"github.com/trezcool/ruhusa/core/workflow"
)

// DB is an in-memory store used by unit tests and local runs. It implements
// core.DB; BeginTx snapshots the whole store so a Rollback restores the exact
// pre-transaction state, mirroring the relational store's atomicity.
type DB struct {
	mu   sync.RWMutex
	txMu sync.Mutex // one transaction at a time

	state *state
}

type state struct {
	departments    map[string]directory.Department
	groups         map[string]directory.Group
	teachers       map[string]directory.Teacher
	students       map[string]directory.Student
	labs           map[string]directory.Lab
	groupApprovers map[string]directory.GroupApprover // key: groupID + "|" + role
	hods           map[string]string                  // departmentID -> teacherID

	flows           map[string]workflow.FlowTemplate
	requests        map[string]workflow.Request
	requestStudents map[string][]string // requestID -> studentIDs
	approvals       map[string]workflow.Approval
	steps           map[string]workflow.ApprovalStep
}

func newState() *state {
	return &state{
		departments:     make(map[string]directory.Department),
		groups:          make(map[string]directory.Group),
		teachers:        make(map[string]directory.Teacher),
		students:        make(map[string]directory.Student),
		labs:            make(map[string]directory.Lab),
		groupApprovers:  make(map[string]directory.GroupApprover),
		hods:            make(map[string]string),
		flows:           make(map[string]workflow.FlowTemplate),
		requests:        make(map[string]workflow.Request),
		requestStudents: make(map[string][]string),
		approvals:       make(map[string]workflow.Approval),
		steps:           make(map[string]workflow.ApprovalStep),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.departments {
		cp.departments[k] = v
	}
	for k, v := range s.groups {
		cp.groups[k] = v
	}
	for k, v := range s.teachers {
		cp.teachers[k] = v
	}
	for k, v := range s.students {
		cp.students[k] = v
	}
	for k, v := range s.labs {
		cp.labs[k] = v
	}
	for k, v := range s.groupApprovers {
		cp.groupApprovers[k] = v
	}
	for k, v := range s.hods {
		cp.hods[k] = v
	}
	for k, v := range s.flows {
		v.Steps = append([]workflow.FlowStep(nil), v.Steps...)
		cp.flows[k] = v
	}
	for k, v := range s.requests {
		v.Students, v.Flow = nil, nil
		cp.requests[k] = v
	}
	for k, v := range s.requestStudents {
		cp.requestStudents[k] = append([]string(nil), v...)
	}
	for k, v := range s.approvals {
		cp.approvals[k] = v
	}
	for k, v := range s.steps {
		cp.steps[k] = v
	}
	return cp
}

func Open() (*DB, error) {
	return &DB{state: newState()}, nil
}

var _ core.DB = (*DB)(nil)

func (db *DB) Close() error { return nil }

// BeginTx serializes transactions and snapshots the store.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (core.DBTransactor, error) {
	db.txMu.Lock()
	db.mu.RLock()
	snap := db.state.clone()
	db.mu.RUnlock()
	return &dummyTx{db: db, snap: snap}, nil
}

type dummyTx struct {
	db   *DB
	snap *state
	done bool
}

var _ core.DBTransactor = (*dummyTx)(nil)

func (tx *dummyTx) Commit() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.snap = nil
	tx.db.txMu.Unlock()
	return nil
}

func (tx *dummyTx) Rollback() error {
	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true
	tx.db.mu.Lock()
	tx.db.state = tx.snap
	tx.db.mu.Unlock()
	tx.db.txMu.Unlock()
	return nil
}

// the dummy repositories work directly on the store; the executor query surface
// is never used.

var errNotImplemented = errors.New("dummydb: raw queries not supported")

func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNotImplemented
}

func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNotImplemented
}

func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNotImplemented
}

func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, errNotImplemented
}

func (tx *dummyTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, errNotImplemented
}

func (tx *dummyTx) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNotImplemented
}

func (tx *dummyTx) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return errNotImplemented
}

func (tx *dummyTx) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, errNotImplemented
}
