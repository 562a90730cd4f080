// Package txn runs multi-document writes inside a MongoDB transaction when
// the deployment supports one (replica set or sharded cluster) and falls
// back to plain ordered writes on a standalone server.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runner executes a unit of work, reporting whether it ran inside a
// transaction. When transacted is true and err is non-nil, nothing fn wrote
// was committed; when transacted is false, writes made before the failure
// stand and the caller owns any compensation.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) (transacted bool, err error)
}

// Mongo is a Runner backed by client sessions.
type Mongo struct {
	client      *mongo.Client
	log         *zap.Logger
	unsupported atomic.Bool
}

// New returns a Mongo runner. When enabled is false every Run goes straight
// to the fallback path.
func New(client *mongo.Client, enabled bool, log *zap.Logger) *Mongo {
	m := &Mongo{client: client, log: log}
	if !enabled {
		m.unsupported.Store(true)
	}
	return m
}

// Run executes fn inside a transaction. The session context passed to fn
// must be used for every store call that belongs to the unit of work.
//
// If the server rejects transactions, fn runs once without one and the
// runner stops trying for the rest of the process lifetime.
func (m *Mongo) Run(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	if m.unsupported.Load() {
		return false, fn(ctx)
	}

	sess, err := m.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			m.disable(err)
			return false, fn(ctx)
		}
		return false, err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		// The first operation inside the transaction failed, so nothing was
		// written; rerun without one.
		m.disable(err)
		return false, fn(ctx)
	}
	return true, err
}

func (m *Mongo) disable(err error) {
	if m.unsupported.CompareAndSwap(false, true) && m.log != nil {
		m.log.Warn("mongo transactions unavailable; using ordered writes", zap.Error(err))
	}
}

// Direct runs fn without a transaction. Used by tests and tools.
type Direct struct{}

func (Direct) Run(ctx context.Context, fn func(ctx context.Context) error) (bool, error) {
	return false, fn(ctx)
}

// IsNotSupported reports whether err means the deployment cannot run
// sessions or transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, // IllegalOperation: transactions need a replica set
			51,  // IllegalOperation (older servers)
			263: // OperationNotSupportedInTransaction
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	hasTxn := strings.Contains(msg, "transaction")
	switch {
	case hasTxn && strings.Contains(msg, "replica set"):
		return true
	case strings.Contains(msg, "session") && strings.Contains(msg, "not supported"):
		return true
	case hasTxn && strings.Contains(msg, "session"):
		return true
	case hasTxn && strings.Contains(msg, "illegal operation"):
		return true
	}
	return false
}
