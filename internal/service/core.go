// Package service implements the routing core: optimization modes, route
// persistence contracts, temp assignments, and on-demand materialization.
// Handlers call its methods; business logic lives here, not in handlers.
package service

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/routewise/routewise/internal/matrix"
	"github.com/routewise/routewise/internal/model"
	"github.com/routewise/routewise/internal/solver"
	"github.com/routewise/routewise/internal/store"
)

// ServiceError wraps an error with a code for API response mapping.
type ServiceError struct {
	Code    string // INVALID_ARGUMENT, NOT_FOUND, CONFLICT, INTERNAL
	Message string
	Err     error
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

func invalidArg(msg string) *ServiceError {
	return &ServiceError{Code: "INVALID_ARGUMENT", Message: msg}
}

func notFound(msg string) *ServiceError {
	return &ServiceError{Code: "NOT_FOUND", Message: msg}
}

func internal(msg string, err error) *ServiceError {
	return &ServiceError{Code: "INTERNAL", Message: msg, Err: err}
}

// Core provides all routing operations. One instance serves every tenant;
// tenant isolation happens inside each method.
type Core struct {
	Store    *store.Store
	Matrix   matrix.Provider
	Solver   *solver.Solver
	Pool     *solver.Pool

	// Now is the clock; overridable in tests. Defaults to time.Now.
	Now func() time.Time

	// dayLocks serializes temp-assignment work per (tenant, day, date).
	dayLocks *xsync.Map[string, *sync.Mutex]
}

// NewCore wires a Core from its collaborators.
func NewCore(st *store.Store, provider matrix.Provider, slv *solver.Solver, pool *solver.Pool) *Core {
	return &Core{
		Store:    st,
		Matrix:   provider,
		Solver:   slv,
		Pool:     pool,
		Now:      time.Now,
		dayLocks: xsync.NewMap[string, *sync.Mutex](),
	}
}

// today returns the current date per the Core clock.
func (c *Core) today() model.Date {
	return model.Date(c.Now().Format("2006-01-02"))
}

func (c *Core) nowNs() int64 {
	return c.Now().UnixNano()
}

// lockDay takes the per-(tenant, day, date) mutex and returns its unlock.
func (c *Core) lockDay(tenantID string, day model.Weekday, date model.Date) func() {
	key := tenantID + "|" + string(day) + "|" + string(date)
	mu, _ := c.dayLocks.LoadOrStore(key, &sync.Mutex{})
	mu.Lock()
	return mu.Unlock
}
