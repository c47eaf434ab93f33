package dummydb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/application"
	"github.com/thesisapp/thesis/core/notification"
	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
	"github.com/thesisapp/thesis/core/user"
)

type (
	// DB is an in-memory database, used in tests and by the "dummy" engine.
	DB struct {
		sync.RWMutex
		txMu sync.Mutex

		users         map[string]user.User
		students      map[string]student.Student
		teachers      map[string]teacher.Teacher
		degrees       map[string]proposal.Degree
		proposals     map[string]proposal.Proposal
		applications  map[string]application.Application
		notifications map[uuid.UUID]notification.Notification
		proposalSeq   int
		virtualDate   time.Time
	}

	snapshot struct {
		users         map[string]user.User
		students      map[string]student.Student
		teachers      map[string]teacher.Teacher
		degrees       map[string]proposal.Degree
		proposals     map[string]proposal.Proposal
		applications  map[string]application.Application
		notifications map[uuid.UUID]notification.Notification
		proposalSeq   int
		virtualDate   time.Time
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	db := &DB{
		users:         make(map[string]user.User),
		students:      make(map[string]student.Student),
		teachers:      make(map[string]teacher.Teacher),
		degrees:       make(map[string]proposal.Degree),
		proposals:     make(map[string]proposal.Proposal),
		applications:  make(map[string]application.Application),
		notifications: make(map[uuid.UUID]notification.Notification),
		virtualDate:   core.TruncateDay(time.Now()),
	}
	return db, nil
}

// InTx runs fn with the other transactions locked out, restoring the previous state if fn fails.
// Writes made outside of a transaction while fn runs are lost on rollback.
func (db *DB) InTx(_ context.Context, fn func(exec core.DBExecutor) error) (err error) {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	snap := db.snapshot()
	defer func() {
		if p := recover(); p != nil {
			db.restore(snap)
			panic(p)
		}
		if err != nil {
			db.restore(snap)
		}
	}()
	return fn(nil)
}

// Reset drops every row and sets the virtual date back to today.
func (db *DB) Reset() {
	fresh, _ := Open()
	db.restore(fresh.snapshot())
}

func (db *DB) snapshot() snapshot {
	db.RLock()
	defer db.RUnlock()
	return snapshot{
		users:         copyMap(db.users),
		students:      copyMap(db.students),
		teachers:      copyMap(db.teachers),
		degrees:       copyMap(db.degrees),
		proposals:     copyMap(db.proposals),
		applications:  copyMap(db.applications),
		notifications: copyMap(db.notifications),
		proposalSeq:   db.proposalSeq,
		virtualDate:   db.virtualDate,
	}
}

func (db *DB) restore(snap snapshot) {
	db.Lock()
	defer db.Unlock()
	db.users = snap.users
	db.students = snap.students
	db.teachers = snap.teachers
	db.degrees = snap.degrees
	db.proposals = snap.proposals
	db.applications = snap.applications
	db.notifications = snap.notifications
	db.proposalSeq = snap.proposalSeq
	db.virtualDate = snap.virtualDate
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	cp := make(map[K]V, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
