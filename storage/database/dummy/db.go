package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/rollcall/core"
	"github.com/trezcool/rollcall/core/group"
	"github.com/trezcool/rollcall/core/roll"
)

type (
	// DB is an in-memory database for tests. It has no transaction support:
	// WithinTx runs fn right away and nothing is rolled back.
	DB struct {
		group *groupTable
		roll  *rollTable
	}

	groupTable struct {
		sync.RWMutex
		pkCount       int
		memberPKCount int
		table         map[int]*group.Group
		members       map[int]*group.Membership
	}

	rollTable struct {
		sync.RWMutex
		pkCount      int
		statePKCount int
		table        map[int]*roll.Roll
		states       map[int]*roll.StudentRollState
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	db := &DB{
		group: &groupTable{
			table:   make(map[int]*group.Group),
			members: make(map[int]*group.Membership),
		},
		roll: &rollTable{
			table:  make(map[int]*roll.Roll),
			states: make(map[int]*roll.StudentRollState),
		},
	}
	return db, nil
}

func (db *DB) WithinTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}
