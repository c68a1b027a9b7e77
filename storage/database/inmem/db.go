package inmemdb

import (
	"sync"

	"github.com/wisonline/woec/core/application"
	"github.com/wisonline/woec/core/course"
	"github.com/wisonline/woec/core/user"
)

type (
	// DB is a process local database, used for tests and the `memory` engine.
	DB struct {
		txMutex sync.Mutex

		user        *userTable
		course      *courseTable
		application *applicationTable
	}

	userTable struct {
		table map[int]*user.User
		pk    int
		mutex sync.RWMutex
	}

	courseTable struct {
		table map[int]*course.Course
		mutex sync.RWMutex
	}

	applicationTable struct {
		table map[int]*application.Application
		pk    int
		mutex sync.RWMutex
	}
)

// Open returns an empty DB holding the course catalog.
func Open() *DB {
	db := &DB{
		user:        &userTable{table: make(map[int]*user.User)},
		course:      &courseTable{table: make(map[int]*course.Course)},
		application: &applicationTable{table: make(map[int]*application.Application)},
	}
	for _, c := range course.Catalog {
		c := c
		db.course.table[c.ID] = &c
	}
	return db
}
