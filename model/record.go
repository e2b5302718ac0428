// Package model declares record types for reconciliation and extracts the
// desired schema from them by reflection.
//
// A record type is a struct that embeds Record[K]:
//
//	type Customer struct {
//		model.Record[int64]
//		OrganizationID int64  `pgmerge:"references:Organization"`
//		LastName       string `pgmerge:"size:50"`
//		Email          *string `pgmerge:"size:100;unique"`
//	}
//
// Struct tags follow the gorm style: options separated by ';', values after ':'.
package model

import (
	"reflect"

	"github.com/google/uuid"
)

// Key is the set of identity column types.
type Key interface {
	int | int32 | int64 | uuid.UUID
}

// Record is the base keyed-record abstraction. Embedding it makes a struct a
// reconcilable model whose identity column is ID.
type Record[K Key] struct {
	ID K `db:"id"`
}

// IsNew reports whether the record has not been assigned a key yet.
func (r Record[K]) IsNew() bool {
	var zero K
	return r.ID == zero
}

func (Record[K]) keyType() reflect.Type {
	return reflect.TypeFor[K]()
}

// keyed is implemented by every struct embedding a Record.
type keyed interface {
	keyType() reflect.Type
}

var keyedType = reflect.TypeFor[keyed]()

// Char is a single character column, stored as character(1).
type Char rune
