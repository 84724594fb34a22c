// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers to distinguish
// between failure scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate")

// ErrConflict is returned when a row is not in the state an update
// requires.
var ErrConflict = errors.New("conflict")

// ErrAlreadyRedeemed is returned when a booking has already been checked
// in, either before the redemption started or by a concurrent one.
var ErrAlreadyRedeemed = errors.New("already redeemed")

// ErrSlotTaken is returned when a new booking overlaps a booking that
// occupies the same room.
var ErrSlotTaken = errors.New("slot taken")

// ErrEmailExists is returned when registering an email or NPM that is
// already in use.
var ErrEmailExists = errors.New("email already exists")

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is a MySQL unique-key violation.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
