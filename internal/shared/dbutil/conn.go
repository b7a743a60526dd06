package dbutil

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Conn returns a gorm session for ctx that runs on tx when tx is not nil, so
// repositories built around *gorm.DB can join a transaction opened by the
// service on the underlying *sql.DB.
func Conn(ctx context.Context, db *gorm.DB, tx *sql.Tx) *gorm.DB {
	session := db.WithContext(ctx)
	if tx != nil {
		session.Statement.ConnPool = tx
	}
	return session
}
