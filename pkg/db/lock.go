package db

import "gorm.io/gorm"

// LockingSuffix returns the row-lock clause for dialects that support it.
// SQLite serializes writers on its own, so tests run without the clause.
func LockingSuffix(tx *gorm.DB) string {
	switch tx.Dialector.Name() {
	case "postgres", "mysql":
		return " FOR UPDATE"
	default:
		return ""
	}
}
