// Package database provides SQLite persistence for InFusion Core.
//
// It wraps database/sql with lifecycle management (directory creation,
// WAL mode, busy timeout, restrictive file permissions) and a simple
// embedded-migration mechanism.
//
// The database backs two concerns:
//   - the project-file cache (internal/backup), keyed by panel hostname
//   - the state-change history (internal/history)
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/infusion.db", WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
