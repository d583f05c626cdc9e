package database

import "database/sql"

// execMatched reports whether an ExecContext result affected at least one
// row. A zero count is not an error here: conditional single-row updates use
// it to signal that the guard did not match.
func execMatched(result sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return false, affectedErr
	}
	return n > 0, nil
}
