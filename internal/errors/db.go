package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	keyColumnRe   = regexp.MustCompile(`Key \(([^)]+)\)=`)
	parentTableRe = regexp.MustCompile(`is not present in table "?([^"]+)"?`)
)

// tableNouns names role store tables in user-facing messages.
var tableNouns = map[string]string{
	"tb_user":      "user",
	"tb_role":      "role",
	"tb_user_role": "role grant",
}

// MapDBError turns driver and context errors into an *AppError with a code the
// handlers understand. Errors it does not recognize come back as they are.
// Every mapped error wraps the original, so errors.Is still sees it.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Resource not found", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fromPgError(pgErr)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &AppError{Code: ErrCodeUnavailable, Message: "Database is unreachable.", Cause: err}
	}
	return err
}

func fromPgError(pgErr *pgconn.PgError) *AppError {
	e := &AppError{Cause: pgErr}
	switch code := pgErr.Code; {
	case code == pgerrcode.UniqueViolation:
		e.Code = ErrCodeConflict
		e.Message = "This value already exists. Please choose a different one."
		e.Field = conflictingColumn(pgErr)
	case code == pgerrcode.ForeignKeyViolation:
		e.Code = ErrCodeForeignKey
		e.Message = missingParentMessage(pgErr)
	case code == pgerrcode.NotNullViolation, code == pgerrcode.CheckViolation:
		e.Code = ErrCodeValidation
		e.Field = pgErr.ColumnName
		e.Message = "Invalid data. Please check your input."
		if e.Field != "" {
			e.Message = "This field has an invalid value."
		}
	case code == pgerrcode.UndefinedTable, code == pgerrcode.UndefinedColumn, pgerrcode.IsConnectionException(code):
		// Schema not migrated yet, or the server went away mid-query.
		e.Code = ErrCodeUnavailable
		e.Message = "Role store is not available."
	default:
		e.Code = ErrCodeInternal
		e.Message = "A database error occurred. Please try again."
	}
	return e
}

// conflictingColumn prefers the column the server reports, then the one in "Key (col)=(val)".
func conflictingColumn(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := keyColumnRe.FindStringSubmatch(pgErr.Detail); m != nil {
		return m[1]
	}
	return ""
}

func missingParentMessage(pgErr *pgconn.PgError) string {
	table := pgErr.TableName
	if m := parentTableRe.FindStringSubmatch(pgErr.Detail); m != nil {
		table = m[1]
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return "Cannot complete operation because a referenced item does not exist."
	}
	noun, ok := tableNouns[strings.ToLower(table)]
	if !ok {
		noun = strings.ReplaceAll(table, "_", " ")
	}
	return "Cannot complete operation because the referenced " + noun + " does not exist."
}
