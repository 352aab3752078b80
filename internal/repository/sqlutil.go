package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hitoshi/assetdesk/internal/database"
)

// requireAffected は更新・削除が1行以上に作用したかを確認する。
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// insertReturningID はINSERTを実行し採番されたIDを返す。
// PostgreSQLはLastInsertIdをサポートしないため RETURNING 句を付与する。
func insertReturningID(ctx context.Context, db *sql.DB, driver database.Driver, query, idColumn string, args ...any) (int64, error) {
	if driver == database.DriverPostgres {
		var id int64
		q := database.Rebind(driver, query) + " RETURNING " + idColumn
		if err := db.QueryRowContext(ctx, q, args...).Scan(&id); err != nil {
			return 0, mapDriverError(err)
		}
		return id, nil
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapDriverError(err)
	}
	return result.LastInsertId()
}

// dateValue はYYYY-MM-DD形式の日付文字列をSQLパラメータに変換する。空文字列はNULLとして扱う。
func dateValue(s *string) any {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return *s
}

// formatDate はDATE列の読み取り値をYYYY-MM-DD形式に揃える。
// ドライバによってはtime.Timeの文字列表現が返るため先頭10文字に切り詰める。
func formatDate(ns sql.NullString) *string {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	s := ns.String
	if len(s) > 10 {
		s = s[:10]
	}
	return &s
}

// nullableString は空文字列をNULLとして扱う。
func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

// stringPtr はNULL許容の文字列列をポインタに変換する。
func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
