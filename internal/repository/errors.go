package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しないことを示す。
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate は一意制約に違反したことを示す。
	ErrDuplicate = errors.New("repository: duplicate record")
)

const (
	mysqlDuplicateEntry     = 1062
	postgresUniqueViolation = "23505"
)

// mapDriverError はドライバ固有のエラーをリポジトリのセンチネルエラーに変換する。
// 該当しない場合は元のエラーをそのまま返す。
func mapDriverError(err error) error {
	if err == nil {
		return nil
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return ErrDuplicate
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == postgresUniqueViolation {
		return ErrDuplicate
	}

	return err
}
