package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/assetdesk/internal/database"
	"github.com/hitoshi/assetdesk/internal/model"
)

// SQLComputerRepo はコンピューター資産のリポジトリ。
type SQLComputerRepo struct {
	db     *sql.DB
	driver database.Driver
}

// NewSQLComputerRepo はSQLComputerRepoを生成する。
func NewSQLComputerRepo(db *sql.DB, driver database.Driver) *SQLComputerRepo {
	return &SQLComputerRepo{db: db, driver: driver}
}

// List は全コンピューターをID順で取得する。日付はYYYY-MM-DD形式に揃える。
func (r *SQLComputerRepo) List(ctx context.Context) ([]*model.Computer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id_computer, name_computer, type_computer, mac_computer, asset_number,
		        status_computer, exit_date, reason, return_date
		 FROM computers ORDER BY id_computer`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list computers: %w", err)
	}
	defer rows.Close()

	var computers []*model.Computer
	for rows.Next() {
		c := &model.Computer{}
		var exitDate, returnDate sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Type, &c.MAC, &c.AssetNumber,
			&c.Status, &exitDate, &c.Reason, &returnDate); err != nil {
			return nil, fmt.Errorf("failed to scan computer: %w", err)
		}
		c.ExitDate = formatDate(exitDate)
		c.ReturnDate = formatDate(returnDate)
		computers = append(computers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate computers: %w", err)
	}

	return computers, nil
}

// Create はコンピューターを登録する。資産番号が重複する場合はErrDuplicateを返す。
func (r *SQLComputerRepo) Create(ctx context.Context, c *model.Computer) (int64, error) {
	id, err := insertReturningID(ctx, r.db, r.driver,
		`INSERT INTO computers (name_computer, type_computer, mac_computer, asset_number, status_computer, exit_date, reason, return_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"id_computer",
		c.Name, c.Type, c.MAC, c.AssetNumber, c.Status, dateValue(c.ExitDate), c.Reason, dateValue(c.ReturnDate),
	)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to insert computer: %w", err)
	}
	return id, nil
}

// Update はコンピューター情報を更新する。
func (r *SQLComputerRepo) Update(ctx context.Context, c *model.Computer) error {
	result, err := r.db.ExecContext(ctx,
		database.Rebind(r.driver, `UPDATE computers SET name_computer = ?, mac_computer = ?, type_computer = ?, asset_number = ?,
		 status_computer = ?, exit_date = ?, reason = ?, return_date = ? WHERE id_computer = ?`),
		c.Name, c.MAC, c.Type, c.AssetNumber, c.Status, dateValue(c.ExitDate), c.Reason, dateValue(c.ReturnDate), c.ID,
	)
	if err != nil {
		if mapped := mapDriverError(err); errors.Is(mapped, ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to update computer: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのコンピューターを削除する。
func (r *SQLComputerRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		database.Rebind(r.driver, `DELETE FROM computers WHERE id_computer = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete computer: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ ComputerRepository = (*SQLComputerRepo)(nil)
