package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/assetdesk/internal/database"
	"github.com/hitoshi/assetdesk/internal/model"
)

// SQLPrinterRepo はプリンター資産のリポジトリ。
type SQLPrinterRepo struct {
	db     *sql.DB
	driver database.Driver
}

// NewSQLPrinterRepo はSQLPrinterRepoを生成する。
func NewSQLPrinterRepo(db *sql.DB, driver database.Driver) *SQLPrinterRepo {
	return &SQLPrinterRepo{db: db, driver: driver}
}

// List は全プリンターをID順で取得する。
func (r *SQLPrinterRepo) List(ctx context.Context) ([]*model.Printer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id_printer, name_printer, mac_printer, asset_number, status_printer, exit_date, reason, return_date
		 FROM printers ORDER BY id_printer`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list printers: %w", err)
	}
	defer rows.Close()

	var printers []*model.Printer
	for rows.Next() {
		p := &model.Printer{}
		var exitDate, reason, returnDate sql.NullString
		if err := rows.Scan(&p.ID, &p.Name, &p.MAC, &p.AssetNumber, &p.Status, &exitDate, &reason, &returnDate); err != nil {
			return nil, fmt.Errorf("failed to scan printer: %w", err)
		}
		p.ExitDate = formatDate(exitDate)
		p.Reason = stringPtr(reason)
		p.ReturnDate = formatDate(returnDate)
		printers = append(printers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate printers: %w", err)
	}

	return printers, nil
}

// Create はプリンターを登録する。
func (r *SQLPrinterRepo) Create(ctx context.Context, p *model.Printer) (int64, error) {
	id, err := insertReturningID(ctx, r.db, r.driver,
		`INSERT INTO printers (name_printer, mac_printer, asset_number, status_printer, exit_date, reason, return_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		"id_printer",
		p.Name, p.MAC, p.AssetNumber, p.Status, dateValue(p.ExitDate), nullableString(p.Reason), dateValue(p.ReturnDate),
	)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to insert printer: %w", err)
	}
	return id, nil
}

// Update はプリンター情報を更新する。
func (r *SQLPrinterRepo) Update(ctx context.Context, p *model.Printer) error {
	result, err := r.db.ExecContext(ctx,
		database.Rebind(r.driver, `UPDATE printers SET name_printer = ?, mac_printer = ?, asset_number = ?, status_printer = ?,
		 exit_date = ?, reason = ?, return_date = ? WHERE id_printer = ?`),
		p.Name, p.MAC, p.AssetNumber, p.Status, dateValue(p.ExitDate), nullableString(p.Reason), dateValue(p.ReturnDate), p.ID,
	)
	if err != nil {
		if mapped := mapDriverError(err); errors.Is(mapped, ErrDuplicate) {
			return mapped
		}
		return fmt.Errorf("failed to update printer: %w", err)
	}
	return requireAffected(result)
}

// Delete は指定IDのプリンターを削除する。
func (r *SQLPrinterRepo) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		database.Rebind(r.driver, `DELETE FROM printers WHERE id_printer = ?`), id)
	if err != nil {
		return fmt.Errorf("failed to delete printer: %w", err)
	}
	return requireAffected(result)
}

// compile-time interface check
var _ PrinterRepository = (*SQLPrinterRepo)(nil)
