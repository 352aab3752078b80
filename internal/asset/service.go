// Package asset はコンピューター・プリンター資産管理のドメインロジックを提供する。
package asset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/repository"
)

// ComputerService はコンピューター資産のサービス層。
type ComputerService struct {
	repo repository.ComputerRepository
}

// NewComputerService はComputerServiceを生成する。
func NewComputerService(repo repository.ComputerRepository) *ComputerService {
	return &ComputerService{repo: repo}
}

// List は全コンピューターを返す。
func (s *ComputerService) List(ctx context.Context) ([]*model.Computer, error) {
	computers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("コンピューター一覧の取得に失敗しました: %w", err)
	}
	return computers, nil
}

// Create はコンピューターを登録し、採番されたIDを返す。
func (s *ComputerService) Create(ctx context.Context, c *model.Computer) (int64, error) {
	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return 0, mapRepoError(err, model.NewComputerNotFoundError, "コンピューターの登録に失敗しました")
	}
	slog.Info("computer created",
		slog.Int64("id_computer", id),
		slog.Int64("asset_number", c.AssetNumber),
	)
	return id, nil
}

// Update はコンピューター情報を更新する。
func (s *ComputerService) Update(ctx context.Context, c *model.Computer) error {
	if err := s.repo.Update(ctx, c); err != nil {
		return mapRepoError(err, model.NewComputerNotFoundError, "コンピューターの更新に失敗しました")
	}
	slog.Info("computer updated", slog.Int64("id_computer", c.ID))
	return nil
}

// Delete は指定IDのコンピューターを削除する。
func (s *ComputerService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, model.NewComputerNotFoundError, "コンピューターの削除に失敗しました")
	}
	slog.Info("computer deleted", slog.Int64("id_computer", id))
	return nil
}

// PrinterService はプリンター資産のサービス層。
type PrinterService struct {
	repo repository.PrinterRepository
}

// NewPrinterService はPrinterServiceを生成する。
func NewPrinterService(repo repository.PrinterRepository) *PrinterService {
	return &PrinterService{repo: repo}
}

// List は全プリンターを返す。
func (s *PrinterService) List(ctx context.Context) ([]*model.Printer, error) {
	printers, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("プリンター一覧の取得に失敗しました: %w", err)
	}
	return printers, nil
}

// Create はプリンターを登録し、採番されたIDを返す。
func (s *PrinterService) Create(ctx context.Context, p *model.Printer) (int64, error) {
	id, err := s.repo.Create(ctx, p)
	if err != nil {
		return 0, mapRepoError(err, model.NewPrinterNotFoundError, "プリンターの登録に失敗しました")
	}
	slog.Info("printer created",
		slog.Int64("id_printer", id),
		slog.Int64("asset_number", p.AssetNumber),
	)
	return id, nil
}

// Update はプリンター情報を更新する。
func (s *PrinterService) Update(ctx context.Context, p *model.Printer) error {
	if err := s.repo.Update(ctx, p); err != nil {
		return mapRepoError(err, model.NewPrinterNotFoundError, "プリンターの更新に失敗しました")
	}
	slog.Info("printer updated", slog.Int64("id_printer", p.ID))
	return nil
}

// Delete は指定IDのプリンターを削除する。
func (s *PrinterService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, model.NewPrinterNotFoundError, "プリンターの削除に失敗しました")
	}
	slog.Info("printer deleted", slog.Int64("id_printer", id))
	return nil
}

// mapRepoError はリポジトリのセンチネルエラーをAPIErrorに変換する。
// 資産番号の一意制約違反はDUPLICATEとして返す。
func mapRepoError(err error, notFound func() *model.APIError, msg string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound()
	case errors.Is(err, repository.ErrDuplicate):
		return model.NewDuplicateError("Patrimônio")
	default:
		return fmt.Errorf("%s: %w", msg, err)
	}
}
