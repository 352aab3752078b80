package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
)

// ComputerServiceInterface はコンピューターハンドラーが必要とするサービスインターフェース。
type ComputerServiceInterface interface {
	List(ctx context.Context) ([]*model.Computer, error)
	Create(ctx context.Context, c *model.Computer) (int64, error)
	Update(ctx context.Context, c *model.Computer) error
	Delete(ctx context.Context, id int64) error
}

// PrinterServiceInterface はプリンターハンドラーが必要とするサービスインターフェース。
type PrinterServiceInterface interface {
	List(ctx context.Context) ([]*model.Printer, error)
	Create(ctx context.Context, p *model.Printer) (int64, error)
	Update(ctx context.Context, p *model.Printer) error
	Delete(ctx context.Context, id int64) error
}

// --- コンピューター ---

// ComputerHandler はコンピューター資産のHTTPハンドラー。
type ComputerHandler struct {
	service ComputerServiceInterface
}

// NewComputerHandler はComputerHandlerを生成する。
func NewComputerHandler(service ComputerServiceInterface) *ComputerHandler {
	return &ComputerHandler{service: service}
}

// computerPayload はコンピューターのリクエスト・レスポンス共通の表現。
type computerPayload struct {
	ID          int64   `json:"id_computer"`
	Name        string  `json:"name_computer"`
	Type        string  `json:"type_computer"`
	MAC         string  `json:"mac_computer"`
	AssetNumber int64   `json:"asset_number"`
	Status      *int    `json:"status_computer"`
	ExitDate    *string `json:"exit_date"`
	Reason      string  `json:"reason"`
	ReturnDate  *string `json:"return_date"`
}

func (p *computerPayload) validate(requireID bool) *model.APIError {
	p.ExitDate = normalizeDate(p.ExitDate)
	p.ReturnDate = normalizeDate(p.ReturnDate)

	var v validator
	if requireID {
		v.positive(p.ID, "O id deve ser um número inteiro positivo")
	}
	v.minLen(p.Name, 2, "O nome do computador deve ter pelo menos dois caracteres")
	v.minLen(p.Type, 2, "O tipo do computador deve ter pelo menos dois caracteres")
	v.minLen(p.MAC, 2, "O mac do computador deve ter pelo menos dois caracteres")
	v.positive(p.AssetNumber, "O patrimônio deve ser um número inteiro positivo")
	v.nonNegative(p.Status, "O valor de status não pode ser negativo")
	v.optionalDate(p.ExitDate, "A data de saída deve estar no formato AAAA-MM-DD")
	v.minLen(p.Reason, 2, "O motivo deve ter pelo menos 2 caracteres")
	v.optionalDate(p.ReturnDate, "A data de retorno deve estar no formato AAAA-MM-DD")
	return v.err
}

func (p *computerPayload) toModel() *model.Computer {
	return &model.Computer{
		ID:          p.ID,
		Name:        p.Name,
		Type:        p.Type,
		MAC:         p.MAC,
		AssetNumber: p.AssetNumber,
		Status:      *p.Status,
		ExitDate:    p.ExitDate,
		Reason:      p.Reason,
		ReturnDate:  p.ReturnDate,
	}
}

func toComputerPayload(c *model.Computer) computerPayload {
	status := c.Status
	return computerPayload{
		ID:          c.ID,
		Name:        c.Name,
		Type:        c.Type,
		MAC:         c.MAC,
		AssetNumber: c.AssetNumber,
		Status:      &status,
		ExitDate:    c.ExitDate,
		Reason:      c.Reason,
		ReturnDate:  c.ReturnDate,
	}
}

// List はコンピューター一覧を返す。
// GET /computers
func (h *ComputerHandler) List(w http.ResponseWriter, r *http.Request) {
	computers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	data := make([]computerPayload, len(computers))
	for i, c := range computers {
		data[i] = toComputerPayload(c)
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: data})
}

// Create はコンピューターを登録する。
// POST /computers
func (h *ComputerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req computerPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(false); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	id, err := h.service.Create(r.Context(), req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Success: true, Message: "Computador cadastrado com sucesso", ID: id})
}

// Update はコンピューター情報を更新する。
// PUT /computers
func (h *ComputerHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req computerPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(true); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.Update(r.Context(), req.toModel()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Computador atualizado com sucesso")
}

// Delete はコンピューターを削除する。
// DELETE /computers/{id_computer}
func (h *ComputerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id_computer")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Computador deletado com sucesso")
}

// --- プリンター ---

// PrinterHandler はプリンター資産のHTTPハンドラー。
type PrinterHandler struct {
	service PrinterServiceInterface
}

// NewPrinterHandler はPrinterHandlerを生成する。
func NewPrinterHandler(service PrinterServiceInterface) *PrinterHandler {
	return &PrinterHandler{service: service}
}

// printerPayload はプリンターのリクエスト・レスポンス共通の表現。
type printerPayload struct {
	ID          int64   `json:"id_printer"`
	Name        string  `json:"name_printer"`
	MAC         string  `json:"mac_printer"`
	AssetNumber int64   `json:"asset_number"`
	Status      *int    `json:"status_printer"`
	ExitDate    *string `json:"exit_date"`
	Reason      *string `json:"reason"`
	ReturnDate  *string `json:"return_date"`
}

func (p *printerPayload) validate(requireID bool) *model.APIError {
	p.ExitDate = normalizeDate(p.ExitDate)
	p.ReturnDate = normalizeDate(p.ReturnDate)

	var v validator
	if requireID {
		v.positive(p.ID, "O id deve ser um número inteiro positivo")
	}
	v.minLen(p.Name, 2, "O nome da impressora deve ter pelo menos dois caracteres")
	v.minLen(p.MAC, 12, "O mac da impressora deve ter pelo menos 12 caracteres")
	v.positive(p.AssetNumber, "O patrimônio deve ser um número inteiro positivo")
	v.nonNegative(p.Status, "O valor de status não pode ser negativo")
	v.optionalDate(p.ExitDate, "A data de saída deve estar no formato AAAA-MM-DD")
	v.optionalDate(p.ReturnDate, "A data de retorno deve estar no formato AAAA-MM-DD")
	return v.err
}

func (p *printerPayload) toModel() *model.Printer {
	return &model.Printer{
		ID:          p.ID,
		Name:        p.Name,
		MAC:         p.MAC,
		AssetNumber: p.AssetNumber,
		Status:      *p.Status,
		ExitDate:    p.ExitDate,
		Reason:      p.Reason,
		ReturnDate:  p.ReturnDate,
	}
}

func toPrinterPayload(p *model.Printer) printerPayload {
	status := p.Status
	return printerPayload{
		ID:          p.ID,
		Name:        p.Name,
		MAC:         p.MAC,
		AssetNumber: p.AssetNumber,
		Status:      &status,
		ExitDate:    p.ExitDate,
		Reason:      p.Reason,
		ReturnDate:  p.ReturnDate,
	}
}

// List はプリンター一覧を返す。
// GET /printers
func (h *PrinterHandler) List(w http.ResponseWriter, r *http.Request) {
	printers, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	data := make([]printerPayload, len(printers))
	for i, p := range printers {
		data[i] = toPrinterPayload(p)
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: data})
}

// Create はプリンターを登録する。
// POST /printers
func (h *PrinterHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req printerPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(false); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	id, err := h.service.Create(r.Context(), req.toModel())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Success: true, Message: "Impressora cadastrada com sucesso", ID: id})
}

// Update はプリンター情報を更新する。
// PUT /printers
func (h *PrinterHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req printerPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(true); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.Update(r.Context(), req.toModel()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Impressora atualizada com sucesso")
}

// Delete はプリンターを削除する。
// DELETE /printers/{id_printer}
func (h *PrinterHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id_printer")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Impressora deletada com sucesso")
}

// pathID はURLパラメータから正の整数IDを取り出す。不正な場合は400を書き込みfalseを返す。
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidDataError(""))
		return 0, false
	}
	return id, true
}
