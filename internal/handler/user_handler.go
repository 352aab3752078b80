package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/assetdesk/internal/middleware"
	"github.com/hitoshi/assetdesk/internal/model"
	"github.com/hitoshi/assetdesk/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context) ([]*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, in user.Input) (int64, error)
	Update(ctx context.Context, in user.Input) error
	Delete(ctx context.Context, id int64) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{service: service}
}

// userRequest はユーザー作成・更新リクエストのボディ。
type userRequest struct {
	ID            int64  `json:"id"`
	UserName      string `json:"user_name"`
	Position      string `json:"position"`
	Level         int    `json:"level_user"`
	Password      string `json:"password"`
	ResetPassword *int   `json:"reset_password"`
}

// deleteUserRequest はユーザー削除リクエストのボディ。
type deleteUserRequest struct {
	ID int64 `json:"id"`
}

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含まない。
type userResponse struct {
	ID               int64     `json:"id"`
	UserName         string    `json:"user_name"`
	Position         string    `json:"position"`
	Level            int       `json:"level_user"`
	ResetPassword    int       `json:"reset_password"`
	RegistrationDate time.Time `json:"registration_date"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// validate は作成・更新に共通の入力値を検証する。
func (req *userRequest) validate(requireID bool) *model.APIError {
	var v validator
	if requireID {
		v.positive(req.ID, "O id deve ser um número inteiro positivo")
	}
	v.minLen(req.UserName, 2, "O nome deve ter pelo menos dois caracteres")
	v.minLen(req.Position, 2, "A posição deve ter pelo menos dois caracteres")
	v.positive(int64(req.Level), "O nível do usuário deve ser um inteiro positivo")
	v.minLen(req.Password, 4, "A senha deve ter pelo menos 4 caracteres")
	v.nonNegative(req.ResetPassword, "O parâmetro de reset de senha não pode ser negativo")
	return v.err
}

func (req *userRequest) toInput() user.Input {
	return user.Input{
		ID:            req.ID,
		UserName:      req.UserName,
		Position:      req.Position,
		Level:         req.Level,
		Password:      req.Password,
		ResetPassword: *req.ResetPassword,
	}
}

// List はユーザー一覧を返す。
// GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	data := make([]userResponse, len(users))
	for i, u := range users {
		data[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: data})
}

// Get は指定IDのユーザーを返す。
// GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Success: true, Data: toUserResponse(u)})
}

// Create はユーザーを登録する。
// POST /users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(false); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	id, err := h.service.Create(r.Context(), req.toInput())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Success: true, Message: "Usuário cadastrado", ID: id})
}

// Update はユーザー情報を更新する。
// PUT /users/update
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if apiErr := req.validate(true); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	if err := h.service.Update(r.Context(), req.toInput()); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Usuário atualizado com sucesso")
}

// Delete はユーザーを削除する。
// DELETE /users/delete （ボディ {id}）
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req deleteUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidDataError("O id deve ser um número inteiro positivo"))
		return
	}

	if err := h.service.Delete(r.Context(), req.ID); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Usuário deletado com sucesso")
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:               u.ID,
		UserName:         u.UserName,
		Position:         u.Position,
		Level:            u.Level,
		ResetPassword:    u.ResetPassword,
		RegistrationDate: u.RegistrationDate,
		UpdatedAt:        u.UpdatedAt,
	}
}
