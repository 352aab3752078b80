package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// Messageは利用者にそのまま表示される。
type APIError struct {
	Code    string // エラーコード
	Message string // エラーメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeInvalidData        = "INVALID_DATA"
	ErrCodeServerError        = "SERVER_ERROR"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeRouteNotFound      = "ROUTE_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeComputerNotFound   = "COMPUTER_NOT_FOUND"
	ErrCodePrinterNotFound    = "PRINTER_NOT_FOUND"
	ErrCodeDuplicate          = "DUPLICATE"
	ErrCodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	ErrCodeNoToken            = "NO_TOKEN"
	ErrCodeCSRFInvalid        = "CSRF_TOKEN_INVALID"
	ErrCodeUpstreamFailed     = "UPSTREAM_FAILED"
)

// NewUnauthenticatedError はトークン未提示エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{Code: ErrCodeUnauthenticated, Message: "Acesso negado, nenhum token fornecido"}
}

// NewInvalidTokenError はトークン不正・期限切れエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{Code: ErrCodeInvalidToken, Message: "Token inválido ou expirado"}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{Code: ErrCodeForbidden, Message: "Você não tem permissão para isso"}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{Code: ErrCodeInvalidCredentials, Message: "Usuário ou senha incorretos"}
}

// NewMissingFieldsError は必須項目未入力エラーを生成する。
func NewMissingFieldsError() *APIError {
	return &APIError{Code: ErrCodeMissingFields, Message: "Preencha todos os campos"}
}

// NewInvalidDataError は入力値検証エラーを生成する。
func NewInvalidDataError(reason string) *APIError {
	if reason == "" {
		reason = "Dados inválidos"
	}
	return &APIError{Code: ErrCodeInvalidData, Message: reason}
}

// NewServerError は設定不備などサーバー側の障害を表すエラーを生成する。
func NewServerError() *APIError {
	return &APIError{Code: ErrCodeServerError, Message: "Erro no servidor"}
}

// NewInternalError は予期しないエラーを生成する。
func NewInternalError() *APIError {
	return &APIError{Code: ErrCodeInternal, Message: "Erro inesperado"}
}

// NewRouteNotFoundError は未定義ルートのエラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{Code: ErrCodeRouteNotFound, Message: fmt.Sprintf("A rota %s não existe", path)}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{Code: ErrCodeUserNotFound, Message: "Usuário não encontrado"}
}

// NewComputerNotFoundError はコンピューター未検出エラーを生成する。
func NewComputerNotFoundError() *APIError {
	return &APIError{Code: ErrCodeComputerNotFound, Message: "Computador não encontrado"}
}

// NewPrinterNotFoundError はプリンター未検出エラーを生成する。
func NewPrinterNotFoundError() *APIError {
	return &APIError{Code: ErrCodePrinterNotFound, Message: "Impressora não encontrada"}
}

// NewDuplicateError は一意制約違反エラーを生成する。
func NewDuplicateError(what string) *APIError {
	return &APIError{Code: ErrCodeDuplicate, Message: fmt.Sprintf("%s já cadastrado", what)}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{Code: ErrCodeRateLimited, Message: "Muitas requisições, tente novamente mais tarde"}
}

// NewNoTokenError はWeb層のプロキシでCookieが無い場合のエラーを生成する。
func NewNoTokenError() *APIError {
	return &APIError{Code: ErrCodeNoToken, Message: "No token"}
}

// NewCSRFInvalidError はCSRFトークン不一致エラーを生成する。
func NewCSRFInvalidError() *APIError {
	return &APIError{Code: ErrCodeCSRFInvalid, Message: "Token CSRF inválido"}
}

// NewUpstreamFailedError はAPI層との通信失敗エラーを生成する。
func NewUpstreamFailedError() *APIError {
	return &APIError{Code: ErrCodeUpstreamFailed, Message: "Erro de conexão com o servidor"}
}
