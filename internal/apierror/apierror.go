// Package apierror define los sobres de error que la API devuelve al
// cliente. Ningún handler serializa errores internos directamente: todo
// 4xx/5xx pasa por aquí para no filtrar detalles de gorm, Redis o SMTP.
package apierror

// APIError es el sobre estándar: un único campo detail legible.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

func (e *APIError) Error() string { return e.Detail }

// ValidationError agrupa los fallos de validación campo a campo, con el
// nombre del campo en snake_case tal como viaja en el JSON.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
