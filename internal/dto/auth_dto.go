package dto

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	User         UsuarioResponse `json:"user"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type CrearUsuarioRequest struct {
	Username string  `json:"username" validate:"required"`
	Nombre   string  `json:"nombre" validate:"required"`
	Alias    *string `json:"alias"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Rol      string  `json:"rol" validate:"required,oneof=admin supervisor asesor"`
}

type UsuarioResponse struct {
	ID     string  `json:"id"`
	Username string `json:"username"`
	Nombre string  `json:"nombre"`
	Alias  *string `json:"alias,omitempty"`
	Email  *string `json:"email,omitempty"`
	Rol    string  `json:"rol"`
	Activo bool    `json:"activo"`
}
