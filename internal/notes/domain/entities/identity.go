package entities

// Identity - аутентифицированный пользователь, полученный от внешнего провайдера.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}
