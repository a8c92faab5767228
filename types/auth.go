package types

// Session is a signed-in identity together with its bearer token.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Name  string `json:"name" validate:"required,max=100"`

	// Password is optional; accounts without one sign in by email alone.
	Password string `json:"password,omitempty" validate:"omitempty,min=6,max=72"`
}

// LoginInput carries sign-in credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty"`
}
