package model

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ProfileUpdateRequest struct {
	Avatar *string `json:"avatar,omitempty" validate:"omitnil,min=1,max=16"`
	Zone   *string `json:"zone,omitempty" validate:"omitnil,zone"`
}
