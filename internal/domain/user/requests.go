package user

type SignupRequest struct {
	Name            string `json:"name" binding:"required,min=1,max=80"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// LoginRequest is validated by hand so that every failure maps to the same
// "Incorrect email or password" answer.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

type UpdatePasswordRequest struct {
	PasswordCurrent string `json:"passwordCurrent" binding:"required"`
	Password        string `json:"password" binding:"required,min=8,max=72"`
	PasswordConfirm string `json:"passwordConfirm" binding:"required,eqfield=Password"`
}

// UpdateMeRequest lists the password fields only to reject them.
type UpdateMeRequest struct {
	Name            *string `json:"name" binding:"omitempty,min=1,max=80"`
	Email           *string `json:"email" binding:"omitempty,email"`
	Password        *string `json:"password"`
	PasswordConfirm *string `json:"passwordConfirm"`
}

func (r UpdateMeRequest) TouchesPassword() bool {
	return r.Password != nil || r.PasswordConfirm != nil
}

func (r UpdateMeRequest) Patch() Patch {
	return Patch{Name: r.Name, Email: r.Email}
}

type AdminUpdateRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=80"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Photo    *string `json:"photo" binding:"omitempty,max=255"`
	Role     *Role   `json:"role" binding:"omitempty,role"`
	Password *string `json:"password"`
}

func (r AdminUpdateRequest) Patch() Patch {
	return Patch{Name: r.Name, Email: r.Email, Photo: r.Photo, Role: r.Role}
}
