package user

type credentials struct {
	Login    string `json:"login" minLength:"1" doc:"Логин"`
	Password string `json:"password" minLength:"1" doc:"Пароль"`
}

type registerInput struct {
	Body credentials
}

type registerOutput struct {
	Status int
	Body   RegisterResponse
}

type RegisterResponse struct {
	ID     int64  `json:"user_id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type loginInput struct {
	Body credentials
}

type loginOutput struct {
	Status int
	Body   LoginResponse
}

type LoginResponse struct {
	Token  string `json:"token,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type logoutInput struct {
	Authorization string `header:"Authorization"`
}

type logoutOutput struct {
	Body LogoutResponse
}

type LogoutResponse struct {
	Status string `json:"status"`
}
