package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// AuthControllerRoutes holds the paths the controller mounts.
type AuthControllerRoutes struct {
	Register string
	Login    string
}

// AuthController exposes the registration and login flows over JSON.
type AuthController struct {
	Debug        bool
	Logger       Logger
	Registrar    *RegisterUserHandler
	Auther       Authenticator
	Routes       *AuthControllerRoutes
	ErrorHandler func(*fiber.Ctx, error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithRegistrar(handler *RegisterUserHandler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Registrar = handler
		return c
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:       defLogger{},
		ErrorHandler: DefaultErrorHandler,
		Routes: &AuthControllerRoutes{
			Register: "/a/register",
			Login:    "/a/login",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Registrar == nil {
		panic("Missing RegisterUserHandler in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth endpoints on the given router.
func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate)
	app.Post(controller.Routes.Login, controller.LoginPost)

	return controller
}

// RegisterRequest is the registration payload
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 50)),
		validation.Field(&r.LastName, validation.Required, validation.Length(2, 50)),
		validation.Field(&r.Password, validation.Required, validation.Length(12, 100)),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// RegistrationCreate handles POST /a/register
func (a *AuthController) RegistrationCreate(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Info("Registration payload bind error: %v", err)
		return a.ErrorHandler(c, errors.Wrap(err, errors.CategoryBadInput, "Bad request. Missing parameter or wrong payload.").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(c, WrapValidationErrors(err, map[string]string{
			"email":      payload.Email,
			"first_name": payload.FirstName,
			"last_name":  payload.LastName,
		}))
	}

	if a.Debug {
		redacted := *payload
		redacted.Password = "[redacted]"
		a.Logger.Debug("registration payload: %s", print.MaybePrettyJSON(redacted))
	}

	result, err := a.Registrar.Execute(c.UserContext(), RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Password:  payload.Password,
	})

	if err != nil {
		return a.ErrorHandler(c, err)
	}

	status := fiber.StatusCreated
	if result.Status == RegistrationFailed {
		status = fiber.StatusBadRequest
	}

	return c.Status(status).JSON(result)
}

// LoginPost handles POST /a/login
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Info("Login payload bind error: %v", err)
		return a.ErrorHandler(c, errors.Wrap(err, errors.CategoryBadInput, "Bad request. Missing parameter or wrong payload.").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(c, WrapValidationErrors(err, map[string]string{
			"email": payload.Email,
		}))
	}

	token, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return a.ErrorHandler(c, err)
	}

	return c.JSON(LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
	})
}

// DefaultErrorHandler renders any flow error as an ErrorResponse body.
func DefaultErrorHandler(c *fiber.Ctx, err error) error {
	status, resp := NewErrorResponse(err)
	return c.Status(status).JSON(resp)
}
