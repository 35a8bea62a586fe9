package auth

import (
	"net/http"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/respond"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

// Register godoc
// @Summary Register a new user
// @Description Register a new user with a username and password
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   input     body   RegisterInput  true  "Register Input"
// @Success 201 {object} utils.Response{data=UserResponse}
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /auth/register [post]
func Register(c *gin.Context) {
	var input RegisterInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	u, err := services.RegisterUser(c.Request.Context(), input.Username, input.Password, input.DisplayName)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, utils.NewResponse(http.StatusCreated, "User registered successfully", NewUserResponse(*u)))
}

// Login godoc
// @Summary Log in a user
// @Description Log in with a username and password and receive a bearer token
// @Tags auth
// @Accept  json
// @Produce  json
// @Param   input     body   LoginInput  true  "Login Input"
// @Success 200 {object} utils.Response{data=LoginResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 429 {object} utils.Response
// @Router /auth/login [post]
func Login(c *gin.Context) {
	var input LoginInput
	if !utils.BindAndValidate(c, &input) {
		return
	}

	result, err := services.LoginUser(c.Request.Context(), input.Username, input.Password)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged in successfully", LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      NewUserResponse(*result.User),
	}))
}

// Logout godoc
// @Summary Log out a user
// @Description Revoke the caller's current token
// @Tags auth
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /auth/logout [post]
func Logout(c *gin.Context) {
	if err := services.LogoutUser(c.Request.Context(), middleware.Identity(c).Token()); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, utils.NewSuccessResponse("Logged out successfully", nil))
}

// Me godoc
// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} utils.Response{data=UserResponse}
// @Failure 401 {object} utils.Response
// @Router /auth/me [get]
func Me(c *gin.Context) {
	user, _ := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, utils.NewSuccessResponse("User retrieved successfully", NewUserResponse(user)))
}
