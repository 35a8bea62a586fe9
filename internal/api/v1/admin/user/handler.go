package user

import (
	"net/http"
	"strconv"
	"time"

	"github.com/RainbowRain9/auto-prompt-sub002/internal/api/respond"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/middleware"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/models"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/services"
	"github.com/RainbowRain9/auto-prompt-sub002/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserListItem struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type UserListResponse struct {
	Users []UserListItem `json:"users"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func newUserListItem(u models.User) UserListItem {
	return UserListItem{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		Version:     u.Version,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ListUsers godoc
// @Summary List all users
// @Description Get a paginated list of users. Admin only.
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} utils.Response{data=UserListResponse}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 403 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/users [get]
func ListUsers(c *gin.Context) {
	pageStr := c.DefaultQuery("page", "1")
	limitStr := c.DefaultQuery("limit", "20")

	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid page number"))
		return
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > services.MaxPageSize {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "Invalid limit number"))
		return
	}

	users, total, err := services.FindUsers(c.Request.Context(), page, limit)
	if err != nil {
		respond.Error(c, err)
		return
	}

	userItems := make([]UserListItem, 0, len(users))
	for _, u := range users {
		userItems = append(userItems, newUserListItem(u))
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("Users retrieved successfully", UserListResponse{
		Users: userItems,
		Total: total,
		Page:  page,
		Limit: limit,
	}))
}

// UpdateUserRequest represents the request body for updating a user.
// Version, when set, must match the stored version.
type UpdateUserRequest struct {
	DisplayName *string `json:"display_name,omitempty" binding:"omitempty,max=100"`
	Password    *string `json:"password,omitempty" binding:"omitempty,min=6,max=72"`
	Role        *string `json:"role,omitempty" binding:"omitempty,oneof=admin user"`
	IsActive    *bool   `json:"is_active,omitempty"`
	Version     int     `json:"version"`
}

// UpdateUser godoc
// @Summary Update a user
// @Description Update user details with optimistic locking. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "User ID"
// @Param body body UpdateUserRequest true "User details to update"
// @Success 200 {object} utils.Response{data=UserListItem}
// @Failure 400 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Failure 404 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Failure 500 {object} utils.Response
// @Router /admin/users/{id} [patch]
func UpdateUser(c *gin.Context) {
	var req UpdateUserRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if req.DisplayName == nil && req.Password == nil && req.Role == nil && req.IsActive == nil {
		c.JSON(http.StatusBadRequest, utils.NewErrorResponse(http.StatusBadRequest, "No fields to update"))
		return
	}

	operator := "unknown"
	if u, ok := middleware.CurrentUser(c); ok {
		operator = u.Username
	}

	updatedUser, err := services.UpdateUser(c.Request.Context(), c.Param("id"), services.UserUpdate{
		DisplayName: req.DisplayName,
		Role:        req.Role,
		IsActive:    req.IsActive,
		Password:    req.Password,
		Version:     req.Version,
	}, operator)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, utils.NewSuccessResponse("User updated successfully", newUserListItem(*updatedUser)))
}
