package services

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrTemplateNotFound    = errors.New("template not found")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrAlreadyLiked        = errors.New("template already liked")
	ErrLikeNotFound        = errors.New("like not found")
	ErrHistoryNotFound     = errors.New("history entry not found")
	ErrInvalidAPIKeyFormat = errors.New("invalid API key format")
	ErrAPIKeyNotConfigured = errors.New("API key not configured")
	ErrCredentialNotFound  = errors.New("credential not found")
	ErrUserAlreadyExists   = errors.New("user with this username already exists")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrUserInactive        = errors.New("user account is disabled")
	ErrUserNotFound        = errors.New("user not found")
	ErrOptimisticLock      = errors.New("data has been modified by another user, please refresh and try again")
)
