package storage

import "errors"

// Storage error constants
var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists is returned when creating a user whose email is taken
	ErrUserExists = errors.New("user already exists")

	// ErrRoleNotFound is returned when a role is not found
	ErrRoleNotFound = errors.New("role not found")

	// ErrOrganisationNotFound is returned when an organisation is not found
	ErrOrganisationNotFound = errors.New("organisation not found")

	// ErrSettingNotFound is returned when a user setting is not found
	ErrSettingNotFound = errors.New("user setting not found")

	// ErrConstraintViolation is returned when a database constraint is violated
	ErrConstraintViolation = errors.New("constraint violation")
)
