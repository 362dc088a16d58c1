package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/tripmate/pkg/errors"
)

var (
	// ErrTripNotFound indicates the requested trip does not exist.
	ErrTripNotFound = apperrors.ErrNotFound.WithMessage("Trip not found")
	// ErrItemNotFound indicates the requested packing item does not exist.
	ErrItemNotFound = apperrors.ErrNotFound.WithMessage("Item not found")
	// ErrMemberNotFound indicates the requested membership does not exist.
	ErrMemberNotFound = apperrors.ErrNotFound.WithMessage("Member not found")
	// ErrAccommodationNotFound indicates the requested accommodation does not exist.
	ErrAccommodationNotFound = apperrors.ErrNotFound.WithMessage("Accommodation not found")
	// ErrExpenseNotFound indicates the requested expense does not exist.
	ErrExpenseNotFound = apperrors.ErrNotFound.WithMessage("Expense not found")
	// ErrPhotoNotFound indicates the requested photo does not exist.
	ErrPhotoNotFound = apperrors.ErrNotFound.WithMessage("Photo not found")
	// ErrCommentNotFound indicates the requested comment does not exist.
	ErrCommentNotFound = apperrors.ErrNotFound.WithMessage("Comment not found")
	// ErrNotificationNotFound indicates the requested notification does not exist.
	ErrNotificationNotFound = apperrors.ErrNotFound.WithMessage("Notification not found")
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = apperrors.ErrNotFound.WithMessage("User not found")

	// ErrAlreadyMember rejects adding a user to a trip twice.
	ErrAlreadyMember = apperrors.ErrConflict.WithMessage("User is already a member of this trip")
	// ErrEmailTaken rejects registering an address twice.
	ErrEmailTaken = apperrors.ErrConflict.WithMessage("Email is already registered")
	// ErrAlreadyLiked rejects liking the same photo twice.
	ErrAlreadyLiked = apperrors.ErrConflict.WithMessage("Photo already liked")
)

// isUniqueConstraintError detects database uniqueness constraint violations across vendors.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr != nil && pgErr.Code == "23505" {
		return true
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr != nil && myErr.Number == 1062 {
		return true
	}

	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate")
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and passes other errors through.
func notFoundOr(err error, notFound *apperrors.AppError) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
