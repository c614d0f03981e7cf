package service

import (
	"errors"

	"pujaledger/internal/infrastructure/database"
	"pujaledger/internal/repository"
	"pujaledger/pkg/apperr"
)

// translate 把仓储层错误转换为业务错误
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, repository.ErrMemberNotFound):
		return apperr.NotFound(apperr.CodeMemberNotFound, "member not found")
	case errors.Is(err, repository.ErrTransactionNotFound):
		return apperr.NotFound(apperr.CodeTransactionNotFound, "transaction not found")
	case errors.Is(err, repository.ErrDonorNotFound):
		return apperr.NotFound(apperr.CodeDonorNotFound, "donor not found")
	case errors.Is(err, repository.ErrIdentityNotFound):
		return apperr.NotFound(apperr.CodeIdentityNotFound, "user not found")
	case database.IsUniqueViolation(err):
		return apperr.Conflict(apperr.CodeConflict, "record already exists")
	}
	return apperr.Internal(msg, err)
}

// translateIdentity 账号表上唯一的唯一索引是 login_name
func translateIdentity(err error, msg string) error {
	if database.IsUniqueViolation(err) {
		return apperr.Conflict(apperr.CodeDuplicateLogin, "login name already exists")
	}
	return translate(err, msg)
}
