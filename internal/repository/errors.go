package repository

import (
	"errors"
)

var (
	ErrMemberNotFound      = errors.New("会员不存在")
	ErrIdentityNotFound    = errors.New("账号不存在")
	ErrDonorNotFound       = errors.New("捐赠人不存在")
	ErrTransactionNotFound = errors.New("流水不存在")
)
