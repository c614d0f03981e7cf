package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveStatus(t *testing.T) {
	assert.Equal(t, StatusPaid, DeriveStatus(500, 500))
	assert.Equal(t, StatusPaid, DeriveStatus(600, 500))
	assert.Equal(t, StatusDue, DeriveStatus(499, 500))
	assert.Equal(t, StatusDue, DeriveStatus(0, 500))
}

func TestRecomputeIsIdempotent(t *testing.T) {
	for _, tc := range []struct{ paid, amount int64 }{{0, 100}, {50, 100}, {100, 100}} {
		txn := &Transaction{Amount: tc.amount, PaidAmount: tc.paid, Status: "bogus"}
		txn.Recompute()
		first := txn.Status
		txn.Recompute()
		assert.Equal(t, first, txn.Status)
		assert.Equal(t, DeriveStatus(tc.paid, tc.amount), txn.Status)
	}
}

func TestDisplayFallbacks(t *testing.T) {
	txn := &Transaction{Kind: KindChanda}
	assert.Equal(t, AnonymousName, txn.DisplayNameOrAnonymous())
	assert.Equal(t, "-", txn.DisplayPhoneOrDash())

	txn.DisplayName, txn.DisplayPhone = "Ratan", "98300"
	assert.Equal(t, "Ratan", txn.DisplayNameOrAnonymous())
	assert.Equal(t, "98300", txn.DisplayPhoneOrDash())

	expense := &Transaction{Kind: KindExpense}
	assert.Empty(t, expense.DisplayNameOrAnonymous())
}

func TestKindHelpers(t *testing.T) {
	assert.True(t, IsIncomeKind(KindMemberContribution))
	assert.False(t, IsIncomeKind(KindExpense))
	assert.True(t, IsValidPaymentMode(PaymentModeUPI))
	assert.False(t, IsValidPaymentMode("Cheque"))
	assert.True(t, IsValidMemberRole(MemberRoleAdmin))
	assert.False(t, IsValidIdentityRole(MemberRoleUser))
}
