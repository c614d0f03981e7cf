package handler

import (
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/internal/service"
	"pujaledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// transactionView 对外展示：无名付款人显示 Anonymous，无电话显示 "-"
type transactionView struct {
	*model.Transaction
	DisplayName  string `json:"displayName"`
	DisplayPhone string `json:"displayPhone"`
}

func newTransactionView(t *model.Transaction) transactionView {
	return transactionView{
		Transaction:  t,
		DisplayName:  t.DisplayNameOrAnonymous(),
		DisplayPhone: t.DisplayPhoneOrDash(),
	}
}

func newTransactionViews(list []*model.Transaction) []transactionView {
	out := make([]transactionView, 0, len(list))
	for _, t := range list {
		out = append(out, newTransactionView(t))
	}
	return out
}

type AddIncomeRequest struct {
	PayerName  string `json:"payerName"`
	Phone      string `json:"phone"`
	MemberRef  *int64 `json:"memberRef"`
	Amount     int64  `json:"amount"`
	PaidAmount *int64 `json:"paidAmount"`
	Kind       string `json:"kind"`
	FiscalYear int    `json:"fiscalYear"`
	Para       string `json:"para"`
	Category   string `json:"category"`
}

// AddIncome POST /api/transactions/income
func (h *Handler) AddIncome(c *gin.Context) {
	var req AddIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	entry, err := h.ledger.AddIncome(c.Request.Context(), service.AddIncomeInput{
		PayerName:  req.PayerName,
		Phone:      req.Phone,
		MemberID:   req.MemberRef,
		Amount:     req.Amount,
		PaidAmount: req.PaidAmount,
		Kind:       req.Kind,
		FiscalYear: req.FiscalYear,
		Para:       req.Para,
		Category:   req.Category,
		CreatedBy:  currentPrincipal(c).IdentityID,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, newTransactionView(entry))
}

type UpdateIncomeRequest struct {
	Amount     *int64  `json:"amount"`
	PaidAmount *int64  `json:"paidAmount"`
	PayerName  *string `json:"payerName"`
	Phone      *string `json:"phone"`
	FiscalYear *int    `json:"fiscalYear"`
	Para       *string `json:"para"`
	Category   *string `json:"category"`
}

// UpdateIncome PATCH /api/transactions/income/:id
func (h *Handler) UpdateIncome(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req UpdateIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	entry, err := h.ledger.UpdateIncome(c.Request.Context(), id, service.UpdateIncomeInput{
		Amount:     req.Amount,
		PaidAmount: req.PaidAmount,
		PayerName:  req.PayerName,
		Phone:      req.Phone,
		FiscalYear: req.FiscalYear,
		Para:       req.Para,
		Category:   req.Category,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, newTransactionView(entry))
}

// MarkIncomeAsPaid PATCH /api/transactions/income/:id/pay
func (h *Handler) MarkIncomeAsPaid(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	entry, err := h.ledger.MarkIncomeAsPaid(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, newTransactionView(entry))
}

// DeleteTransaction DELETE /api/transactions/transaction/:id
func (h *Handler) DeleteTransaction(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := h.ledger.DeleteTransaction(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "transaction deleted")
}

// ListTransactions GET /api/transactions/transaction?fiscalYear=&kind=&status=
func (h *Handler) ListTransactions(c *gin.Context) {
	year, err := fiscalYearQuery(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	list, err := h.ledger.ListTransactions(c.Request.Context(), repository.TransactionFilter{
		FiscalYear: year,
		Kind:       c.Query("kind"),
		Status:     c.Query("status"),
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, newTransactionViews(list))
}

type AddExpenseRequest struct {
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	PaymentMode string `json:"paymentMode"`
	FiscalYear  int    `json:"fiscalYear"`
	Para        string `json:"para"`
	Notes       string `json:"notes"`
}

// AddExpense POST /api/transactions/expense
func (h *Handler) AddExpense(c *gin.Context) {
	var req AddExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	entry, err := h.ledger.AddExpense(c.Request.Context(), service.AddExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		PaymentMode: req.PaymentMode,
		FiscalYear:  req.FiscalYear,
		Para:        req.Para,
		Notes:       req.Notes,
		CreatedBy:   currentPrincipal(c).IdentityID,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Created(c, newTransactionView(entry))
}

type UpdateExpenseRequest struct {
	Amount      *int64  `json:"amount"`
	Category    *string `json:"category"`
	PaymentMode *string `json:"paymentMode"`
	FiscalYear  *int    `json:"fiscalYear"`
	Para        *string `json:"para"`
	Notes       *string `json:"notes"`
}

// UpdateExpense PATCH /api/transactions/expense/:id
func (h *Handler) UpdateExpense(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	var req UpdateExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, bindError(err))
		return
	}
	entry, err := h.ledger.UpdateExpense(c.Request.Context(), id, service.UpdateExpenseInput{
		Amount:      req.Amount,
		Category:    req.Category,
		PaymentMode: req.PaymentMode,
		FiscalYear:  req.FiscalYear,
		Para:        req.Para,
		Notes:       req.Notes,
	})
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, newTransactionView(entry))
}

// DeleteExpense DELETE /api/transactions/expense/:id
func (h *Handler) DeleteExpense(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	if err := h.ledger.DeleteExpense(c.Request.Context(), id); err != nil {
		response.Fail(c, err)
		return
	}
	response.Message(c, "expense deleted")
}

// ListExpenses GET /api/transactions/expense?fiscalYear=
func (h *Handler) ListExpenses(c *gin.Context) {
	year, err := fiscalYearQuery(c)
	if err != nil {
		response.Fail(c, err)
		return
	}
	list, err := h.ledger.ListExpenses(c.Request.Context(), year)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.Success(c, newTransactionViews(list))
}
