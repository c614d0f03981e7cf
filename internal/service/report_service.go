package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pujaledger/internal/infrastructure/cache"
	"pujaledger/internal/logging"
	"pujaledger/internal/model"
	"pujaledger/internal/repository"
	"pujaledger/pkg/apperr"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	dayLayout       = "2006-01-02"
	unspecifiedPara = "Unspecified"
	defaultTopN     = 5
)

type Summary struct {
	TotalCollection         int64 `json:"totalCollection"`
	TotalMemberContribution int64 `json:"totalMemberContribution"`
	DueAmount               int64 `json:"dueAmount"`
	ExpectedCollection      int64 `json:"expectedCollection"`
	TotalExpense            int64 `json:"totalExpense"`
	CollectionExceptMembers int64 `json:"collectionExceptMembers"`
}

type ParaCollection struct {
	Para  string `json:"para"`
	Total int64  `json:"total"`
}

type DayTotal struct {
	Date  string `json:"date"`
	Total int64  `json:"total"`
}

type IncomeExpensePoint struct {
	Date    string `json:"date"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

type DonorTotal struct {
	DonorID int64  `json:"donorId"`
	Name    string `json:"name"`
	Total   int64  `json:"total"`
}

type DonorDayTotal struct {
	DonorID int64  `json:"donorId"`
	Name    string `json:"name"`
	Date    string `json:"date"`
	Total   int64  `json:"total"`
}

type CollectionBreakdown struct {
	MemberContribution int64 `json:"memberContribution"`
	Donation           int64 `json:"donation"`
	Chanda             int64 `json:"chanda"`
}

type ExpenseItem struct {
	Category string     `json:"category"`
	Amount   int64      `json:"amount"`
	PaidDate *time.Time `json:"paidDate"`
}

// ReportService 报表查询，全部基于重新扫描，结果按版本号缓存
type ReportService struct {
	reports *repository.ReportRepository
	cache   *cache.ReportCache
	group   singleflight.Group
	loc     *time.Location
	logger  *logging.Logger
}

func NewReportService(db *gorm.DB, reportCache *cache.ReportCache, loc *time.Location, logger *logging.Logger) *ReportService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{
		reports: repository.NewReportRepository(db),
		cache:   reportCache,
		loc:     loc,
		logger:  logger.WithComponent(logging.ComponentReport),
	}
}

func yearKey(fiscalYear *int) string {
	if fiscalYear == nil {
		return "all"
	}
	return fmt.Sprintf("%d", *fiscalYear)
}

// cached 先读缓存，未命中时同一 key 的并发请求只查一次库
func cached[T any](ctx context.Context, s *ReportService, name string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	key, err := s.cache.Key(ctx, name)
	if err != nil {
		s.logger.Warn("report cache unavailable", "report", name, logging.FieldError, err)
		key = ""
	}
	if key != "" {
		var hit T
		ok, err := s.cache.Get(ctx, key, &hit)
		if err != nil {
			s.logger.Warn("report cache read failed", "report", name, logging.FieldError, err)
		} else if ok {
			return hit, nil
		}
	}

	flightKey := name
	if key != "" {
		flightKey = key
	}
	v, err, _ := s.group.Do(flightKey, func() (interface{}, error) {
		return load(ctx)
	})
	if err != nil {
		return zero, apperr.Internal("load report "+name, err)
	}
	result := v.(T)

	if key != "" {
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.Warn("report cache write failed", "report", name, logging.FieldError, err)
		}
	}
	return result, nil
}

func (s *ReportService) day(t time.Time) string {
	return t.In(s.loc).Format(dayLayout)
}

// GetSummary 会员的钱通过在册会员 contribution 计入，公开收入通过流水计入
func (s *ReportService) GetSummary(ctx context.Context, fiscalYear *int) (*Summary, error) {
	return cached(ctx, s, "summary:"+yearKey(fiscalYear), func(ctx context.Context) (*Summary, error) {
		var (
			income       repository.IncomeTotals
			memberDue    int64
			expense      int64
			contribution int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			income, err = s.reports.PublicIncomeTotals(gctx, fiscalYear)
			return err
		})
		g.Go(func() (err error) {
			memberDue, err = s.reports.MemberDue(gctx, fiscalYear)
			return err
		})
		g.Go(func() (err error) {
			expense, err = s.reports.ExpenseTotal(gctx, fiscalYear)
			return err
		})
		g.Go(func() (err error) {
			contribution, err = s.reports.ActiveMemberContribution(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}

		total := income.Collected + contribution
		expected := income.Budget + contribution + memberDue
		return &Summary{
			TotalCollection:         total,
			TotalMemberContribution: contribution,
			DueAmount:               expected - total,
			ExpectedCollection:      expected,
			TotalExpense:            expense,
			CollectionExceptMembers: total - contribution,
		}, nil
	})
}

func (s *ReportService) ParaWiseCollection(ctx context.Context, fiscalYear *int) ([]ParaCollection, error) {
	return cached(ctx, s, "para:"+yearKey(fiscalYear), func(ctx context.Context) ([]ParaCollection, error) {
		rows, err := s.reports.ParaTotals(ctx, fiscalYear)
		if err != nil {
			return nil, err
		}
		// 空 para 与 "Unspecified" 合并后重新排序
		merged := map[string]int64{}
		for _, row := range rows {
			para := row.Para
			if para == "" {
				para = unspecifiedPara
			}
			merged[para] += row.Total
		}
		out := make([]ParaCollection, 0, len(merged))
		for para, total := range merged {
			out = append(out, ParaCollection{Para: para, Total: total})
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Total != out[j].Total {
				return out[i].Total > out[j].Total
			}
			return out[i].Para < out[j].Para
		})
		return out, nil
	})
}

// dailyIncome 已付公开收入按付款日 + 在册会员 contribution 按入会日
func (s *ReportService) dailyIncome(ctx context.Context, fiscalYear *int) (map[string]int64, error) {
	var paid, joined []repository.DatedAmount
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		paid, err = s.reports.PaidIncomeRows(gctx, fiscalYear)
		return err
	})
	g.Go(func() (err error) {
		joined, err = s.reports.MemberJoinRows(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	days := map[string]int64{}
	for _, row := range paid {
		days[s.day(row.Date)] += row.Amount
	}
	for _, row := range joined {
		days[s.day(row.Date)] += row.Amount
	}
	return days, nil
}

func sortedDays(days map[string]int64) []string {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *ReportService) DayWiseCollection(ctx context.Context, fiscalYear *int) ([]DayTotal, error) {
	return cached(ctx, s, "day:"+yearKey(fiscalYear), func(ctx context.Context) ([]DayTotal, error) {
		days, err := s.dailyIncome(ctx, fiscalYear)
		if err != nil {
			return nil, err
		}
		out := make([]DayTotal, 0, len(days))
		for _, d := range sortedDays(days) {
			out = append(out, DayTotal{Date: d, Total: days[d]})
		}
		return out, nil
	})
}

func (s *ReportService) IncomeVsExpense(ctx context.Context, fiscalYear *int) ([]IncomeExpensePoint, error) {
	return cached(ctx, s, "income-expense:"+yearKey(fiscalYear), func(ctx context.Context) ([]IncomeExpensePoint, error) {
		income, err := s.dailyIncome(ctx, fiscalYear)
		if err != nil {
			return nil, err
		}
		expenses, err := s.reports.ExpenseRows(ctx, fiscalYear)
		if err != nil {
			return nil, err
		}

		spent := map[string]int64{}
		union := map[string]int64{}
		for d := range income {
			union[d] = 0
		}
		for _, row := range expenses {
			if row.PaidDate == nil {
				continue
			}
			d := s.day(*row.PaidDate)
			spent[d] += row.Amount
			union[d] = 0
		}

		out := make([]IncomeExpensePoint, 0, len(union))
		for _, d := range sortedDays(union) {
			out = append(out, IncomeExpensePoint{Date: d, Income: income[d], Expense: spent[d]})
		}
		return out, nil
	})
}

func (s *ReportService) TopDonors(ctx context.Context, fiscalYear *int, limit int) ([]DonorTotal, error) {
	if limit <= 0 {
		limit = defaultTopN
	}
	name := fmt.Sprintf("top-donors:%s:%d", yearKey(fiscalYear), limit)
	return cached(ctx, s, name, func(ctx context.Context) ([]DonorTotal, error) {
		rows, err := s.reports.TopDonors(ctx, fiscalYear, limit)
		if err != nil {
			return nil, err
		}
		out := make([]DonorTotal, 0, len(rows))
		for _, row := range rows {
			out = append(out, DonorTotal{DonorID: row.DonorID, Name: model.NameOrAnonymous(row.Name), Total: row.Total})
		}
		return out, nil
	})
}

func (s *ReportService) DonorByDate(ctx context.Context, fiscalYear *int) ([]DonorDayTotal, error) {
	return cached(ctx, s, "donor-by-date:"+yearKey(fiscalYear), func(ctx context.Context) ([]DonorDayTotal, error) {
		rows, err := s.reports.DonorPayments(ctx, fiscalYear)
		if err != nil {
			return nil, err
		}

		type bucket struct {
			donorID int64
			day     string
		}
		index := map[bucket]int{}
		out := make([]DonorDayTotal, 0, len(rows))
		for _, row := range rows {
			b := bucket{donorID: row.DonorID, day: s.day(row.PaidDate)}
			if i, ok := index[b]; ok {
				out[i].Total += row.Amount
				continue
			}
			index[b] = len(out)
			out = append(out, DonorDayTotal{
				DonorID: row.DonorID,
				Name:    model.NameOrAnonymous(row.Name),
				Date:    b.day,
				Total:   row.Amount,
			})
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Date != out[j].Date {
				return out[i].Date < out[j].Date
			}
			return out[i].DonorID < out[j].DonorID
		})
		return out, nil
	})
}

func (s *ReportService) CollectionBreakdown(ctx context.Context, fiscalYear *int) (*CollectionBreakdown, error) {
	return cached(ctx, s, "breakdown:"+yearKey(fiscalYear), func(ctx context.Context) (*CollectionBreakdown, error) {
		var (
			byKind       map[string]int64
			contribution int64
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			byKind, err = s.reports.PaidIncomeByKind(gctx, fiscalYear)
			return err
		})
		g.Go(func() (err error) {
			contribution, err = s.reports.ActiveMemberContribution(gctx)
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &CollectionBreakdown{
			MemberContribution: contribution,
			Donation:           byKind[model.KindDonation],
			Chanda:             byKind[model.KindChanda],
		}, nil
	})
}

// ExpenseByCategory 逐条列出支出，不做分组
func (s *ReportService) ExpenseByCategory(ctx context.Context, fiscalYear *int) ([]ExpenseItem, error) {
	return cached(ctx, s, "expense-category:"+yearKey(fiscalYear), func(ctx context.Context) ([]ExpenseItem, error) {
		rows, err := s.reports.ExpenseRows(ctx, fiscalYear)
		if err != nil {
			return nil, err
		}
		out := make([]ExpenseItem, 0, len(rows))
		for _, row := range rows {
			out = append(out, ExpenseItem{Category: row.Category, Amount: row.Amount, PaidDate: row.PaidDate})
		}
		return out, nil
	})
}
