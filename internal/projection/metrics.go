package projection

import (
	"math"

	"github.com/sells-group/dealmachine/internal/model"
	"github.com/sells-group/dealmachine/internal/registry"
)

// Metric ids.
const (
	GPI           MetricID = "gpi"
	VC            MetricID = "vc"
	EGI           MetricID = "egi"
	OpEx          MetricID = "opex"
	NOI           MetricID = "noi"
	CapRate       MetricID = "cap_rate"
	LoanPrincipal MetricID = "loan_principal"
	DebtService   MetricID = "debt_service"
	CFBT          MetricID = "cfbt"
	CashInvested  MetricID = "cash_invested"
	CoC           MetricID = "coc"
	GRM           MetricID = "grm"
	DSCR          MetricID = "dscr"
)

const monthsPerYear = 12

// expenseInputs are the fields read by operatingExpenses.
var expenseInputs = []model.FieldID{
	registry.PropertyTaxes, registry.Insurance, registry.ManagementFeeRate,
	registry.ManagementFees, registry.MaintenanceRepairs, registry.Utilities,
}

func standardMetrics() []Metric {
	return []Metric{
		{
			ID:      GPI,
			Name:    "Gross Potential Income",
			Unit:    UnitCurrency,
			Inputs:  []model.FieldID{registry.GrossScheduledIncome, registry.NumberOfUnits, registry.MonthlyRentPerUnit},
			compute: grossPotentialIncome,
		},
		{
			ID:      VC,
			Name:    "Vacancy & Credit Loss",
			Unit:    UnitCurrency,
			Deps:    []MetricID{GPI},
			Inputs:  []model.FieldID{registry.VacancyRate},
			compute: vacancyLoss,
		},
		{
			ID:      EGI,
			Name:    "Effective Gross Income",
			Unit:    UnitCurrency,
			Deps:    []MetricID{GPI, VC},
			Inputs:  []model.FieldID{registry.OtherIncome},
			compute: effectiveGrossIncome,
		},
		{
			ID:      OpEx,
			Name:    "Operating Expenses",
			Unit:    UnitCurrency,
			Deps:    []MetricID{EGI},
			Inputs:  expenseInputs,
			compute: operatingExpenses,
		},
		{
			ID:      NOI,
			Name:    "Net Operating Income",
			Unit:    UnitCurrency,
			Deps:    []MetricID{EGI, OpEx},
			compute: netOperatingIncome,
		},
		{
			ID:      CapRate,
			Name:    "Cap Rate",
			Unit:    UnitPercent,
			Deps:    []MetricID{NOI},
			Inputs:  []model.FieldID{registry.PurchasePrice, registry.ListPrice},
			compute: capRate,
		},
		{
			ID:      LoanPrincipal,
			Name:    "Loan Principal",
			Unit:    UnitCurrency,
			Inputs:  []model.FieldID{registry.LoanAmount, registry.PurchasePrice, registry.ListPrice, registry.DownPayment},
			compute: loanPrincipal,
		},
		{
			ID:      DebtService,
			Name:    "Annual Debt Service",
			Unit:    UnitCurrency,
			Deps:    []MetricID{LoanPrincipal},
			Inputs:  []model.FieldID{registry.InterestRate, registry.LoanTermsYears},
			compute: annualDebtService,
		},
		{
			ID:      CFBT,
			Name:    "Cash Flow Before Taxes",
			Unit:    UnitCurrency,
			Deps:    []MetricID{NOI, DebtService},
			compute: cashFlow,
		},
		{
			ID:      CashInvested,
			Name:    "Total Cash Invested",
			Unit:    UnitCurrency,
			Deps:    []MetricID{LoanPrincipal},
			Inputs:  []model.FieldID{registry.ClosingCosts},
			compute: cashInvested,
		},
		{
			ID:      CoC,
			Name:    "Cash-on-Cash Return",
			Unit:    UnitPercent,
			Deps:    []MetricID{CFBT, CashInvested},
			compute: cashOnCash,
		},
		{
			ID:      GRM,
			Name:    "Gross Rent Multiplier",
			Unit:    UnitRatio,
			Deps:    []MetricID{GPI},
			compute: grossRentMultiplier,
		},
		{
			ID:      DSCR,
			Name:    "Debt Service Coverage Ratio",
			Unit:    UnitRatio,
			Deps:    []MetricID{NOI, DebtService},
			compute: debtCoverage,
		},
	}
}

// grossPotentialIncome prefers a stated gross scheduled income over
// units x rent x 12. A zero stated income counts as not provided.
func grossPotentialIncome(e *env) Result {
	if gsi := e.field(registry.GrossScheduledIncome).Positive(); gsi.Valid() {
		return gsi
	}
	return e.field(registry.NumberOfUnits).
		Mul(e.field(registry.MonthlyRentPerUnit)).
		Mul(Val(monthsPerYear))
}

// operatingExpenses sums the expense lines. Management is a share of EGI when
// a rate is given, otherwise the flat annual fee.
func operatingExpenses(e *env) Result {
	mgmt := e.optional(registry.ManagementFees)
	if rate := e.field(registry.ManagementFeeRate); rate.Valid() {
		mgmt = rate.Mul(e.metric(EGI))
	}
	return Sum(
		e.optional(registry.PropertyTaxes),
		e.optional(registry.Insurance),
		mgmt,
		e.optional(registry.MaintenanceRepairs),
		e.optional(registry.Utilities),
	)
}

func vacancyLoss(e *env) Result {
	return e.metric(GPI).Mul(e.field(registry.VacancyRate))
}

// effectiveGrossIncome adds other income, which is optional.
func effectiveGrossIncome(e *env) Result {
	return e.metric(GPI).Sub(e.metric(VC)).Add(e.optional(registry.OtherIncome))
}

func netOperatingIncome(e *env) Result {
	return e.metric(EGI).Sub(e.metric(OpEx))
}

// capRate is N/A without a positive price.
func capRate(e *env) Result {
	return e.metric(NOI).Div(price(e).Positive())
}

func cashFlow(e *env) Result {
	return e.metric(NOI).Sub(e.metric(DebtService))
}

// cashInvested is the down payment plus closing costs.
func cashInvested(e *env) Result {
	return Sum(price(e).Sub(e.metric(LoanPrincipal)), e.optional(registry.ClosingCosts))
}

func cashOnCash(e *env) Result {
	return e.metric(CFBT).Div(e.metric(CashInvested).Positive())
}

func grossRentMultiplier(e *env) Result {
	return price(e).Positive().Div(e.metric(GPI).Positive())
}

func debtCoverage(e *env) Result {
	return e.metric(NOI).Div(e.metric(DebtService).Positive())
}

// price is the purchase price, falling back to the list price.
func price(e *env) Result {
	return e.field(registry.PurchasePrice).Or(e.field(registry.ListPrice))
}

func loanPrincipal(e *env) Result {
	if amt := e.field(registry.LoanAmount); amt.Valid() {
		return amt.Positive()
	}
	return price(e).Mul(Val(1).Sub(e.field(registry.DownPayment))).Positive()
}

// annualDebtService is twelve standard amortising payments. A zero rate
// repays principal evenly.
func annualDebtService(e *env) Result {
	principal, ok := e.metric(LoanPrincipal).Positive().Float()
	if !ok {
		return NA()
	}
	rate, ok := e.field(registry.InterestRate).Float()
	if !ok || rate < 0 {
		return NA()
	}
	years, ok := e.field(registry.LoanTermsYears).Float()
	if !ok || years <= 0 {
		return NA()
	}
	return Val(monthlyPayment(principal, rate/monthsPerYear, years*monthsPerYear) * monthsPerYear)
}

func monthlyPayment(principal, monthlyRate, n float64) float64 {
	if monthlyRate == 0 {
		return principal / n
	}
	return principal * monthlyRate / (1 - math.Pow(1+monthlyRate, -n))
}
