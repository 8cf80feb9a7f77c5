package registry

// Capture fragments shared by the built-in rules.
const (
	money   = `[\$£€]?[ \t]*(\d[\d,]*(?:\.\d+)?(?:[ \t]*%)?)` // a trailing % is captured so Currency can reject it
	pct     = `(\d+(?:\.\d+)?)[ \t]*%`
	whole   = `(\d[\d,]*(?:\.\d+)?)`
	textCap = `(\w[\w'/&().\-]*(?:(?:, ?| | - )[\w(][\w'/&().\-]*)*)`
	sep     = `:[ \t]*`
)

// builtinRules is the maintained pattern table. Rules of one field are listed
// from most to least specific; each rule carries a single label so that
// vendor synonyms are tried in a fixed order.
var builtinRules = []RuleSpec{
	// Listing identification
	{Field: MLSNumber, Label: "MLS#", Pattern: `(?i)MLS ?#` + sep + `(\d+)`},
	{Field: MLSNumber, Label: "MLS Number", Pattern: `(?i)MLS Number` + sep + `(\d+)`},
	{Field: MLSNumber, Label: "MLS", Pattern: `(?i)\bMLS` + sep + `(\d+)`},
	{Field: MLSNumber, Label: "number above MLS#", Pattern: `(?i)(\d+)[ \t]*\n[ \t]*MLS ?#:`},

	{Field: PropertyAddress, Label: "Property Address", Pattern: `(?i)Property Address` + sep + textCap},
	{Field: PropertyAddress, Label: "Address", Pattern: `(?i)\bAddress` + sep + textCap},

	{Field: PropertyType, Label: "Property Type", Pattern: `(?i)Property Type` + sep + textCap},
	{Field: PropertyType, Label: "Prop Type", Pattern: `(?i)Prop Type` + sep + textCap},
	{Field: PropertyType, Label: "Sub Type", Pattern: `(?i)Sub Type` + sep + textCap},

	// Price
	{Field: PurchasePrice, Label: "Purchase Price", Pattern: `(?i)Purchase Price` + sep + money},
	{Field: PurchasePrice, Label: "Sale Price", Pattern: `(?i)Sale Price` + sep + money},
	{Field: PurchasePrice, Label: "Sold Price", Pattern: `(?i)Sold Price` + sep + money},

	{Field: ListPrice, Label: "List Price", Pattern: `(?i)List Price` + sep + money},
	{Field: ListPrice, Label: "LP", Pattern: `(?i)\bLP` + sep + money},
	{Field: ListPrice, Label: "Asking Price", Pattern: `(?i)Asking Price` + sep + money},
	{Field: ListPrice, Label: "Price", Pattern: `(?im)^[ \t]*Price` + sep + money},

	{Field: YearBuilt, Label: "Year Built", Pattern: `(?i)Year Built` + sep + `(\d{4})\b`},
	{Field: YearBuilt, Label: "Yr Built", Pattern: `(?i)Yr Built` + sep + `(\d{4})\b`},

	// Income
	{Field: NumberOfUnits, Label: "Number of Units", Pattern: `(?i)Number of Units` + sep + whole},
	{Field: NumberOfUnits, Label: "# of Units", Pattern: `(?i)# of Units` + sep + whole},
	{Field: NumberOfUnits, Label: "Unit Count", Pattern: `(?i)Unit Count` + sep + whole},
	{Field: NumberOfUnits, Label: "Units", Pattern: `(?i)\bUnits` + sep + whole},
	{Field: NumberOfUnits, Label: "N units", Pattern: `(?i)\b(\d+)[ \t]+units\b`},
	{Field: NumberOfUnits, Label: "N-plex", Pattern: `(?i)\b(\d+)-plex\b`},
	{Field: NumberOfUnits, Label: "plex word", Pattern: `(?i)\b(duplex|triplex|fourplex|quadplex|fiveplex|sixplex|eightplex)\b`, Normalize: PlexCount},

	{Field: MonthlyRentPerUnit, Label: "Monthly Rent Per Unit", Pattern: `(?i)Monthly Rent Per Unit` + sep + money},
	{Field: MonthlyRentPerUnit, Label: "Rent Per Unit", Pattern: `(?i)Rent Per Unit` + sep + money},
	{Field: MonthlyRentPerUnit, Label: "Monthly Rent", Pattern: `(?i)Monthly Rent` + sep + money},

	{Field: GrossScheduledIncome, Label: "Gross Scheduled Income", Pattern: `(?i)Gross Scheduled Income` + sep + money},
	{Field: GrossScheduledIncome, Label: "Gross Income", Pattern: `(?i)Gross Income` + sep + money},
	{Field: GrossScheduledIncome, Label: "GSI", Pattern: `(?i)\bGSI` + sep + money},

	{Field: OtherIncome, Label: "Other Income", Pattern: `(?i)Other Income` + sep + money},
	{Field: OtherIncome, Label: "Misc Income", Pattern: `(?i)Misc(?:\.|ellaneous)? Income` + sep + money},

	{Field: VacancyRate, Label: "Vacancy Rate", Pattern: `(?i)Vacancy Rate` + sep + pct},
	{Field: VacancyRate, Label: "Vacancy", Pattern: `(?i)\bVacancy` + sep + pct},

	// Expenses
	{Field: PropertyTaxes, Label: "Property Taxes", Pattern: `(?i)Property Taxes` + sep + money},
	{Field: PropertyTaxes, Label: "Tax Expense", Pattern: `(?i)Tax Expense` + sep + money},
	{Field: PropertyTaxes, Label: "Ann Taxes", Pattern: `(?i)Ann Taxes` + sep + money},
	{Field: PropertyTaxes, Label: "Annual Taxes", Pattern: `(?i)Annual Taxes` + sep + money},
	{Field: PropertyTaxes, Label: "Taxes", Pattern: `(?i)\bTaxes` + sep + money},

	{Field: Insurance, Label: "Annual Insurance", Pattern: `(?i)Annual Insurance` + sep + money},
	{Field: Insurance, Label: "Insurance", Pattern: `(?i)\bInsurance` + sep + money},

	{Field: ManagementFees, Label: "Property Management Fees", Pattern: `(?i)Property Management Fees` + sep + money},
	{Field: ManagementFees, Label: "Management Fees", Pattern: `(?i)Management Fees` + sep + money},
	{Field: ManagementFees, Label: "Mgmt Fees", Pattern: `(?i)Mgmt Fees` + sep + money},

	{Field: ManagementFeeRate, Label: "Management Fee Rate", Pattern: `(?i)Management Fee Rate` + sep + pct},
	{Field: ManagementFeeRate, Label: "Management Fee", Pattern: `(?i)Management Fee` + sep + pct},
	{Field: ManagementFeeRate, Label: "Mgmt Fee", Pattern: `(?i)Mgmt Fee` + sep + pct},

	{Field: MaintenanceRepairs, Label: "Maintenance and Repairs", Pattern: `(?i)Maintenance and Repairs` + sep + money},
	{Field: MaintenanceRepairs, Label: "Maintenance & Repairs", Pattern: `(?i)Maintenance & Repairs` + sep + money},
	{Field: MaintenanceRepairs, Label: "Maintenance", Pattern: `(?i)\bMaintenance` + sep + money},
	{Field: MaintenanceRepairs, Label: "Repairs", Pattern: `(?i)\bRepairs` + sep + money},

	{Field: Utilities, Label: "Annual Utilities", Pattern: `(?i)Annual Utilities` + sep + money},
	{Field: Utilities, Label: "Utilities", Pattern: `(?i)\bUtilities` + sep + money},

	// Financing
	{Field: DownPayment, Label: "Down Payment Percentage", Pattern: `(?i)Down Payment Percentage` + sep + pct},
	{Field: DownPayment, Label: "Down Payment", Pattern: `(?i)Down Payment` + sep + pct},
	{Field: DownPayment, Label: "DP", Pattern: `(?i)\bDP` + sep + pct},

	{Field: LoanAmount, Label: "Loan Amount", Pattern: `(?i)Loan Amount` + sep + money},
	{Field: LoanAmount, Label: "Mortgage Amount", Pattern: `(?i)Mortgage Amount` + sep + money},

	{Field: InterestRate, Label: "Interest Rate", Pattern: `(?i)Interest Rate` + sep + pct},
	{Field: InterestRate, Label: "Rate", Pattern: `(?im)^[ \t]*Rate` + sep + pct},

	{Field: LoanTermsYears, Label: "Loan Term (Years)", Pattern: `(?i)Loan Term \(Years\)` + sep + `(\d+)`},
	{Field: LoanTermsYears, Label: "Loan Term", Pattern: `(?i)Loan Terms?` + sep + `(\d+)[ \t]*(?:years|yrs)\b`},
	{Field: LoanTermsYears, Label: "Term", Pattern: `(?i)\bTerm` + sep + `(\d+)[ \t]*(?:years|yrs)\b`},

	{Field: ClosingCosts, Label: "Closing Costs", Pattern: `(?i)Closing Costs?` + sep + money},
	{Field: ClosingCosts, Label: "Initial Costs", Pattern: `(?i)Initial Costs?` + sep + money},

	// Details
	{Field: TotalBeds, Label: "Total Beds", Pattern: `(?i)Total Beds` + sep + whole},
	{Field: TotalBeds, Label: "Ttl Beds", Pattern: `(?i)Ttl Beds` + sep + whole},
	{Field: TotalBeds, Label: "Bedrooms", Pattern: `(?i)\bBedrooms` + sep + whole},
	{Field: TotalBeds, Label: "Beds", Pattern: `(?i)\bBeds` + sep + whole},

	{Field: TotalBaths, Label: "Total Baths", Pattern: `(?i)Total Baths` + sep + `(\d+(?:\.\d+)?)`},
	{Field: TotalBaths, Label: "Ttl Baths", Pattern: `(?i)Ttl Baths` + sep + `(\d+(?:\.\d+)?)`},
	{Field: TotalBaths, Label: "Bathrooms", Pattern: `(?i)\bBathrooms` + sep + `(\d+(?:\.\d+)?)`},
	{Field: TotalBaths, Label: "Baths", Pattern: `(?i)\bBaths` + sep + `(\d+(?:\.\d+)?)`},

	{Field: TotalSqft, Label: "Ttl Dwl SqFt", Pattern: `(?i)Ttl Dwl SqFt` + sep + whole},
	{Field: TotalSqft, Label: "Approx Square Feet", Pattern: `(?i)Approx Square Feet` + sep + whole},
	{Field: TotalSqft, Label: "Total SqFt", Pattern: `(?i)Total SqFt` + sep + whole},
	{Field: TotalSqft, Label: "SqFt", Pattern: `(?i)\bSqFt` + sep + whole},

	{Field: LotSF, Label: "Lot SF (approx)", Pattern: `(?i)Lot SF \(approx\)` + sep + whole},
	{Field: LotSF, Label: "Lot SF", Pattern: `(?i)Lot SF` + sep + whole},
	{Field: LotSF, Label: "Lot Size", Pattern: `(?i)Lot Size` + sep + whole + `[ \t]*sf\b`},

	{Field: County, Label: "County", Pattern: `(?i)\bCounty` + sep + textCap},
	{Field: Community, Label: "Community", Pattern: `(?i)\bCommunity` + sep + textCap},
	{Field: Community, Label: "Commty", Pattern: `(?i)\bCommty` + sep + textCap},
	{Field: StyleCode, Label: "Style Code", Pattern: `(?i)Style Code` + sep + textCap},
	{Field: Exterior, Label: "Exterior", Pattern: `(?i)\bExterior` + sep + textCap},
	{Field: Roof, Label: "Roof", Pattern: `(?i)\bRoof` + sep + textCap},
	{Field: Heating, Label: "Heating", Pattern: `(?i)\bHeating` + sep + textCap},
	{Field: Heating, Label: "Energy Source (heat)", Pattern: `(?i)Energy Source ?\(heat\)` + sep + textCap},
	{Field: Cooling, Label: "Cooling", Pattern: `(?i)\bCooling` + sep + textCap},
	{Field: FloorCovering, Label: "Floor Covering", Pattern: `(?i)Floor Covering` + sep + textCap},
	{Field: FloorCovering, Label: "Floor Cvr", Pattern: `(?i)Floor Cvr` + sep + textCap},
	{Field: Appliances, Label: "Appliances", Pattern: `(?i)\bAppliances` + sep + textCap},
	{Field: InteriorFeature, Label: "Interior Features", Pattern: `(?i)Interior Features` + sep + textCap},
	{Field: InteriorFeature, Label: "Interior Ft", Pattern: `(?i)Interior Ft` + sep + textCap},
	{Field: InteriorFeature, Label: "Interior Features heading", Pattern: `(?i)Interior Features[ \t]*\n[ \t]*` + textCap},
}

// BuiltinRules returns a copy of the maintained pattern table.
func BuiltinRules() []RuleSpec {
	out := make([]RuleSpec, len(builtinRules))
	copy(out, builtinRules)
	return out
}
