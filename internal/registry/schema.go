package registry

import "github.com/sells-group/dealmachine/internal/model"

// Field ids known to the system.
const (
	MLSNumber       model.FieldID = "mls_number"
	PropertyAddress model.FieldID = "property_address"
	PropertyType    model.FieldID = "property_type"
	County          model.FieldID = "county"
	Community       model.FieldID = "community"
	StyleCode       model.FieldID = "style_code"
	Exterior        model.FieldID = "exterior"
	Roof            model.FieldID = "roof"
	Heating         model.FieldID = "heating"
	Cooling         model.FieldID = "cooling"
	FloorCovering   model.FieldID = "floor_covering"
	Appliances      model.FieldID = "appliances"
	InteriorFeature model.FieldID = "interior_features"

	ListPrice            model.FieldID = "list_price"
	PurchasePrice        model.FieldID = "purchase_price"
	MonthlyRentPerUnit   model.FieldID = "monthly_rent_per_unit"
	GrossScheduledIncome model.FieldID = "gross_scheduled_income"
	OtherIncome          model.FieldID = "other_income"
	PropertyTaxes        model.FieldID = "property_taxes"
	Insurance            model.FieldID = "insurance"
	ManagementFees       model.FieldID = "property_management_fees"
	MaintenanceRepairs   model.FieldID = "maintenance_repairs"
	Utilities            model.FieldID = "utilities"
	LoanAmount           model.FieldID = "loan_amount"
	ClosingCosts         model.FieldID = "closing_costs"

	VacancyRate       model.FieldID = "vacancy_rate"
	ManagementFeeRate model.FieldID = "management_fee_rate"
	DownPayment       model.FieldID = "down_payment"
	InterestRate      model.FieldID = "interest_rate"

	YearBuilt      model.FieldID = "year_built"
	LoanTermsYears model.FieldID = "loan_terms_years"

	NumberOfUnits model.FieldID = "number_of_units"
	TotalBeds     model.FieldID = "total_beds"
	TotalSqft     model.FieldID = "total_sqft"
	LotSF         model.FieldID = "lot_sf"
	TotalBaths    model.FieldID = "total_baths"
)

var fieldDefs = []model.FieldDef{
	{ID: MLSNumber, Label: "MLS Number", Type: model.TypeText, Group: model.GroupListing},
	{ID: PropertyAddress, Label: "Property Address", Type: model.TypeText, Group: model.GroupListing},
	{ID: PropertyType, Label: "Property Type", Type: model.TypeText, Group: model.GroupListing},
	{ID: ListPrice, Label: "List Price", Type: model.TypeCurrency, Group: model.GroupListing},
	{ID: PurchasePrice, Label: "Purchase Price", Type: model.TypeCurrency, Group: model.GroupListing},
	{ID: YearBuilt, Label: "Year Built", Type: model.TypeInteger, Group: model.GroupListing},

	{ID: NumberOfUnits, Label: "Number of Units", Type: model.TypeCount, Group: model.GroupIncome},
	{ID: MonthlyRentPerUnit, Label: "Monthly Rent per Unit", Type: model.TypeCurrency, Group: model.GroupIncome},
	{ID: GrossScheduledIncome, Label: "Gross Scheduled Income", Type: model.TypeCurrency, Group: model.GroupIncome},
	{ID: OtherIncome, Label: "Other Income", Type: model.TypeCurrency, Group: model.GroupIncome},
	{ID: VacancyRate, Label: "Vacancy Rate", Type: model.TypePercentage, Group: model.GroupIncome},

	{ID: PropertyTaxes, Label: "Property Taxes", Type: model.TypeCurrency, Group: model.GroupExpense},
	{ID: Insurance, Label: "Insurance", Type: model.TypeCurrency, Group: model.GroupExpense},
	{ID: ManagementFees, Label: "Property Management Fees", Type: model.TypeCurrency, Group: model.GroupExpense},
	{ID: ManagementFeeRate, Label: "Management Fee Rate", Type: model.TypePercentage, Group: model.GroupExpense},
	{ID: MaintenanceRepairs, Label: "Maintenance & Repairs", Type: model.TypeCurrency, Group: model.GroupExpense},
	{ID: Utilities, Label: "Utilities", Type: model.TypeCurrency, Group: model.GroupExpense},

	{ID: DownPayment, Label: "Down Payment", Type: model.TypePercentage, Group: model.GroupFinancing},
	{ID: LoanAmount, Label: "Loan Amount", Type: model.TypeCurrency, Group: model.GroupFinancing},
	{ID: InterestRate, Label: "Interest Rate", Type: model.TypePercentage, Group: model.GroupFinancing},
	{ID: LoanTermsYears, Label: "Loan Term (Years)", Type: model.TypeInteger, Group: model.GroupFinancing},
	{ID: ClosingCosts, Label: "Closing Costs", Type: model.TypeCurrency, Group: model.GroupFinancing},

	{ID: TotalBeds, Label: "Total Beds", Type: model.TypeCount, Group: model.GroupDetail},
	{ID: TotalBaths, Label: "Total Baths", Type: model.TypeDecimal, Group: model.GroupDetail},
	{ID: TotalSqft, Label: "Total SqFt", Type: model.TypeCount, Group: model.GroupDetail},
	{ID: LotSF, Label: "Lot SF", Type: model.TypeCount, Group: model.GroupDetail},
	{ID: County, Label: "County", Type: model.TypeText, Group: model.GroupDetail},
	{ID: Community, Label: "Community", Type: model.TypeText, Group: model.GroupDetail},
	{ID: StyleCode, Label: "Style Code", Type: model.TypeText, Group: model.GroupDetail},
	{ID: Exterior, Label: "Exterior", Type: model.TypeText, Group: model.GroupDetail},
	{ID: Roof, Label: "Roof", Type: model.TypeText, Group: model.GroupDetail},
	{ID: Heating, Label: "Heating", Type: model.TypeText, Group: model.GroupDetail},
	{ID: Cooling, Label: "Cooling", Type: model.TypeText, Group: model.GroupDetail},
	{ID: FloorCovering, Label: "Floor Covering", Type: model.TypeText, Group: model.GroupDetail},
	{ID: Appliances, Label: "Appliances", Type: model.TypeText, Group: model.GroupDetail},
	{ID: InteriorFeature, Label: "Interior Features", Type: model.TypeText, Group: model.GroupDetail},
}

// FieldDefs returns a copy of the built-in field schema definitions.
func FieldDefs() []model.FieldDef {
	out := make([]model.FieldDef, len(fieldDefs))
	copy(out, fieldDefs)
	return out
}
