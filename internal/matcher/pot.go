package matcher

import (
	"fmt"
	"sort"

	"lending-recon/internal/domain"
	"lending-recon/internal/similarity"
)

// Pot is the coarse first-pass bucket of the two-phase pipeline.
type Pot string

const (
	PotLoans        Pot = "loans"
	PotInvestors    Pot = "investors"
	PotExpenses     Pot = "expenses"
	PotUnclassified Pot = "unclassified"
)

// PotSuggestion pairs a pot assignment with the pot matcher's outcome
// for one entry. NeedsExpenseType marks expense entries for which
// neither an existing expense nor a pattern produced a type, so the
// operator must pick one.
type PotSuggestion struct {
	Pot              Pot               `json:"pot"`
	Suggestion       domain.Suggestion `json:"suggestion"`
	NeedsExpenseType bool              `json:"needs_expense_type,omitempty"`
}

// PotClassifier is the alternate two-phase pipeline: bucket every entry
// into exactly one pot with lightweight signals, then run the
// pot-specific matcher. Caller-supplied overrides always win over the
// computed pot.
type PotClassifier struct {
	grouper *Grouper
}

func NewPotClassifier(windowDays int) *PotClassifier {
	if windowDays <= 0 {
		windowDays = DefaultGroupWindowDays
	}
	return &PotClassifier{grouper: NewGrouper(windowDays)}
}

// Run buckets and matches a batch. The claim set is threaded through
// entries in batch order so two entries cannot resolve to the same
// obligation.
func (p *PotClassifier) Run(entries []domain.BankEntry, snap *domain.Snapshot, overrides map[string]Pot) map[Pot][]PotSuggestion {
	claims := NewClaimSet()
	out := map[Pot][]PotSuggestion{
		PotLoans:        {},
		PotInvestors:    {},
		PotExpenses:     {},
		PotUnclassified: {},
	}
	// Original batch position, for stable tie-breaking in the sort.
	position := make(map[string]int, len(entries))

	for i, e := range entries {
		position[e.ID] = i

		pot := p.AssignPot(e, snap)
		if override, ok := overrides[e.ID]; ok {
			pot = override
		}

		var ps PotSuggestion
		switch pot {
		case PotLoans:
			ps = p.matchLoanPot(e, snap, claims)
		case PotInvestors:
			ps = p.matchInvestorPot(e, snap, claims)
		case PotExpenses:
			ps = p.matchExpensePot(e, snap, claims)
		default:
			ps = PotSuggestion{Pot: PotUnclassified, Suggestion: domain.NewUnknown(e.ID)}
		}
		claims.ClaimSuggestion(ps.Suggestion)
		out[ps.Pot] = append(out[ps.Pot], ps)
	}

	for pot := range out {
		sortPot(out[pot], position)
	}
	return out
}

// AssignPot buckets one entry using lightweight signals only: amount
// direction, the existence of an unreconciled obligation of the right
// kind at a close amount, and fuzzy name hints. It never resolves the
// specific obligation.
func (p *PotClassifier) AssignPot(e domain.BankEntry, snap *domain.Snapshot) Pot {
	for _, lt := range snap.LoanTransactions {
		if snap.IsReconciled(domain.LoanTxRef(lt.ID)) {
			continue
		}
		if e.IsCredit() != (lt.Type == domain.Repayment) {
			continue
		}
		if similarity.AmountsMatch(e.Amount, lt.Amount, CloseAmountTolerance) {
			return PotLoans
		}
	}
	for _, it := range snap.InvestorTransactions {
		if snap.IsReconciled(domain.InvestorTxRef(it.ID)) {
			continue
		}
		if e.IsCredit() != (it.Type == domain.Deposit) {
			continue
		}
		if similarity.AmountsMatch(e.Amount, it.Amount, CloseAmountTolerance) {
			return PotInvestors
		}
	}
	if e.IsDebit() {
		for _, ex := range snap.Expenses {
			if snap.IsReconciled(domain.ExpenseRef(ex.ID)) {
				continue
			}
			if similarity.AmountsMatch(e.AbsAmount(), ex.Amount, CloseAmountTolerance) {
				return PotExpenses
			}
		}
	}

	for _, id := range sortedKeys(snap.Loans) {
		if b, ok := snap.Borrowers[snap.Loans[id].BorrowerID]; ok {
			if similarity.StringSimilarity(e.Description, b.Name) > 0.4 {
				return PotLoans
			}
		}
	}
	for _, id := range sortedKeys(snap.Investors) {
		inv := snap.Investors[id]
		if similarity.StringSimilarity(e.Description, inv.Name) > 0.4 ||
			similarity.StringSimilarity(e.Description, inv.BusinessName) > 0.4 {
			return PotInvestors
		}
	}
	return PotUnclassified
}

func (p *PotClassifier) matchLoanPot(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) PotSuggestion {
	var best *domain.Suggestion
	for _, lt := range snap.LoanTransactions {
		ref := domain.LoanTxRef(lt.ID)
		if snap.IsReconciled(ref) || claims.Claimed(ref) {
			continue
		}
		if e.IsCredit() != (lt.Type == domain.Repayment) {
			continue
		}
		score := CalculateMatchScore(e.Amount, e.Date, lt.Amount, lt.Date)
		if score == 0 {
			continue
		}
		cat := domain.LoanRepayment
		if lt.Type == domain.Disbursement {
			cat = domain.LoanDisbursement
		}
		s := domain.NewSingleMatch(e.ID, cat, score, fmt.Sprintf("loan transaction %d at %s", lt.ID, lt.Amount.StringFixed(2)))
		s.LoanTransactionIDs = []int64{lt.ID}
		s.LoanID = lt.LoanID
		if best == nil || s.Confidence > best.Confidence {
			best = &s
		}
	}

	if group := p.grouper.FindObligationGroup(e, snap, claims); group != nil {
		if best == nil || group.Confidence > best.Confidence {
			best = group
		}
	}

	if best != nil {
		return PotSuggestion{Pot: PotLoans, Suggestion: *best}
	}

	cat := domain.LoanRepayment
	if e.IsDebit() {
		cat = domain.LoanDisbursement
	}
	create := domain.NewCreate(e.ID, cat, 0.5, "no scheduled loan transaction fits; propose creating one")
	if loanID := p.bestLoanByName(e, snap); loanID != 0 {
		create.LoanID = loanID
	}
	return PotSuggestion{Pot: PotLoans, Suggestion: create}
}

func (p *PotClassifier) matchInvestorPot(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) PotSuggestion {
	var best *domain.Suggestion
	for _, it := range snap.InvestorTransactions {
		ref := domain.InvestorTxRef(it.ID)
		if snap.IsReconciled(ref) || claims.Claimed(ref) {
			continue
		}
		if e.IsCredit() != (it.Type == domain.Deposit) {
			continue
		}
		score := CalculateMatchScore(e.Amount, e.Date, it.Amount, it.Date)
		if score == 0 {
			continue
		}
		cat := domain.InvestorCredit
		if it.Type == domain.Withdrawal {
			cat = domain.InvestorWithdrawal
		}
		s := domain.NewSingleMatch(e.ID, cat, score, fmt.Sprintf("investor transaction %d at %s", it.ID, it.Amount.StringFixed(2)))
		s.InvestorTransactionID = it.ID
		s.InvestorID = it.InvestorID
		if best == nil || s.Confidence > best.Confidence {
			best = &s
		}
	}

	if best != nil {
		return PotSuggestion{Pot: PotInvestors, Suggestion: *best}
	}

	cat := domain.InvestorCredit
	if e.IsDebit() {
		cat = domain.InvestorWithdrawal
	}
	create := domain.NewCreate(e.ID, cat, 0.5, "no capital transaction fits; propose creating one")
	if invID := p.bestInvestorByName(e, snap); invID != 0 {
		create.InvestorID = invID
	}
	return PotSuggestion{Pot: PotInvestors, Suggestion: create}
}

func (p *PotClassifier) matchExpensePot(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) PotSuggestion {
	var best *domain.Suggestion
	for _, ex := range snap.Expenses {
		ref := domain.ExpenseRef(ex.ID)
		if snap.IsReconciled(ref) || claims.Claimed(ref) {
			continue
		}
		score := CalculateMatchScore(e.AbsAmount(), e.Date, ex.Amount, ex.Date)
		if score == 0 {
			continue
		}
		s := domain.NewSingleMatch(e.ID, domain.OperatingExpense, score, fmt.Sprintf("recorded expense %d at %s", ex.ID, ex.Amount.StringFixed(2)))
		s.ExpenseID = ex.ID
		s.ExpenseTypeID = ex.ExpenseTypeID
		if best == nil || s.Confidence > best.Confidence {
			best = &s
		}
	}
	if best != nil {
		return PotSuggestion{Pot: PotExpenses, Suggestion: *best}
	}

	// No recorded expense: try a pattern-suggested expense type before
	// falling back to manual selection.
	vendorKeywords := similarity.ExtractVendorKeywords(e.Description)
	for _, pat := range snap.Patterns {
		if pat.Category != domain.OperatingExpense || pat.ExpenseTypeID == 0 || !pat.Admits(e) {
			continue
		}
		if keywordOverlap(vendorKeywords, pat.Keywords) >= 0.5 {
			create := domain.NewCreate(e.ID, domain.OperatingExpense, 0.6, "expense type suggested from learned pattern")
			create.ExpenseTypeID = pat.ExpenseTypeID
			return PotSuggestion{Pot: PotExpenses, Suggestion: create}
		}
	}

	create := domain.NewCreate(e.ID, domain.OperatingExpense, 0.4, "new expense; expense type must be selected manually")
	return PotSuggestion{Pot: PotExpenses, Suggestion: create, NeedsExpenseType: true}
}

func (p *PotClassifier) bestLoanByName(e domain.BankEntry, snap *domain.Snapshot) int64 {
	bestSim := 0.4
	var bestID int64
	for _, id := range sortedKeys(snap.Loans) {
		if b, ok := snap.Borrowers[snap.Loans[id].BorrowerID]; ok {
			if sim := similarity.StringSimilarity(e.Description, b.Name); sim > bestSim {
				bestSim = sim
				bestID = id
			}
		}
	}
	return bestID
}

func (p *PotClassifier) bestInvestorByName(e domain.BankEntry, snap *domain.Snapshot) int64 {
	bestSim := 0.4
	var bestID int64
	for _, id := range sortedKeys(snap.Investors) {
		inv := snap.Investors[id]
		sim := similarity.StringSimilarity(e.Description, inv.Name)
		if bizSim := similarity.StringSimilarity(e.Description, inv.BusinessName); bizSim > sim {
			sim = bizSim
		}
		if sim > bestSim {
			bestSim = sim
			bestID = id
		}
	}
	return bestID
}

// sortPot orders a pot's results: matches against existing records (and
// grouped matches) before propose-create suggestions, then by
// descending confidence, ties broken by original batch position.
func sortPot(items []PotSuggestion, position map[string]int) {
	rank := func(s domain.Suggestion) int {
		if s.Mode == domain.ModeCreate || s.Mode == "" {
			return 1
		}
		return 0
	}
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := rank(items[i].Suggestion), rank(items[j].Suggestion)
		if ri != rj {
			return ri < rj
		}
		if items[i].Suggestion.Confidence != items[j].Suggestion.Confidence {
			return items[i].Suggestion.Confidence > items[j].Suggestion.Confidence
		}
		return position[items[i].Suggestion.BankEntryID] < position[items[j].Suggestion.BankEntryID]
	})
}
