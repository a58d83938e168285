package matcher

import (
	"fmt"
	"sort"
	"strings"

	"lending-recon/internal/domain"
	"lending-recon/internal/similarity"
)

// sortedKeys keeps map scans deterministic so equal-confidence ties
// always resolve the same way.
func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// ConfidenceFloor is the minimum confidence the classifier will stand
// behind. Anything weaker comes back as Unknown: the engine never
// silently invents a match.
const ConfidenceFloor = 0.35

// ClaimSet accumulates the obligations already attributed to earlier
// entries in the current batch. It must be threaded through entry
// processing sequentially; two entries must never claim the same
// obligation within one pass.
type ClaimSet map[domain.ObligationRef]bool

func NewClaimSet() ClaimSet {
	return make(ClaimSet)
}

func (c ClaimSet) Claim(ref domain.ObligationRef) {
	c[ref] = true
}

func (c ClaimSet) Claimed(ref domain.ObligationRef) bool {
	return c[ref]
}

// ClaimSuggestion marks every obligation the suggestion references.
func (c ClaimSet) ClaimSuggestion(s domain.Suggestion) {
	for _, id := range s.LoanTransactionIDs {
		c.Claim(domain.LoanTxRef(id))
	}
	if s.InvestorTransactionID != 0 {
		c.Claim(domain.InvestorTxRef(s.InvestorTransactionID))
	}
	if s.ExpenseID != 0 {
		c.Claim(domain.ExpenseRef(s.ExpenseID))
	}
}

// strategy is one tier of the classification cascade. A tier only runs
// while the running best confidence is below its ceiling, and returns
// nil when it has no opinion. Ordering encodes authority: obligation
// evidence always beats name fuzziness.
type strategy struct {
	name    string
	ceiling float64
	match   func(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) *domain.Suggestion
}

// Classifier produces the single best-guess suggestion for one bank
// entry against a context snapshot.
type Classifier struct {
	grouper    *Grouper
	strategies []strategy
	// expenseVocabulary triggers the keyword expense tier and also
	// suppresses name-fuzzy tiers for entries that look like expenses.
	expenseVocabulary []string
}

// NewClassifier builds the cascade; windowDays bounds how far apart
// grouped entries may be, zero or negative selects the default.
func NewClassifier(windowDays int) *Classifier {
	if windowDays <= 0 {
		windowDays = DefaultGroupWindowDays
	}
	c := &Classifier{
		grouper: NewGrouper(windowDays),
		expenseVocabulary: []string{
			"rent", "salary", "salaries", "payroll", "insurance",
			"utilities", "electricity", "water", "internet", "telephone",
			"office", "supplies", "stationery", "fuel", "maintenance",
			"subscription", "software", "hosting", "audit", "legal",
			"accounting", "tax", "levy", "municipal",
		},
	}
	c.strategies = []strategy{
		{name: "direct obligation match", ceiling: 1.01, match: c.directMatch},
		{name: "grouped obligations", ceiling: 0.9, match: c.groupedMatch},
		{name: "learned pattern", ceiling: 0.7, match: c.patternMatch},
		{name: "expense keyword", ceiling: 0.6, match: c.expenseKeywordMatch},
		{name: "loan name fuzzy", ceiling: 0.5, match: c.loanNameMatch},
		{name: "investor name fuzzy", ceiling: 0.45, match: c.investorNameMatch},
	}
	return c
}

// Classify folds the strategy cascade left to right keeping the highest
// confidence, then applies the floor. Pure: reads the snapshot and the
// claim set, mutates neither.
func (c *Classifier) Classify(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) domain.Suggestion {
	best := domain.NewUnknown(e.ID)

	for _, st := range c.strategies {
		if best.Confidence >= st.ceiling {
			continue
		}
		if cand := st.match(e, snap, claims); cand != nil && cand.Confidence > best.Confidence {
			best = *cand
		}
	}

	if best.Confidence < ConfidenceFloor {
		return domain.NewUnknown(e.ID)
	}
	return best
}

// directMatch scans unclaimed same-direction obligations of every kind
// the entry's sign admits and keeps the highest-scoring one.
func (c *Classifier) directMatch(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) *domain.Suggestion {
	var best *domain.Suggestion

	consider := func(cand domain.Suggestion) {
		if best == nil || cand.Confidence > best.Confidence {
			best = &cand
		}
	}

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
		s := domain.NewSingleMatch(e.ID, cat, score, c.describeLoanTx(snap, lt))
		s.LoanTransactionIDs = []int64{lt.ID}
		s.LoanID = lt.LoanID
		consider(s)
	}

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
		s := domain.NewSingleMatch(e.ID, cat, score, c.describeInvestorTx(snap, it))
		s.InvestorTransactionID = it.ID
		s.InvestorID = it.InvestorID
		consider(s)
	}

	if e.IsDebit() {
		for _, ex := range snap.Expenses {
			ref := domain.ExpenseRef(ex.ID)
			if snap.IsReconciled(ref) || claims.Claimed(ref) {
				continue
			}
			score := CalculateMatchScore(e.Amount, e.Date, ex.Amount.Neg(), ex.Date)
			if score == 0 {
				continue
			}
			s := domain.NewSingleMatch(e.ID, domain.OperatingExpense, score,
				fmt.Sprintf("matches recorded expense of %s on %s", ex.Amount.StringFixed(2), ex.Date.Format("2006-01-02")))
			s.ExpenseID = ex.ID
			s.ExpenseTypeID = ex.ExpenseTypeID
			consider(s)
		}
	}

	return best
}

func (c *Classifier) groupedMatch(e domain.BankEntry, snap *domain.Snapshot, claims ClaimSet) *domain.Suggestion {
	return c.grouper.FindObligationGroup(e, snap, claims)
}

// patternMatch recognizes vendors confirmed by earlier reconciliations.
// Token similarity is graded: exact 1.0, substring 0.7, edit-distance
// >= 0.75 counts 0.5. The pattern must also admit the entry's direction
// and amount range. Confidence improves with repeated confirmation
// through the usage boost, saturating around 20 uses.
func (c *Classifier) patternMatch(e domain.BankEntry, snap *domain.Snapshot, _ ClaimSet) *domain.Suggestion {
	vendorKeywords := similarity.ExtractVendorKeywords(e.Description)
	if len(vendorKeywords) == 0 {
		return nil
	}

	var best *domain.Suggestion
	for _, p := range snap.Patterns {
		if len(p.Keywords) == 0 || !p.Admits(e) {
			continue
		}

		overlap := keywordOverlap(vendorKeywords, p.Keywords)
		if overlap < 0.5 {
			continue
		}

		usageBoost := float64(p.MatchCount) / 20 * 0.15
		if usageBoost > 0.15 {
			usageBoost = 0.15
		}
		confidence := p.Confidence*0.6 + overlap*0.25 + usageBoost

		s := domain.NewCreate(e.ID, p.Category, confidence,
			fmt.Sprintf("vendor keywords match learned pattern %q (%d prior uses)", strings.Join(p.Keywords, " "), p.MatchCount))
		s.ExpenseTypeID = p.ExpenseTypeID
		if best == nil || s.Confidence > best.Confidence {
			best = &s
		}
	}
	return best
}

func (c *Classifier) expenseKeywordMatch(e domain.BankEntry, _ *domain.Snapshot, _ ClaimSet) *domain.Suggestion {
	if !e.IsDebit() {
		return nil
	}
	word := c.expenseKeyword(e.Description)
	if word == "" {
		return nil
	}
	s := domain.NewCreate(e.ID, domain.OperatingExpense, 0.65,
		fmt.Sprintf("description contains expense keyword %q", word))
	return &s
}

func (c *Classifier) loanNameMatch(e domain.BankEntry, snap *domain.Snapshot, _ ClaimSet) *domain.Suggestion {
	if c.expenseKeyword(e.Description) != "" {
		return nil
	}

	var best *domain.Suggestion
	for _, id := range sortedKeys(snap.Loans) {
		loan := snap.Loans[id]
		if loan.Status != domain.LoanActive {
			continue
		}
		borrower, ok := snap.Borrowers[loan.BorrowerID]
		if !ok {
			continue
		}
		sim := similarity.StringSimilarity(e.Description, borrower.Name)
		if sim <= 0.5 {
			continue
		}
		cat := domain.LoanRepayment
		if e.IsDebit() {
			cat = domain.LoanDisbursement
		}
		s := domain.NewCreate(e.ID, cat, sim,
			fmt.Sprintf("description resembles borrower %q", borrower.Name))
		s.LoanID = loan.ID
		if best == nil || s.Confidence > best.Confidence {
			best = &s
		}
	}
	return best
}

func (c *Classifier) investorNameMatch(e domain.BankEntry, snap *domain.Snapshot, _ ClaimSet) *domain.Suggestion {
	if c.expenseKeyword(e.Description) != "" {
		return nil
	}

	var best *domain.Suggestion
	for _, id := range sortedKeys(snap.Investors) {
		inv := snap.Investors[id]
		sim := similarity.StringSimilarity(e.Description, inv.Name)
		if bizSim := similarity.StringSimilarity(e.Description, inv.BusinessName); bizSim > sim {
			sim = bizSim
		}
		if sim <= 0.4 {
			continue
		}
		cat := domain.InvestorCredit
		if e.IsDebit() {
			cat = domain.InvestorWithdrawal
		}
		s := domain.NewCreate(e.ID, cat, sim,
			fmt.Sprintf("description resembles investor %q", inv.Name))
		s.InvestorID = inv.ID
		if best == nil || s.Confidence > best.Confidence {
			best = &s
		}
	}
	return best
}

func (c *Classifier) expenseKeyword(description string) string {
	lowered := strings.ToLower(description)
	for _, w := range c.expenseVocabulary {
		if strings.Contains(lowered, w) {
			return w
		}
	}
	return ""
}

func (c *Classifier) describeLoanTx(snap *domain.Snapshot, lt domain.LoanTransaction) string {
	verb := "repayment"
	if lt.Type == domain.Disbursement {
		verb = "disbursement"
	}
	if b, ok := snap.BorrowerForLoan(lt.LoanID); ok {
		return fmt.Sprintf("matches scheduled %s of %s for %s on %s",
			verb, lt.Amount.StringFixed(2), b.Name, lt.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("matches scheduled %s of %s on %s",
		verb, lt.Amount.StringFixed(2), lt.Date.Format("2006-01-02"))
}

func (c *Classifier) describeInvestorTx(snap *domain.Snapshot, it domain.InvestorTransaction) string {
	verb := "deposit"
	if it.Type == domain.Withdrawal {
		verb = "withdrawal"
	}
	if inv, ok := snap.Investors[it.InvestorID]; ok {
		return fmt.Sprintf("matches investor %s of %s for %s on %s",
			verb, it.Amount.StringFixed(2), inv.Name, it.Date.Format("2006-01-02"))
	}
	return fmt.Sprintf("matches investor %s of %s on %s",
		verb, it.Amount.StringFixed(2), it.Date.Format("2006-01-02"))
}

// keywordOverlap is the graded fraction of entry keywords recognized by
// the pattern's keywords.
func keywordOverlap(entryKeywords, patternKeywords []string) float64 {
	if len(entryKeywords) == 0 || len(patternKeywords) == 0 {
		return 0
	}

	var total float64
	for _, ek := range entryKeywords {
		best := 0.0
		for _, pk := range patternKeywords {
			var w float64
			switch {
			case ek == pk:
				w = 1.0
			case strings.Contains(ek, pk) || strings.Contains(pk, ek):
				w = 0.7
			case similarity.LevenshteinSimilarity(ek, pk) >= 0.75:
				w = 0.5
			}
			if w > best {
				best = w
			}
		}
		total += best
	}
	return total / float64(len(entryKeywords))
}
