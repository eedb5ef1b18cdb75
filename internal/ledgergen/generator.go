package ledgergen

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/okian/glwatch/internal/adapters/tabular"
	"github.com/okian/glwatch/internal/adapters/worker"
	"github.com/okian/glwatch/internal/domain/ledger"
	"github.com/okian/glwatch/pkg/logger"
)

// Behaviour is how an account changes between the two years.
type Behaviour string

// Account behaviours.
const (
	Steady   Behaviour = "steady"   // same level and spread
	Shifted  Behaviour = "shifted"  // level triples
	Volatile Behaviour = "volatile" // same level, much wider spread
	Reversed Behaviour = "reversed" // running balance changes sign
	Sparse   Behaviour = "sparse"   // one active month per year
	Dormant  Behaviour = "dormant"  // no postings at all
)

// behaviourCycle assigns behaviours by account index.
var behaviourCycle = []Behaviour{
	Steady, Shifted, Steady, Volatile, Steady, Reversed, Steady, Sparse, Steady, Dormant,
}

var accountNames = []string{
	"Sales", "Rent", "Bank Fees", "GST Payable", "Wages", "Accounts Receivable",
	"Subscriptions", "Travel", "Interest Income", "Loan Account", "Rounding",
	"Consulting Fees", "Power", "Insurance", "Suspense", "Freight",
}

// Constants for amount generation.
const (
	baseMin         = 200.0
	baseRange       = 4800.0
	normalSpread    = 0.15
	volatileSpread  = 0.9
	shiftFactor     = 3.0
	debitShare      = 0.3
	gstRate         = 0.15
	openingMultiple = 20.0
	sparseMonth     = 6
	codeStart       = 1000
	codeStep        = 10
)

// Result is a generated ledger pair.
type Result struct {
	Prior      tabular.Ledger
	Current    tabular.Ledger
	Behaviours map[string]Behaviour // by account code
}

type generated struct {
	code      string
	behaviour Behaviour
	prior     tabular.LedgerEntry
	current   tabular.LedgerEntry
}

// Generate builds both years. Accounts are generated concurrently from
// per-account seeds, so the output depends only on cfg.
func Generate(ctx context.Context, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	log := logger.Get().Named("ledgergen")
	log.Info(ctx, "generating ledgers",
		logger.Int("accounts", cfg.Accounts),
		logger.Int("year", cfg.Year),
		logger.Any("seed", cfg.Seed),
	)

	pool := worker.NewPool(cfg.Workers, worker.WithName("ledgergen"))
	results, err := worker.Map(ctx, pool, cfg.Accounts, func(_ context.Context, i int) (generated, error) {
		return generateAccount(cfg, i)
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate ledgers: %w", err)
	}

	out := Result{
		Prior:      make(tabular.Ledger, cfg.Accounts),
		Current:    make(tabular.Ledger, cfg.Accounts),
		Behaviours: make(map[string]Behaviour, cfg.Accounts),
	}
	for _, r := range results {
		if r.Err != nil {
			return Result{}, fmt.Errorf("generate account %d: %w", r.Index, r.Err)
		}
		g := r.Value
		out.Prior[g.code] = g.prior
		out.Current[g.code] = g.current
		out.Behaviours[g.code] = g.behaviour
	}
	log.Info(ctx, "generated ledgers", logger.Int("accounts", len(out.Behaviours)))
	return out, nil
}

// Codes returns the codes of accounts with behaviour b, ordered.
func (r Result) Codes(b Behaviour) []string {
	var out []string
	for code, got := range r.Behaviours {
		if got == b {
			out = append(out, code)
		}
	}
	slices.Sort(out)
	return out
}

func generateAccount(cfg Config, i int) (generated, error) {
	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:8], cfg.Seed)
	binary.LittleEndian.PutUint64(seed[8:16], uint64(i))
	src := rand.NewChaCha8(seed)
	rng := rand.New(src)

	g := generated{
		code:      strconv.Itoa(codeStart + i*codeStep),
		behaviour: behaviourCycle[i%len(behaviourCycle)],
	}
	name := accountNames[i%len(accountNames)]
	if n := i / len(accountNames); n > 0 {
		name += " " + strconv.Itoa(n+1)
	}
	g.prior.AccountName = name
	g.current.AccountName = name

	base := baseMin + rng.Float64()*baseRange
	prior := series{mean: base, spread: normalSpread, opening: base * openingMultiple}
	current := prior
	current.mean = base * (1 + 0.1*(rng.Float64()-0.5))

	switch g.behaviour {
	case Shifted:
		current.mean = base * shiftFactor
	case Volatile:
		current.spread = volatileSpread
	case Reversed:
		current.opening = -prior.opening
	case Sparse:
		prior.months = []int{sparseMonth}
		current.months = []int{sparseMonth}
	case Dormant:
		g.prior.Transactions = []ledger.Transaction{}
		g.current.Transactions = []ledger.Transaction{}
		return g, nil
	}

	var err error
	if g.prior.Transactions, err = prior.postings(rng, src, cfg.Year-1, cfg.PostingsPerMonth); err != nil {
		return generated{}, err
	}
	if g.current.Transactions, err = current.postings(rng, src, cfg.Year, cfg.PostingsPerMonth); err != nil {
		return generated{}, err
	}
	return g, nil
}

type series struct {
	mean    float64 // monthly credit total
	spread  float64 // relative standard deviation per posting
	opening float64 // running balance at the start of the year
	months  []int   // active months; nil means all twelve
}

func (s series) postings(rng *rand.Rand, src *rand.ChaCha8, year, perMonth int) ([]ledger.Transaction, error) {
	months := s.months
	if months == nil {
		months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	}
	balance := s.opening
	out := make([]ledger.Transaction, 0, len(months)*perMonth)
	for _, m := range months {
		days := make([]int, perMonth)
		for k := range days {
			days[k] = 1 + rng.IntN(28)
		}
		slices.Sort(days)
		for _, day := range days {
			credit := math.Max(0, s.mean/float64(perMonth)*(1+s.spread*rng.NormFloat64()))
			debit := credit * debitShare * rng.Float64()
			balance += credit - debit
			ref, err := uuid.NewRandomFromReader(src)
			if err != nil {
				return nil, fmt.Errorf("posting reference: %w", err)
			}
			out = append(out, ledger.Transaction{
				Date: fmt.Sprintf("%02d/%02d/%04d", day, m, year),
				Values: map[string]any{
					"Reference":       ref.String(),
					"Debit":           round2(debit),
					"Credit":          round2(credit),
					"Running Balance": round2(balance),
					"GST":             round2(credit * gstRate),
				},
			})
		}
	}
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
