package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"turbo/native/accountant"
	"turbo/native/auth"
	"turbo/native/bank"
	"turbo/native/booster"
	"turbo/native/fixed"
	"turbo/native/pool"
	"turbo/native/turbo"
	"turbo/native/vault"
)

var collaboratorKinds = []struct {
	err  error
	kind string
}{
	{accountant.ErrFeeTooHigh, "FeeTooHigh"},
	{accountant.ErrNotPermitted, "NotPermitted"},
	{booster.ErrNotPermitted, "NotPermitted"},
	{auth.ErrUnauthorized, "NotPermitted"},
	{bank.ErrInsufficientBalance, "InsufficientBalance"},
	{pool.ErrRepayExceedsDebt, "RepayExceedsDebt"},
	{pool.ErrInsufficientCollateral, "InsufficientCollateral"},
}

// ErrorKind classifies err with the engine taxonomy, falling back to the
// collaborator errors scenarios may provoke directly.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if kind := turbo.ErrorKind(err); kind != "" {
		return kind
	}
	for _, k := range collaboratorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Unknown"
}

func isCollaboratorKind(kind string) bool {
	for _, k := range collaboratorKinds {
		if k.kind == kind {
			return true
		}
	}
	return false
}

// StepReport is the outcome of one step.
type StepReport struct {
	Index   int
	Action  string
	Err     error
	Kind    string
	Passed  bool
	Failure string
}

// Report is the outcome of a scenario run.
type Report struct {
	RunID    string
	Scenario string
	Steps    []StepReport
	Passed   bool
}

// Failed returns the first failing step, if any.
func (r Report) Failed() (StepReport, bool) {
	for _, step := range r.Steps {
		if !step.Passed {
			return step, true
		}
	}
	return StepReport{}, false
}

// Outcome carries the values an operation returned.
type Outcome struct {
	Slurp  *turbo.SlurpResult
	Repaid *uint256.Int
}

// Run replays sc against w. It stops at the first step whose outcome does not
// match its expectations or when ctx is cancelled.
func Run(ctx context.Context, w *World, sc Scenario) (Report, error) {
	report := Report{RunID: uuid.NewString(), Scenario: sc.Name, Passed: true}
	log := w.logger.With(slog.String("scenario", sc.Name), slog.String("run_id", report.RunID))
	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := w.Apply(step)
		sr := StepReport{Index: i + 1, Action: step.Action, Err: err, Kind: ErrorKind(err), Passed: true}
		if failure := w.verify(step, res, err); failure != "" {
			sr.Passed = false
			sr.Failure = failure
			report.Passed = false
		}
		report.Steps = append(report.Steps, sr)
		log.Debug("scenario step",
			slog.Int("step", sr.Index),
			slog.String("action", step.Action),
			slog.String("actor", step.Actor),
			slog.Bool("passed", sr.Passed))
		if !sr.Passed {
			log.Warn("scenario step failed", slog.Int("step", sr.Index), slog.String("reason", sr.Failure))
			break
		}
	}
	return report, nil
}

// Apply executes one step.
func (w *World) Apply(step Step) (Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var res Outcome
	actor := w.Account(step.Actor)

	switch step.Action {
	case "create_safe":
		collateral, err := w.asset(step.Collateral)
		if err != nil {
			return res, err
		}
		alias := strings.ToLower(step.Safe)
		if _, exists := w.safes[alias]; exists {
			return res, fmt.Errorf("safe alias %q already in use", step.Safe)
		}
		safe, err := w.master.CreateSafe(actor, collateral)
		if err != nil {
			return res, err
		}
		w.safes[alias] = safe
		w.safeNames[safe.Address()] = step.Safe
		return res, nil

	case "mint":
		asset, amount, err := w.assetAmount(step.Asset, step.Amount)
		if err != nil {
			return res, err
		}
		return res, w.bank.Mint(asset, w.Account(step.To), amount)

	case "set_fee":
		fee, err := fixed.ParseWad(step.Fee)
		if err != nil {
			return res, err
		}
		switch step.Scope {
		case "collateral":
			asset, err := w.asset(step.Target)
			if err != nil {
				return res, err
			}
			return res, w.accountant.SetCustomFeePercentageForCollateral(actor, asset, fee)
		case "safe":
			return res, w.accountant.SetCustomFeePercentageForSafe(actor, w.Account(step.Target), fee)
		default:
			return res, w.accountant.SetDefaultFeePercentage(actor, fee)
		}

	case "set_vault_cap":
		v, err := w.vault(step.Vault)
		if err != nil {
			return res, err
		}
		amount, err := fixed.ParseAmount(step.Amount)
		if err != nil {
			return res, err
		}
		return res, w.booster.SetBoostCapForVault(actor, v.Address(), amount)

	case "set_collateral_cap":
		asset, amount, err := w.assetAmount(step.Collateral, step.Amount)
		if err != nil {
			return res, err
		}
		return res, w.booster.SetBoostCapForCollateral(actor, asset, amount)

	case "freeze":
		return res, w.booster.SetFreezeStatus(actor, step.Enabled)

	case "pause":
		w.pauses.Set(step.Module, step.Enabled)
		return res, nil

	case "set_gibber":
		return res, w.master.SetGibber(actor, w.Account(step.To))

	case "master_sweep":
		asset, amount, err := w.assetAmount(step.Asset, step.Amount)
		if err != nil {
			return res, err
		}
		return res, w.master.Sweep(actor, w.Account(step.To), asset, amount)

	case "slurp_all":
		reports, err := w.master.SlurpAll(actor)
		if err != nil {
			return res, err
		}
		for _, r := range reports {
			if r.Err != nil {
				return res, fmt.Errorf("safe %s vault %s: %w", w.SafeName(r.Safe), r.Vault.Hex(), r.Err)
			}
		}
		return res, nil

	case "check":
		return res, nil
	}

	safe, err := w.safe(step.Safe)
	if err != nil {
		return res, err
	}
	var amount *uint256.Int
	if step.Amount != "" {
		if amount, err = fixed.ParseAmount(step.Amount); err != nil {
			return res, err
		}
	}

	switch step.Action {
	case "deposit_collateral":
		return res, safe.DepositCollateral(actor, amount)
	case "withdraw_collateral":
		return res, safe.WithdrawCollateral(actor, w.Account(step.To), amount)
	case "claim":
		return res, safe.Claim(actor, amount)
	case "impound":
		return res, safe.Impound(actor, w.Account(step.To), amount)
	case "sweep":
		asset, err := w.asset(step.Asset)
		if err != nil {
			asset = w.Account(step.Asset)
		}
		return res, safe.Sweep(actor, w.Account(step.To), asset, amount)
	case "repay":
		return res, w.pool.RepayBehalf(actor, safe.Address(), amount)
	}

	v, err := w.vault(step.Vault)
	if err != nil {
		return res, err
	}
	switch step.Action {
	case "boost":
		return res, safe.Boost(actor, v, amount)
	case "less":
		res.Repaid, err = safe.Less(actor, v, amount)
		return res, err
	case "slurp":
		res.Slurp, err = safe.Slurp(actor, v)
		return res, err
	case "accrue":
		if err := w.bank.Mint(v.Asset(), w.yieldSrc, amount); err != nil {
			return res, err
		}
		return res, v.Accrue(w.yieldSrc, safe.Address(), amount)
	case "slash":
		return res, v.Slash(safe.Address(), amount)
	}
	return res, fmt.Errorf("unknown action %q", step.Action)
}

func (w *World) verify(step Step, res Outcome, err error) string {
	kind := ErrorKind(err)
	if step.Expect.Error != kind {
		if kind == "" {
			return fmt.Sprintf("expected error %s, step succeeded", step.Expect.Error)
		}
		return fmt.Sprintf("expected error %q, got %s (%v)", step.Expect.Error, kind, err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	exp := step.Expect
	var checks []check
	if res.Slurp != nil {
		checks = append(checks,
			check{"interest", exp.Interest, res.Slurp.InterestEarned},
			check{"fee", exp.Fee, res.Slurp.ProtocolFee},
			check{"retained", exp.Retained, res.Slurp.SafeRetained})
	} else if exp.Interest != "" || exp.Fee != "" || exp.Retained != "" {
		return "slurp expectations on a step that did not slurp"
	}
	if exp.Repaid != "" {
		checks = append(checks, check{"repaid", exp.Repaid, res.Repaid})
	}
	if exp.MasterTotal != "" {
		checks = append(checks, check{"master_total", exp.MasterTotal, w.master.TotalBoosted()})
	}
	if exp.Boosted != "" || exp.SafeTotal != "" || exp.Debt != "" {
		safe, err := w.safe(step.Safe)
		if err != nil {
			return err.Error()
		}
		if exp.Boosted != "" {
			v, err := w.vault(step.Vault)
			if err != nil {
				return err.Error()
			}
			checks = append(checks, check{"boosted", exp.Boosted, safe.BoostedForVault(v.Address())})
		}
		checks = append(checks,
			check{"safe_total", exp.SafeTotal, safe.TotalBoosted()},
			check{"debt", exp.Debt, w.pool.BorrowBalance(safe.Address())})
	}
	for _, b := range exp.Balances {
		asset, err := w.asset(b.Asset)
		if err != nil {
			return err.Error()
		}
		checks = append(checks, check{
			name:   fmt.Sprintf("balance %s of %s", strings.ToUpper(b.Asset), b.Account),
			want:   b.Amount,
			actual: w.bank.BalanceOf(asset, w.Account(b.Account)),
		})
	}
	for _, c := range checks {
		if failure := c.run(); failure != "" {
			return failure
		}
	}
	return ""
}

type check struct {
	name   string
	want   string
	actual *uint256.Int
}

func (c check) run() string {
	if c.want == "" {
		return ""
	}
	want, err := fixed.ParseAmount(c.want)
	if err != nil {
		return fmt.Sprintf("%s: %v", c.name, err)
	}
	if got := fixed.Clone(c.actual); !got.Eq(want) {
		return fmt.Sprintf("%s: want %s, got %s", c.name, want.Dec(), got.Dec())
	}
	return ""
}

func (w *World) safe(alias string) (*turbo.Safe, error) {
	safe, ok := w.Safe(alias)
	if !ok {
		return nil, fmt.Errorf("unknown safe %q", alias)
	}
	return safe, nil
}

func (w *World) vault(name string) (*vault.Vault, error) {
	v, ok := w.Vault(name)
	if !ok {
		return nil, fmt.Errorf("unknown vault %q", name)
	}
	return v, nil
}

func (w *World) asset(symbol string) (common.Address, error) {
	addr, ok := w.Asset(symbol)
	if !ok {
		return common.Address{}, fmt.Errorf("unknown asset %q", symbol)
	}
	return addr, nil
}

func (w *World) assetAmount(symbol, raw string) (common.Address, *uint256.Int, error) {
	asset, err := w.asset(symbol)
	if err != nil {
		return common.Address{}, nil, err
	}
	amount, err := fixed.ParseAmount(raw)
	if err != nil {
		return common.Address{}, nil, err
	}
	return asset, amount, nil
}
