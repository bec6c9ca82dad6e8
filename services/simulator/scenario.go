package simulator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"turbo/native/turbo"
)

// Scenario is a named sequence of steps replayed against a fresh World.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one action. Which fields are required depends on Action.
type Step struct {
	Action     string `yaml:"action"`
	Actor      string `yaml:"actor"`
	Safe       string `yaml:"safe"`
	Vault      string `yaml:"vault"`
	Asset      string `yaml:"asset"`
	Collateral string `yaml:"collateral"`
	To         string `yaml:"to"`
	Amount     string `yaml:"amount"`
	Scope      string `yaml:"scope"`
	Target     string `yaml:"target"`
	Fee        string `yaml:"fee"`
	Module     string `yaml:"module"`
	Enabled    bool   `yaml:"enabled"`
	Expect     Expect `yaml:"expect"`
}

// Expect lists the assertions checked after a step. Empty fields are not
// checked. Error names an error kind such as "Underflow".
type Expect struct {
	Error       string    `yaml:"error"`
	Interest    string    `yaml:"interest"`
	Fee         string    `yaml:"fee"`
	Retained    string    `yaml:"retained"`
	Repaid      string    `yaml:"repaid"`
	Boosted     string    `yaml:"boosted"`
	SafeTotal   string    `yaml:"safe_total"`
	MasterTotal string    `yaml:"master_total"`
	Debt        string    `yaml:"debt"`
	Balances    []Balance `yaml:"balances"`
}

// Balance asserts the holding of asset by account.
type Balance struct {
	Account string `yaml:"account"`
	Asset   string `yaml:"asset"`
	Amount  string `yaml:"amount"`
}

type actionFields struct {
	actor, safe, vault, asset, to, amount bool
}

var actions = map[string]actionFields{
	"create_safe":         {actor: true},
	"mint":                {asset: true, to: true, amount: true},
	"deposit_collateral":  {actor: true, safe: true, amount: true},
	"withdraw_collateral": {actor: true, safe: true, to: true, amount: true},
	"boost":               {actor: true, safe: true, vault: true, amount: true},
	"less":                {actor: true, safe: true, vault: true, amount: true},
	"slurp":               {actor: true, safe: true, vault: true},
	"slurp_all":           {actor: true},
	"accrue":              {safe: true, vault: true, amount: true},
	"slash":               {safe: true, vault: true, amount: true},
	"repay":               {actor: true, safe: true, amount: true},
	"impound":             {actor: true, safe: true, to: true, amount: true},
	"claim":               {actor: true, safe: true, amount: true},
	"sweep":               {actor: true, safe: true, asset: true, to: true, amount: true},
	"master_sweep":        {actor: true, asset: true, to: true, amount: true},
	"set_fee":             {actor: true},
	"set_vault_cap":       {actor: true, vault: true, amount: true},
	"set_collateral_cap":  {actor: true, amount: true},
	"freeze":              {actor: true},
	"pause":               {},
	"set_gibber":          {actor: true, to: true},
	"check":               {},
}

// LoadScenario reads and validates the YAML scenario at path.
func LoadScenario(path string) (Scenario, error) {
	if strings.TrimSpace(path) == "" {
		return Scenario{}, fmt.Errorf("scenario path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()
	return DecodeScenario(file)
}

// DecodeScenario reads a scenario from r. Unknown keys are rejected.
func DecodeScenario(r io.Reader) (Scenario, error) {
	var sc Scenario
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return Scenario{}, fmt.Errorf("scenario is empty")
		}
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	sc.normalize()
	if err := sc.validate(); err != nil {
		return Scenario{}, err
	}
	return sc, nil
}

func (sc *Scenario) normalize() {
	sc.Name = strings.TrimSpace(sc.Name)
	for i := range sc.Steps {
		step := &sc.Steps[i]
		step.Action = strings.ToLower(strings.TrimSpace(step.Action))
		step.Actor = strings.TrimSpace(step.Actor)
		step.Safe = strings.TrimSpace(step.Safe)
		step.Vault = strings.TrimSpace(step.Vault)
		step.Asset = strings.ToUpper(strings.TrimSpace(step.Asset))
		step.Collateral = strings.ToUpper(strings.TrimSpace(step.Collateral))
		step.To = strings.TrimSpace(step.To)
		step.Amount = strings.TrimSpace(step.Amount)
		step.Scope = strings.ToLower(strings.TrimSpace(step.Scope))
		step.Target = strings.TrimSpace(step.Target)
		step.Fee = strings.TrimSpace(step.Fee)
		step.Module = strings.ToLower(strings.TrimSpace(step.Module))
		step.Expect.Error = strings.TrimSpace(step.Expect.Error)
	}
}

func (sc Scenario) validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario name required")
	}
	if len(sc.Steps) == 0 {
		return fmt.Errorf("scenario %q has no steps", sc.Name)
	}
	for i, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	fields, ok := actions[s.Action]
	if !ok {
		return fmt.Errorf("unknown action %q", s.Action)
	}
	required := []struct {
		need  bool
		value string
		name  string
	}{
		{fields.actor, s.Actor, "actor"},
		{fields.safe, s.Safe, "safe"},
		{fields.vault, s.Vault, "vault"},
		{fields.asset, s.Asset, "asset"},
		{fields.to, s.To, "to"},
		{fields.amount, s.Amount, "amount"},
	}
	for _, field := range required {
		if field.need && field.value == "" {
			return fmt.Errorf("%s required", field.name)
		}
	}
	switch s.Action {
	case "create_safe":
		if s.Safe == "" || s.Collateral == "" {
			return fmt.Errorf("safe alias and collateral required")
		}
	case "set_fee":
		switch s.Scope {
		case "default":
		case "collateral", "safe":
			if s.Target == "" {
				return fmt.Errorf("target required for %s scope", s.Scope)
			}
		default:
			return fmt.Errorf("scope must be default, collateral or safe")
		}
		if s.Fee == "" {
			return fmt.Errorf("fee required")
		}
	case "set_collateral_cap":
		if s.Collateral == "" {
			return fmt.Errorf("collateral required")
		}
	case "pause":
		if s.Module == "" {
			return fmt.Errorf("module required")
		}
	}
	if s.Expect.Error != "" {
		if _, ok := turbo.ErrorForKind(s.Expect.Error); !ok && !isCollaboratorKind(s.Expect.Error) {
			return fmt.Errorf("unknown error kind %q", s.Expect.Error)
		}
	}
	return nil
}
