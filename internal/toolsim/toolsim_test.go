package toolsim

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ppiankov/guardsim/internal/catalog"
	"github.com/ppiankov/guardsim/internal/model"
)

func testCatalog(t *testing.T, tools ...model.Tool) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(tools)
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return c
}

func TestBindResolvesEveryTool(t *testing.T) {
	cat := testCatalog(t,
		model.Tool{Name: "Read", AccessLevel: model.AccessReadOnly, RiskClass: model.RiskLow, BehaviorRef: RefReadMarketData},
		model.Tool{Name: "Update", AccessLevel: model.AccessWrite, RiskClass: model.RiskCritical, BehaviorRef: RefUpdatePortfolio},
	)
	b, err := Builtin().Bind(cat)
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if len(b) != 2 {
		t.Fatalf("expected 2 bindings, got %d", len(b))
	}
}

func TestBindUnknownRefIsConfigError(t *testing.T) {
	cat := testCatalog(t,
		model.Tool{Name: "Read", AccessLevel: model.AccessReadOnly, RiskClass: model.RiskLow, BehaviorRef: RefReadMarketData},
		model.Tool{Name: "Ghost", AccessLevel: model.AccessReadOnly, RiskClass: model.RiskLow, BehaviorRef: "mock_nothing"},
	)
	_, err := Builtin().Bind(cat)
	var ce *model.ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if ce.Field != "[1].simulated_behavior_ref" {
		t.Errorf("unexpected field %q", ce.Field)
	}
}

func TestBuiltinIsDeterministic(t *testing.T) {
	ctx := context.Background()
	params := map[string]any{"symbol": "msft"}
	for _, ref := range []string{RefReadMarketData, RefGenerateReport, RefSendNotification, RefChangeSystemConfig} {
		r1 := Builtin()
		r2 := Builtin()
		a, err1 := r1[ref].Invoke(ctx, params)
		b, err2 := r2[ref].Invoke(ctx, params)
		if err1 != nil || err2 != nil {
			t.Fatalf("%s: unexpected errors %v %v", ref, err1, err2)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("%s: outputs differ: %v vs %v", ref, a, b)
		}
	}
}

func TestInvokeFailureBecomesResult(t *testing.T) {
	b := Bindings{"Broken": Builtin()[RefAlwaysFail]}
	res := b.Invoke(context.Background(), "Broken", nil)
	if res.Status != model.ToolFailure {
		t.Fatalf("expected failure status, got %s", res.Status)
	}
	if res.Error != ErrSimulatedFailure.Error() {
		t.Errorf("unexpected error text %q", res.Error)
	}
}

func TestInvokeUnboundTool(t *testing.T) {
	res := Bindings{}.Invoke(context.Background(), "Missing", nil)
	if res.Status != model.ToolFailure {
		t.Fatalf("expected failure for unbound tool, got %s", res.Status)
	}
}

func TestUpdatePortfolioRequiresSymbol(t *testing.T) {
	b := Bindings{"Update": Builtin()[RefUpdatePortfolio]}
	if res := b.Invoke(context.Background(), "Update", map[string]any{}); res.Status != model.ToolFailure {
		t.Errorf("expected failure without symbol, got %s", res.Status)
	}
	res := b.Invoke(context.Background(), "Update", map[string]any{"symbol": "aapl", "quantity": 10})
	if res.Status != model.ToolSuccess || res.Output["symbol"] != "AAPL" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestRefsSorted(t *testing.T) {
	refs := Builtin().Refs()
	for i := 1; i < len(refs); i++ {
		if refs[i-1] > refs[i] {
			t.Fatalf("refs not sorted: %v", refs)
		}
	}
	if len(refs) != 6 {
		t.Errorf("expected 6 builtin refs, got %d", len(refs))
	}
}
