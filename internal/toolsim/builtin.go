package toolsim

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Built-in behavior references.
const (
	RefReadMarketData     = "mock_read_market_data"
	RefUpdatePortfolio    = "mock_update_portfolio"
	RefChangeSystemConfig = "mock_change_system_config"
	RefGenerateReport     = "mock_generate_report"
	RefSendNotification   = "mock_send_notification"
	RefAlwaysFail         = "mock_always_fail"
)

// ErrSimulatedFailure is returned by the always-failing behavior.
var ErrSimulatedFailure = errors.New("simulated tool failure")

// Builtin returns a fresh registry of the built-in stand-ins.
// Outputs depend only on params.
func Builtin() Registry {
	return Registry{
		RefReadMarketData:     BehaviorFunc(readMarketData),
		RefUpdatePortfolio:    BehaviorFunc(updatePortfolio),
		RefChangeSystemConfig: BehaviorFunc(changeSystemConfig),
		RefGenerateReport:     BehaviorFunc(generateReport),
		RefSendNotification:   BehaviorFunc(sendNotification),
		RefAlwaysFail: BehaviorFunc(func(context.Context, map[string]any) (map[string]any, error) {
			return nil, ErrSimulatedFailure
		}),
	}
}

func stringParam(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return def
}

func readMarketData(_ context.Context, params map[string]any) (map[string]any, error) {
	symbol := strings.ToUpper(stringParam(params, "symbol", "AAPL"))
	// Price is derived from the symbol so repeated runs are byte-identical.
	var sum int
	for _, r := range symbol {
		sum += int(r)
	}
	return map[string]any{
		"symbol": symbol,
		"price":  float64(100+sum%400) + 0.25,
		"volume": 1000 * (1 + sum%50),
		"source": "simulated",
	}, nil
}

func updatePortfolio(_ context.Context, params map[string]any) (map[string]any, error) {
	action := stringParam(params, "action", "rebalance")
	symbol := strings.ToUpper(stringParam(params, "symbol", ""))
	if symbol == "" {
		return nil, errors.New("portfolio update requires a symbol")
	}
	return map[string]any{
		"symbol":   symbol,
		"action":   action,
		"quantity": params["quantity"],
		"status":   "simulated_update_applied",
	}, nil
}

func changeSystemConfig(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{
		"setting": stringParam(params, "setting", "unspecified"),
		"value":   params["value"],
		"status":  "simulated_config_changed",
	}, nil
}

func generateReport(_ context.Context, params map[string]any) (map[string]any, error) {
	kind := stringParam(params, "report_type", "summary")
	return map[string]any{
		"report_type": kind,
		"report_id":   "report-" + strings.ToLower(strings.ReplaceAll(kind, " ", "-")),
		"status":      "simulated_report_generated",
	}, nil
}

func sendNotification(_ context.Context, params map[string]any) (map[string]any, error) {
	return map[string]any{
		"recipient": stringParam(params, "recipient", "ops"),
		"delivered": true,
		"channel":   stringParam(params, "channel", "email"),
	}, nil
}
