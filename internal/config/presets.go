package config

import "fmt"

// Presets mirror the tuned parameter sets the strategy shipped with.
// "adaptive" is the all-conditions default; the others trade off trade
// frequency against drawdown tolerance.
var presets = map[string]StrategyConfig{
	"adaptive": {
		InitialCapital:     10_000,
		GridLevels:         16,
		GridStep:           0.016,
		GridTakeProfit:     0.024,
		GridRiskPerOrder:   0.048,
		RebalanceThreshold: 0.095,
		HedgeATRThresholds: []float64{4.5, 7.0, 10.0},
		HedgeSizes:         []float64{0.06, 0.09, 0.14},
		HedgeLeverage:      2,
		EMAPeriod:          50,
		ATRPeriod:          14,
	},
	"scalping": {
		InitialCapital:     10_000,
		GridLevels:         20,
		GridStep:           0.012,
		GridTakeProfit:     0.018,
		GridRiskPerOrder:   0.04,
		RebalanceThreshold: 0.08,
		HedgeATRThresholds: []float64{5.0, 7.0, 10.0},
		HedgeSizes:         []float64{0.05, 0.08, 0.12},
		HedgeLeverage:      2,
		EMAPeriod:          50,
		ATRPeriod:          14,
	},
	"conservative": {
		InitialCapital:     10_000,
		GridLevels:         10,
		GridStep:           0.025,
		GridTakeProfit:     0.035,
		GridRiskPerOrder:   0.05,
		RebalanceThreshold: 0.18,
		HedgeATRThresholds: []float64{3.0, 4.5, 6.5},
		HedgeSizes:         []float64{0.08, 0.12, 0.15},
		HedgeLeverage:      2,
		EMAPeriod:          24,
		ATRPeriod:          14,
	},
	"aggressive": {
		InitialCapital:     10_000,
		GridLevels:         15,
		GridStep:           0.015,
		GridTakeProfit:     0.025,
		GridRiskPerOrder:   0.10,
		RebalanceThreshold: 0.12,
		HedgeATRThresholds: []float64{2.0, 3.5, 5.5},
		HedgeSizes:         []float64{0.12, 0.18, 0.25},
		HedgeLeverage:      3,
		EMAPeriod:          24,
		ATRPeriod:          14,
	},
}

const defaultPreset = "adaptive"

// Preset returns a copy of the named preset.
func Preset(name string) (StrategyConfig, error) {
	base, ok := presets[name]
	if !ok {
		return StrategyConfig{}, fmt.Errorf("unknown strategy preset %q", name)
	}
	out := base
	out.Preset = name
	out.HedgeATRThresholds = append([]float64(nil), base.HedgeATRThresholds...)
	out.HedgeSizes = append([]float64(nil), base.HedgeSizes...)
	return out, nil
}

// PresetNames lists the available preset names.
func PresetNames() []string {
	return []string{"adaptive", "aggressive", "conservative", "scalping"}
}

func applyStrategyPreset(s *StrategyConfig) error {
	name := s.Preset
	if name == "" {
		name = defaultPreset
	}
	base, err := Preset(name)
	if err != nil {
		return err
	}
	if s.InitialCapital == 0 {
		s.InitialCapital = base.InitialCapital
	}
	if s.GridLevels == 0 {
		s.GridLevels = base.GridLevels
	}
	if s.GridStep == 0 {
		s.GridStep = base.GridStep
	}
	if s.GridTakeProfit == 0 {
		s.GridTakeProfit = base.GridTakeProfit
	}
	if s.GridRiskPerOrder == 0 {
		s.GridRiskPerOrder = base.GridRiskPerOrder
	}
	if s.RebalanceThreshold == 0 {
		s.RebalanceThreshold = base.RebalanceThreshold
	}
	if len(s.HedgeATRThresholds) == 0 {
		s.HedgeATRThresholds = base.HedgeATRThresholds
	}
	if len(s.HedgeSizes) == 0 {
		s.HedgeSizes = base.HedgeSizes
	}
	if s.HedgeLeverage == 0 {
		s.HedgeLeverage = base.HedgeLeverage
	}
	if s.EMAPeriod == 0 {
		s.EMAPeriod = base.EMAPeriod
	}
	if s.ATRPeriod == 0 {
		s.ATRPeriod = base.ATRPeriod
	}
	s.Preset = name
	return nil
}
