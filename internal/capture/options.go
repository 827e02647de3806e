package capture

import "time"

const DefaultTargetURL = "https://www.coinglass.com/pro/futures/LiquidationHeatMap"

// Selectors holds every DOM locator the pipeline uses against the widget
// page. They can be replaced from a YAML file when the site changes.
type Selectors struct {
	ChartCSS         string `yaml:"chart_css"`
	ChartXPath       string `yaml:"chart_xpath"`
	SymbolTabXPath   string `yaml:"symbol_tab_xpath"`
	SymbolInputCSS   string `yaml:"symbol_input_css"`
	OptionCSS        string `yaml:"option_css"`
	OptionExactXPath string `yaml:"option_exact_xpath"`
	TimeframeTrigger string `yaml:"timeframe_trigger_css"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		ChartCSS:         "div.echarts-for-react",
		ChartXPath:       "//div[contains(@class, 'echarts-for-react')]",
		SymbolTabXPath:   "//button[@role='tab' and contains(text(),'Symbol')]",
		SymbolInputCSS:   "input.MuiAutocomplete-input",
		OptionCSS:        `li[role="option"]`,
		OptionExactXPath: "//li[@role='option' and text()='%s']",
		TimeframeTrigger: "div.MuiSelect-root button.MuiSelect-button",
	}
}

// Merge fills empty fields of s from fallback.
func (s Selectors) Merge(fallback Selectors) Selectors {
	pick := func(v, d string) string {
		if v == "" {
			return d
		}
		return v
	}
	return Selectors{
		ChartCSS:         pick(s.ChartCSS, fallback.ChartCSS),
		ChartXPath:       pick(s.ChartXPath, fallback.ChartXPath),
		SymbolTabXPath:   pick(s.SymbolTabXPath, fallback.SymbolTabXPath),
		SymbolInputCSS:   pick(s.SymbolInputCSS, fallback.SymbolInputCSS),
		OptionCSS:        pick(s.OptionCSS, fallback.OptionCSS),
		OptionExactXPath: pick(s.OptionExactXPath, fallback.OptionExactXPath),
		TimeframeTrigger: pick(s.TimeframeTrigger, fallback.TimeframeTrigger),
	}
}

// Timings are the settle budgets between page interactions.
type Timings struct {
	PageSettle       time.Duration
	UISettle         time.Duration
	ChartSettle      time.Duration
	TimeframeSettle  time.Duration
	PreCaptureSettle time.Duration
	ElementWait      time.Duration
	PollInterval     time.Duration
	StableSamples    int
}

func DefaultTimings() Timings {
	return Timings{
		PageSettle:       5 * time.Second,
		UISettle:         2 * time.Second,
		ChartSettle:      15 * time.Second,
		TimeframeSettle:  3 * time.Second,
		PreCaptureSettle: 3 * time.Second,
		ElementWait:      20 * time.Second,
		PollInterval:     500 * time.Millisecond,
		StableSamples:    3,
	}
}

// Options configures a Pipeline.
type Options struct {
	TargetURL string
	Selectors Selectors
	Timings   Timings
	// Scale is the device pixel ratio applied to the screenshot clip.
	Scale float64
	// ProbeRender enables fingerprint polling in place of fixed sleeps.
	ProbeRender bool
}

func DefaultOptions() Options {
	return Options{
		TargetURL:   DefaultTargetURL,
		Selectors:   DefaultSelectors(),
		Timings:     DefaultTimings(),
		Scale:       2,
		ProbeRender: true,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TargetURL == "" {
		o.TargetURL = d.TargetURL
	}
	o.Selectors = o.Selectors.Merge(d.Selectors)
	if o.Timings == (Timings{}) {
		o.Timings = d.Timings
	}
	if o.Timings.PollInterval <= 0 {
		o.Timings.PollInterval = d.Timings.PollInterval
	}
	if o.Timings.StableSamples <= 0 {
		o.Timings.StableSamples = d.Timings.StableSamples
	}
	if o.Scale <= 0 {
		o.Scale = d.Scale
	}
	return o
}
