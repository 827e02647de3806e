package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/heatmap_agent/internal/capture"
)

// LoadSelectors reads a YAML selector override. Keys that are absent keep
// their built-in values.
func LoadSelectors(path string) (capture.Selectors, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return capture.Selectors{}, fmt.Errorf("read selectors file: %w", err)
	}
	var sel capture.Selectors
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return capture.Selectors{}, fmt.Errorf("parse selectors file %s: %w", path, err)
	}
	if sel.OptionExactXPath != "" && strings.Count(sel.OptionExactXPath, "%s") != 1 {
		return capture.Selectors{}, fmt.Errorf("selectors file %s: option_exact_xpath needs exactly one %%s", path)
	}
	return sel.Merge(capture.DefaultSelectors()), nil
}

// Job is one scheduled capture posted to the bot's channel.
type Job struct {
	Name      string `yaml:"name"`
	Cron      string `yaml:"cron"`
	Symbol    string `yaml:"symbol"`
	Timeframe string `yaml:"timeframe"`
	ChatID    string `yaml:"chat_id"`
}

// Schedule is the YAML schedule file.
type Schedule struct {
	Timezone string `yaml:"timezone"`
	Jobs     []Job  `yaml:"jobs"`
}

// LoadSchedule reads and validates a schedule file. Symbols and timeframes
// are normalized and checked against the supported sets.
func LoadSchedule(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schedule file: %w", err)
	}
	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse schedule file %s: %w", path, err)
	}
	seen := map[string]bool{}
	for i := range s.Jobs {
		j := &s.Jobs[i]
		if j.Name == "" {
			j.Name = fmt.Sprintf("job-%d", i+1)
		}
		if seen[j.Name] {
			return nil, fmt.Errorf("schedule file %s: duplicate job name %q", path, j.Name)
		}
		seen[j.Name] = true
		if strings.TrimSpace(j.Cron) == "" {
			return nil, fmt.Errorf("schedule file %s: job %q has no cron expression", path, j.Name)
		}
		req := capture.NewRequest(j.Symbol, j.Timeframe)
		if err := req.Validate(); err != nil {
			return nil, fmt.Errorf("schedule file %s: job %q: %w", path, j.Name, err)
		}
		j.Symbol, j.Timeframe = req.Symbol, req.Timeframe
	}
	return &s, nil
}
