package rules

import "embed"

// defaultRules contains the rule files shipped with the binary. A
// deployment can override them with WithRulesDir.
//
//go:embed assets/*.yaml
var defaultRules embed.FS
