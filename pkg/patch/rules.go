package patch

// The two files the upstream sync must keep patched. Paths are relative to
// the repository root.
const (
	toolsetsPath = "pkg/toolsets/toolsets.go"
	modulesPath  = "pkg/mcp/modules.go"

	fusionImportPath = "github.com/containers/kubernetes-mcp-server/pkg/toolsets/fusion"
)

// toolsetsHookBlock is the Fusion registration hook appended to toolsets.go.
// It must keep compiling against upstream as-is, so it only declares new
// symbols and never touches existing ones.
const toolsetsHookBlock = `
func init() {
	// IBM Fusion extension integration point
	// This is the single hook for registering IBM Fusion tools
	// Tools are only registered if FUSION_TOOLS_ENABLED=true
	registerFusionTools()
}

// registerFusionTools is a placeholder that will be implemented by the fusion package
// This allows the fusion package to register itself without modifying upstream code
var registerFusionTools = func() {}

// SetFusionRegistration allows the fusion package to hook into the registration process
// This is the single integration point for IBM Fusion tools
func SetFusionRegistration(fn func()) {
	registerFusionTools = fn
}
`

// ToolsetsHookRule appends the Fusion registration hook to
// pkg/toolsets/toolsets.go when both hook symbols are missing.
func ToolsetsHookRule() Rule {
	return Rule{
		Name:            "toolsets-hook",
		TargetPath:      toolsetsPath,
		PresenceMarkers: []string{"registerFusionTools", "SetFusionRegistration"},
		Strategy:        AppendBlock{Block: toolsetsHookBlock},
	}
}

// ModulesImportRule inserts the fusion toolset's blank import into the import
// block of pkg/mcp/modules.go, between the core and helm toolset imports so
// the block keeps its alphabetical order.
func ModulesImportRule() Rule {
	return Rule{
		Name:            "modules-import",
		TargetPath:      modulesPath,
		PresenceMarkers: []string{"pkg/toolsets/fusion"},
		Strategy: InsertLine{
			OpenMarker:  "import (",
			CloseMarker: ")",
			After:       "pkg/toolsets/core",
			Before:      "pkg/toolsets/helm",
			Line:        "\t_ \"" + fusionImportPath + "\"",
		},
	}
}

// DefaultRules returns the rules in application order.
func DefaultRules() []Rule {
	return []Rule{ToolsetsHookRule(), ModulesImportRule()}
}
