package server

import "fmt"

// Catalog variants.
const (
	CatalogFull    = "full"
	CatalogMinimal = "minimal"
)

// Tool names.
const (
	ToolStatus             = "azure_status"
	ToolListResourceGroups = "azure_list_resource_groups"
	ToolListVMs            = "azure_list_vms"
	ToolListContainerApps  = "azure_list_container_apps"
	ToolGetContainerLogs   = "azure_get_container_logs"
	ToolRestartContainer   = "azure_restart_container"
)

var (
	argResourceGroup  = Property{Type: "string", Description: "Resource group name"}
	argContainerGroup = Property{Type: "string", Description: "Container group name"}
	argContainerName  = Property{Type: "string", Description: "Container name"}
)

var minimalCatalog = []Tool{
	{
		Name:        ToolStatus,
		Description: "Check Azure MCP Gateway status",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}, Required: []string{}},
	},
}

var fullCatalog = []Tool{
	{
		Name:        ToolListResourceGroups,
		Description: "List all resource groups in the subscription",
		InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}, Required: []string{}},
	},
	{
		Name:        ToolListVMs,
		Description: "List virtual machines in a resource group",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{"resourceGroup": argResourceGroup},
			Required:   []string{"resourceGroup"},
		},
	},
	{
		Name:        ToolListContainerApps,
		Description: "List container instances in a resource group",
		InputSchema: InputSchema{
			Type:       "object",
			Properties: map[string]Property{"resourceGroup": argResourceGroup},
			Required:   []string{"resourceGroup"},
		},
	},
	{
		Name:        ToolGetContainerLogs,
		Description: "Get logs from a container instance",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"resourceGroup":  argResourceGroup,
				"containerGroup": argContainerGroup,
				"containerName":  argContainerName,
			},
			Required: []string{"resourceGroup", "containerGroup", "containerName"},
		},
	},
	{
		Name:        ToolRestartContainer,
		Description: "Restart a container group",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"resourceGroup":  argResourceGroup,
				"containerGroup": argContainerGroup,
			},
			Required: []string{"resourceGroup", "containerGroup"},
		},
	},
}

// Registry is the read-only tool catalog served by tools/list.
type Registry struct {
	variant string
	tools   []Tool
	byName  map[string]Tool
}

// NewRegistry returns the registry for a catalog variant.
func NewRegistry(variant string) (*Registry, error) {
	var tools []Tool
	switch variant {
	case CatalogFull, "":
		variant, tools = CatalogFull, fullCatalog
	case CatalogMinimal:
		tools = minimalCatalog
	default:
		return nil, fmt.Errorf("unknown tool catalog %q", variant)
	}
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		if _, dup := byName[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tool %q", t.Name)
		}
		byName[t.Name] = t
	}
	return &Registry{variant: variant, tools: tools, byName: byName}, nil
}

// List returns a deep copy of the catalog in declaration order; callers may
// modify it without affecting later calls.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	for i, t := range r.tools {
		out[i] = t.clone()
	}
	return out
}

func (t Tool) clone() Tool {
	props := make(map[string]Property, len(t.InputSchema.Properties))
	for k, v := range t.InputSchema.Properties {
		props[k] = v
	}
	t.InputSchema.Properties = props
	t.InputSchema.Required = append([]string{}, t.InputSchema.Required...)
	return t
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.byName[name]
	if !ok {
		return Tool{}, false
	}
	return t.clone(), true
}

func (r *Registry) Variant() string { return r.variant }

func (r *Registry) Len() int { return len(r.tools) }
