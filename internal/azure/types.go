package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// ResourceGroup is the listed view of a resource group.
type ResourceGroup struct {
	Name     string `json:"name"`
	Location string `json:"location"`
	ID       string `json:"id"`
}

// VirtualMachine is the listed view of a virtual machine.
type VirtualMachine struct {
	Name              string `json:"name"`
	Location          string `json:"location"`
	VMSize            string `json:"vmSize,omitempty"`
	ProvisioningState string `json:"provisioningState,omitempty"`
}

// ContainerGroup is the listed view of a container instance group.
type ContainerGroup struct {
	Name              string      `json:"name"`
	Location          string      `json:"location"`
	ProvisioningState string      `json:"provisioningState,omitempty"`
	Containers        []Container `json:"containers,omitempty"`
}

// Container is one container inside a ContainerGroup.
type Container struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

func normalizeResourceGroup(g *armresources.ResourceGroup) ResourceGroup {
	if g == nil {
		return ResourceGroup{}
	}
	return ResourceGroup{Name: deref(g.Name), Location: deref(g.Location), ID: deref(g.ID)}
}

func normalizeVirtualMachine(vm *armcompute.VirtualMachine) VirtualMachine {
	if vm == nil {
		return VirtualMachine{}
	}
	out := VirtualMachine{Name: deref(vm.Name), Location: deref(vm.Location)}
	if p := vm.Properties; p != nil {
		out.ProvisioningState = deref(p.ProvisioningState)
		if p.HardwareProfile != nil {
			out.VMSize = string(deref(p.HardwareProfile.VMSize))
		}
	}
	return out
}

func normalizeContainerGroup(g *armcontainerinstance.ContainerGroup) ContainerGroup {
	if g == nil {
		return ContainerGroup{}
	}
	out := ContainerGroup{Name: deref(g.Name), Location: deref(g.Location)}
	if p := g.Properties; p != nil {
		out.ProvisioningState = deref(p.ProvisioningState)
		for _, c := range p.Containers {
			if c == nil {
				continue
			}
			ct := Container{Name: deref(c.Name)}
			if c.Properties != nil {
				ct.Image = deref(c.Properties.Image)
			}
			out.Containers = append(out.Containers, ct)
		}
	}
	return out
}
