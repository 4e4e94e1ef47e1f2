// Package azure provides the cloud operations the gateway exposes as tools,
// backed by the Azure Resource Manager SDK.
package azure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance/v2"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
)

// Credentials identifies the service principal and subscription the gateway acts on.
type Credentials struct {
	TenantID       string
	ClientID       string
	ClientSecret   string
	SubscriptionID string
}

// Client bundles the management clients. It is immutable after New and safe
// for concurrent use.
type Client struct {
	groups     *armresources.ResourceGroupsClient
	vms        *armcompute.VirtualMachinesClient
	cgroups    *armcontainerinstance.ContainerGroupsClient
	containers *armcontainerinstance.ContainersClient

	// pollFrequency overrides the SDK default interval for long-running
	// operations when non-zero.
	pollFrequency time.Duration
}

// New builds a client from a client-secret credential. opts may be nil.
func New(creds Credentials, opts *arm.ClientOptions) (*Client, error) {
	if creds.SubscriptionID == "" {
		return nil, errors.New("azure subscription id missing")
	}
	cred, err := azidentity.NewClientSecretCredential(creds.TenantID, creds.ClientID, creds.ClientSecret, nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return NewWithCredential(creds.SubscriptionID, cred, opts)
}

// NewWithCredential builds a client around an existing token credential.
func NewWithCredential(subscriptionID string, cred azcore.TokenCredential, opts *arm.ClientOptions) (*Client, error) {
	groups, err := armresources.NewResourceGroupsClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("resource groups client: %w", err)
	}
	vms, err := armcompute.NewVirtualMachinesClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("virtual machines client: %w", err)
	}
	cgroups, err := armcontainerinstance.NewContainerGroupsClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("container groups client: %w", err)
	}
	containers, err := armcontainerinstance.NewContainersClient(subscriptionID, cred, opts)
	if err != nil {
		return nil, fmt.Errorf("containers client: %w", err)
	}
	return &Client{groups: groups, vms: vms, cgroups: cgroups, containers: containers}, nil
}

// ListResourceGroups returns every resource group in the subscription.
func (c *Client) ListResourceGroups(ctx context.Context) ([]ResourceGroup, error) {
	pages, err := drain[armresources.ResourceGroupsClientListResponse](ctx, c.groups.NewListPager(nil))
	if err != nil {
		return nil, err
	}
	out := []ResourceGroup{}
	for _, page := range pages {
		for _, g := range page.Value {
			out = append(out, normalizeResourceGroup(g))
		}
	}
	return out, nil
}

// ListVirtualMachines returns the virtual machines of one resource group.
func (c *Client) ListVirtualMachines(ctx context.Context, resourceGroup string) ([]VirtualMachine, error) {
	pages, err := drain[armcompute.VirtualMachinesClientListResponse](ctx, c.vms.NewListPager(resourceGroup, nil))
	if err != nil {
		return nil, err
	}
	out := []VirtualMachine{}
	for _, page := range pages {
		for _, vm := range page.Value {
			out = append(out, normalizeVirtualMachine(vm))
		}
	}
	return out, nil
}

// ListContainerGroups returns the container groups of one resource group.
func (c *Client) ListContainerGroups(ctx context.Context, resourceGroup string) ([]ContainerGroup, error) {
	pages, err := drain[armcontainerinstance.ContainerGroupsClientListByResourceGroupResponse](ctx, c.cgroups.NewListByResourceGroupPager(resourceGroup, nil))
	if err != nil {
		return nil, err
	}
	out := []ContainerGroup{}
	for _, page := range pages {
		for _, g := range page.Value {
			out = append(out, normalizeContainerGroup(g))
		}
	}
	return out, nil
}

// ContainerLogs returns the log tail of one container. An empty string means
// the service returned no content.
func (c *Client) ContainerLogs(ctx context.Context, resourceGroup, containerGroup, container string) (string, error) {
	resp, err := c.containers.ListLogs(ctx, resourceGroup, containerGroup, container, nil)
	if err != nil {
		return "", err
	}
	return deref(resp.Content), nil
}

// RestartContainerGroup restarts every container in the group and waits for
// the operation to complete.
func (c *Client) RestartContainerGroup(ctx context.Context, resourceGroup, containerGroup string) error {
	poller, err := c.cgroups.BeginRestart(ctx, resourceGroup, containerGroup, nil)
	if err != nil {
		return fmt.Errorf("restart %s: %w", containerGroup, err)
	}
	var opts *runtime.PollUntilDoneOptions
	if c.pollFrequency > 0 {
		opts = &runtime.PollUntilDoneOptions{Frequency: c.pollFrequency}
	}
	if _, err := poller.PollUntilDone(ctx, opts); err != nil {
		return fmt.Errorf("restart %s: %w", containerGroup, err)
	}
	return nil
}
