package azure

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	azfake "github.com/Azure/azure-sdk-for-go/sdk/azcore/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	computefake "github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance/v2"
	acifake "github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/containerinstance/armcontainerinstance/v2/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"
	resfake "github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources/fake"
)

// fakeServers holds one fake server per resource provider the client talks to.
type fakeServers struct {
	resources  resfake.ServerFactory
	compute    computefake.ServerFactory
	containers acifake.ServerFactory
}

// providerTransport sends each request to the fake of the resource provider
// named in its path.
type providerTransport struct {
	resources, compute, containers policy.Transporter
}

func (p providerTransport) Do(req *http.Request) (*http.Response, error) {
	path := strings.ToLower(req.URL.Path)
	switch {
	case strings.Contains(path, "/providers/microsoft.compute/"):
		return p.compute.Do(req)
	case strings.Contains(path, "/providers/microsoft.containerinstance/"):
		return p.containers.Do(req)
	default:
		return p.resources.Do(req)
	}
}

func newFakeClient(t *testing.T, srv *fakeServers) *Client {
	t.Helper()
	opts := &arm.ClientOptions{ClientOptions: azcore.ClientOptions{
		Transport: providerTransport{
			resources:  resfake.NewServerFactoryTransport(&srv.resources),
			compute:    computefake.NewServerFactoryTransport(&srv.compute),
			containers: acifake.NewServerFactoryTransport(&srv.containers),
		},
		Retry: policy.RetryOptions{MaxRetries: -1},
	}}
	c, err := NewWithCredential("00000000-0000-0000-0000-000000000000", &azfake.TokenCredential{}, opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	c.pollFrequency = time.Second
	return c
}

func TestListResourceGroupsDrainsPagesInOrder(t *testing.T) {
	srv := &fakeServers{}
	srv.resources.ResourceGroupsServer.NewListPager = func(_ *armresources.ResourceGroupsClientListOptions) (resp azfake.PagerResponder[armresources.ResourceGroupsClientListResponse]) {
		resp.AddPage(http.StatusOK, armresources.ResourceGroupsClientListResponse{
			ResourceGroupListResult: armresources.ResourceGroupListResult{Value: []*armresources.ResourceGroup{
				{Name: to.Ptr("rg-a"), Location: to.Ptr("westeurope"), ID: to.Ptr("/subscriptions/s/resourceGroups/rg-a")},
				{Name: to.Ptr("rg-b"), Location: to.Ptr("westeurope"), ID: to.Ptr("/subscriptions/s/resourceGroups/rg-b")},
			}},
		}, nil)
		resp.AddPage(http.StatusOK, armresources.ResourceGroupsClientListResponse{
			ResourceGroupListResult: armresources.ResourceGroupListResult{Value: []*armresources.ResourceGroup{
				{Name: to.Ptr("rg-c"), Location: to.Ptr("eastus")},
			}},
		}, nil)
		return
	}
	got, err := newFakeClient(t, srv).ListResourceGroups(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"rg-a", "rg-b", "rg-c"}
	if len(got) != len(want) {
		t.Fatalf("expected %d groups, got %+v", len(want), got)
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("group %d: expected %s, got %s", i, name, got[i].Name)
		}
	}
	if got[0].ID != "/subscriptions/s/resourceGroups/rg-a" || got[2].Location != "eastus" {
		t.Fatalf("unexpected fields: %+v", got)
	}
}

func TestListVirtualMachinesFailsOnSecondPage(t *testing.T) {
	srv := &fakeServers{}
	srv.compute.VirtualMachinesServer.NewListPager = func(resourceGroupName string, _ *armcompute.VirtualMachinesClientListOptions) (resp azfake.PagerResponder[armcompute.VirtualMachinesClientListResponse]) {
		if resourceGroupName != "rg1" {
			t.Errorf("expected rg1, got %q", resourceGroupName)
		}
		resp.AddPage(http.StatusOK, armcompute.VirtualMachinesClientListResponse{
			VirtualMachineListResult: armcompute.VirtualMachineListResult{Value: []*armcompute.VirtualMachine{
				{Name: to.Ptr("vm1"), Location: to.Ptr("westeurope")},
			}},
		}, nil)
		resp.AddError(errors.New("connection reset by peer"))
		return
	}
	got, err := newFakeClient(t, srv).ListVirtualMachines(context.Background(), "rg1")
	if err == nil {
		t.Fatal("expected error")
	}
	if got != nil {
		t.Fatalf("expected no partial listing, got %+v", got)
	}
	if !strings.Contains(err.Error(), "page 2") || !strings.Contains(err.Error(), "connection reset by peer") {
		t.Fatalf("unexpected error %q", err.Error())
	}
}

func TestListContainerGroups(t *testing.T) {
	srv := &fakeServers{}
	srv.containers.ContainerGroupsServer.NewListByResourceGroupPager = func(resourceGroupName string, _ *armcontainerinstance.ContainerGroupsClientListByResourceGroupOptions) (resp azfake.PagerResponder[armcontainerinstance.ContainerGroupsClientListByResourceGroupResponse]) {
		resp.AddPage(http.StatusOK, armcontainerinstance.ContainerGroupsClientListByResourceGroupResponse{
			ContainerGroupListResult: armcontainerinstance.ContainerGroupListResult{Value: []*armcontainerinstance.ContainerGroup{
				{
					Name:     to.Ptr("cg1"),
					Location: to.Ptr("eastus"),
					Properties: &armcontainerinstance.ContainerGroupPropertiesProperties{
						ProvisioningState: to.Ptr("Succeeded"),
						Containers: []*armcontainerinstance.Container{
							{Name: to.Ptr("web"), Properties: &armcontainerinstance.ContainerProperties{Image: to.Ptr("nginx:1.27")}},
						},
					},
				},
			}},
		}, nil)
		return
	}
	got, err := newFakeClient(t, srv).ListContainerGroups(context.Background(), "rg1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Name != "cg1" || len(got[0].Containers) != 1 || got[0].Containers[0].Image != "nginx:1.27" {
		t.Fatalf("unexpected groups %+v", got)
	}
}

func TestContainerLogs(t *testing.T) {
	var content *string
	srv := &fakeServers{}
	srv.containers.ContainersServer.ListLogs = func(_ context.Context, resourceGroupName, containerGroupName, containerName string, _ *armcontainerinstance.ContainersClientListLogsOptions) (resp azfake.Responder[armcontainerinstance.ContainersClientListLogsResponse], errResp azfake.ErrorResponder) {
		if resourceGroupName != "rg1" || containerGroupName != "cg1" || containerName != "web" {
			errResp.SetResponseError(http.StatusNotFound, "ResourceNotFound")
			return
		}
		resp.SetResponse(http.StatusOK, armcontainerinstance.ContainersClientListLogsResponse{
			Logs: armcontainerinstance.Logs{Content: content},
		}, nil)
		return
	}
	c := newFakeClient(t, srv)

	logs, err := c.ContainerLogs(context.Background(), "rg1", "cg1", "web")
	if err != nil || logs != "" {
		t.Fatalf("expected empty logs for nil content, got %q %v", logs, err)
	}

	content = to.Ptr("listening on :80\n")
	logs, err = c.ContainerLogs(context.Background(), "rg1", "cg1", "web")
	if err != nil || logs != "listening on :80\n" {
		t.Fatalf("unexpected logs %q %v", logs, err)
	}

	if _, err := c.ContainerLogs(context.Background(), "rg1", "cg1", "worker"); err == nil || !strings.Contains(err.Error(), "ResourceNotFound") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRestartContainerGroup(t *testing.T) {
	srv := &fakeServers{}
	var restarted []string
	srv.containers.ContainerGroupsServer.BeginRestart = func(_ context.Context, resourceGroupName, containerGroupName string, _ *armcontainerinstance.ContainerGroupsClientBeginRestartOptions) (resp azfake.PollerResponder[armcontainerinstance.ContainerGroupsClientRestartResponse], errResp azfake.ErrorResponder) {
		switch containerGroupName {
		case "missing":
			errResp.SetResponseError(http.StatusNotFound, "ResourceNotFound")
		case "stuck":
			resp.SetTerminalError(http.StatusConflict, "ContainerGroupTransitioning")
		default:
			restarted = append(restarted, resourceGroupName+"/"+containerGroupName)
			resp.SetTerminalResponse(http.StatusNoContent, armcontainerinstance.ContainerGroupsClientRestartResponse{}, nil)
		}
		return
	}
	c := newFakeClient(t, srv)

	if err := c.RestartContainerGroup(context.Background(), "rg1", "cg1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(restarted) != 1 || restarted[0] != "rg1/cg1" {
		t.Fatalf("unexpected restarts %v", restarted)
	}

	err := c.RestartContainerGroup(context.Background(), "rg1", "missing")
	if err == nil || !strings.HasPrefix(err.Error(), "restart missing: ") || !strings.Contains(err.Error(), "ResourceNotFound") {
		t.Fatalf("expected wrapped begin error, got %v", err)
	}
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) || respErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected response error to stay inspectable, got %v", err)
	}

	err = c.RestartContainerGroup(context.Background(), "rg1", "stuck")
	if err == nil || !strings.HasPrefix(err.Error(), "restart stuck: ") || !strings.Contains(err.Error(), "ContainerGroupTransitioning") {
		t.Fatalf("expected wrapped polling error, got %v", err)
	}
}
