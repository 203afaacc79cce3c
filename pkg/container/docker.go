package container

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/docker/docker/api/types"
	dockercontainer "github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"
)

const (
	mongoImage     = "mongo:latest"
	mongoPort      = "27017/tcp"
	containerLabel = "mongohoneypot-upstream"
)

// dockerAPI is the slice of client.APIClient that DockerHandle actually
// calls. Narrowing to just these methods (rather than embedding the full
// ~130-method client.APIClient, as the teacher's Impl does) keeps a test
// double small; *client.Client satisfies it without any adapter.
type dockerAPI interface {
	ImageList(ctx context.Context, opts image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, ref string, opts image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *dockercontainer.Config, hostConfig *dockercontainer.HostConfig, networkingConfig *network.NetworkingConfig, platform *v1.Platform, containerName string) (dockercontainer.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, opts dockercontainer.StartOptions) error
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerKill(ctx context.Context, containerID, signal string) error
	ContainerStop(ctx context.Context, containerID string, opts dockercontainer.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, opts types.ContainerRemoveOptions) error
}

// DockerHandle runs the sandboxed upstream as a single `mongo:latest`
// container, publishing its 27017 to a random host port on the first start
// and to that same host port on every later start.
type DockerHandle struct {
	cli         dockerAPI
	logger      *zap.Logger
	containerID string
	hostPort    int
}

// NewDockerHandle builds a Handle backed by the local Docker daemon
// configured via the standard DOCKER_HOST environment.
func NewDockerHandle(logger *zap.Logger) (*DockerHandle, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("container: docker client: %w", err)
	}
	return &DockerHandle{cli: cli, logger: logger}, nil
}

// Start pulls mongoImage if it is not already present, runs it detached
// with 27017 published to a host port (random on the first start, the
// previously published port afterwards), and returns that port.
func (d *DockerHandle) Start(ctx context.Context) (int, error) {
	if err := d.pullIfMissing(ctx); err != nil {
		return 0, err
	}

	hostPort := ""
	if d.hostPort != 0 {
		hostPort = strconv.Itoa(d.hostPort)
	}

	config := &dockercontainer.Config{
		Image:        mongoImage,
		ExposedPorts: nat.PortSet{mongoPort: struct{}{}},
		Labels:       map[string]string{"app": containerLabel},
	}
	hostConfig := &dockercontainer.HostConfig{
		PortBindings: nat.PortMap{
			mongoPort: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: hostPort}},
		},
		AutoRemove: false,
	}

	created, err := d.cli.ContainerCreate(ctx, config, hostConfig, nil, nil, "")
	if err != nil {
		return 0, fmt.Errorf("container: create: %w", err)
	}
	d.containerID = created.ID

	if err := d.cli.ContainerStart(ctx, d.containerID, dockercontainer.StartOptions{}); err != nil {
		return 0, fmt.Errorf("container: start: %w", err)
	}

	port, err := d.publishedPort(ctx)
	if err != nil {
		return 0, err
	}
	d.hostPort = port
	d.logger.Info("upstream container started", zap.String("id", d.containerID), zap.Int("port", port))
	return port, nil
}

// Restart kills the running container and starts a fresh one in its place,
// mirroring the honeypot prototype's kill-then-relaunch recovery.
func (d *DockerHandle) Restart(ctx context.Context) error {
	if d.containerID != "" {
		if err := d.cli.ContainerKill(ctx, d.containerID, "SIGKILL"); err != nil {
			d.logger.Warn("failed to kill upstream container before restart", zap.Error(err))
		}
		if err := d.cli.ContainerRemove(ctx, d.containerID, types.ContainerRemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
			d.logger.Warn("failed to remove upstream container before restart", zap.Error(err))
		}
		d.containerID = ""
	}
	_, err := d.Start(ctx)
	return err
}

// Teardown stops and removes the upstream container.
func (d *DockerHandle) Teardown(ctx context.Context) error {
	if d.containerID == "" {
		return nil
	}
	if err := d.cli.ContainerStop(ctx, d.containerID, dockercontainer.StopOptions{}); err != nil {
		return fmt.Errorf("container: stop: %w", err)
	}
	if err := d.cli.ContainerRemove(ctx, d.containerID, types.ContainerRemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return fmt.Errorf("container: remove: %w", err)
	}
	return nil
}

func (d *DockerHandle) pullIfMissing(ctx context.Context) error {
	images, err := d.cli.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", mongoImage)),
	})
	if err != nil {
		return fmt.Errorf("container: list images: %w", err)
	}
	if len(images) > 0 {
		return nil
	}

	d.logger.Info("pulling upstream image", zap.String("image", mongoImage))
	reader, err := d.cli.ImagePull(ctx, mongoImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("container: pull %s: %w", mongoImage, err)
	}
	defer reader.Close()
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("container: pull %s: %w", mongoImage, err)
	}
	return nil
}

// publishedPort inspects the container and returns the host port bound to
// mongoPort.
func (d *DockerHandle) publishedPort(ctx context.Context) (int, error) {
	info, err := d.cli.ContainerInspect(ctx, d.containerID)
	if err != nil {
		return 0, fmt.Errorf("container: inspect: %w", err)
	}
	bindings, ok := info.NetworkSettings.Ports[nat.Port(mongoPort)]
	if !ok || len(bindings) == 0 {
		return 0, fmt.Errorf("container: %s not published", mongoPort)
	}
	port, err := strconv.Atoi(bindings[0].HostPort)
	if err != nil {
		return 0, fmt.Errorf("container: malformed host port %q: %w", bindings[0].HostPort, err)
	}
	return port, nil
}
