// Package docker starts and stops throwaway containers for integration tests.
package docker

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os/exec"
	"strings"
)

// Container represents a running container and where it is reachable.
type Container struct {
	ID      string
	Name    string
	Address string
}

// Start runs a container off the image, publishing all its ports to random
// host ports, and resolves the host address bound to the given container port.
func Start(image string, name string, port string, env []string, cmd []string) (Container, error) {
	args := []string{"run", "-d", "-P", "--name", name}
	for _, e := range env {
		args = append(args, "-e", e)
	}
	args = append(args, image)
	args = append(args, cmd...)

	out, err := exec.Command("docker", args...).Output()
	if err != nil {
		return Container{}, fmt.Errorf("run image %s: %w", image, err)
	}

	id := strings.TrimSpace(string(out))
	if len(id) < 12 {
		return Container{}, fmt.Errorf("unexpected run output %q", id)
	}
	id = id[:12]

	addr, err := boundAddress(id, port)
	if err != nil {
		return Container{}, fmt.Errorf("resolve bound address: %w", err)
	}

	return Container{
		ID:      id,
		Name:    name,
		Address: addr,
	}, nil
}

// Stop removes the container together with its volumes.
func (c Container) Stop() error {
	if err := exec.Command("docker", "rm", "-f", "-v", c.ID).Run(); err != nil {
		return fmt.Errorf("removing container %s: %w", c.ID, err)
	}
	return nil
}

// Logs returns the combined stdout and stderr of the container.
func (c Container) Logs() []byte {
	out, err := exec.Command("docker", "logs", c.ID).CombinedOutput()
	if err != nil {
		return nil
	}
	return out
}

func boundAddress(id string, port string) (string, error) {
	template := fmt.Sprintf("[{{range $k,$v := (index .NetworkSettings.Ports \"%s/tcp\")}}{{json $v}}{{end}}]", port)

	out, err := exec.Command("docker", "inspect", "-f", template, id).Output()
	if err != nil {
		return "", fmt.Errorf("inspect container %s: %w", id, err)
	}

	//inspect prints the bindings back to back, put the commas in so it parses
	data := bytes.ReplaceAll(out, []byte("}{"), []byte("},{"))

	var bindings []struct {
		HostIp   string
		HostPort string
	}
	if err := json.Unmarshal(data, &bindings); err != nil {
		return "", fmt.Errorf("unmarshal bindings: %w", err)
	}

	for _, b := range bindings {
		if b.HostIp == "::" {
			continue
		}
		host := b.HostIp
		if host == "" {
			host = "localhost"
		}
		return net.JoinHostPort(host, b.HostPort), nil
	}

	return "", fmt.Errorf("no ip/port bound for container %s", id)
}
