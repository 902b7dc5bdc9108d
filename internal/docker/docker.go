// Package docker provides Docker container lifecycle management using the Docker CLI.
package docker

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ContainerConfig describes a database container.
type ContainerConfig struct {
	Name  string
	Image string
	// Ports are docker -p mappings, e.g. "7687:7687".
	Ports []string
	// Env are KEY=VALUE pairs passed with -e.
	Env []string
	// ReadyLog is a line fragment the container logs once it accepts connections.
	ReadyLog string
}

// Neo4jContainer returns the container config for a local Neo4j.
func Neo4jContainer(name, image, username, password string) *ContainerConfig {
	return &ContainerConfig{
		Name:     name,
		Image:    image,
		Ports:    []string{"7687:7687", "7474:7474"},
		Env:      []string{fmt.Sprintf("NEO4J_AUTH=%s/%s", username, password)},
		ReadyLog: "Started.",
	}
}

// PostgresContainer returns the container config for a local PostgreSQL.
func PostgresContainer(name, image, port, user, password, database string) *ContainerConfig {
	return &ContainerConfig{
		Name:  name,
		Image: image,
		Ports: []string{port + ":5432"},
		Env: []string{
			"POSTGRES_USER=" + user,
			"POSTGRES_PASSWORD=" + password,
			"POSTGRES_DB=" + database,
		},
		ReadyLog: "database system is ready to accept connections",
	}
}

// Validate checks that all required fields are set.
func (c *ContainerConfig) Validate() error {
	var missing []string

	if c.Name == "" {
		missing = append(missing, "Name")
	}
	if c.Image == "" {
		missing = append(missing, "Image")
	}
	if len(c.Ports) == 0 {
		missing = append(missing, "Ports")
	}
	for _, kv := range c.Env {
		if k, v, ok := strings.Cut(kv, "="); !ok || k == "" || v == "" || strings.HasSuffix(v, "/") {
			missing = append(missing, "Env "+k)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	return nil
}

// runArgs builds the docker run arguments for the container.
func (c *ContainerConfig) runArgs() []string {
	args := []string{"run", "-d", "--name", c.Name}
	for _, p := range c.Ports {
		args = append(args, "-p", p)
	}
	for _, e := range c.Env {
		args = append(args, "-e", e)
	}
	return append(args, c.Image)
}

// IsDockerAvailable checks if Docker is installed and accessible.
func IsDockerAvailable() bool {
	cmd := exec.Command("docker", "version")
	return cmd.Run() == nil
}

// ContainerExists checks if a container with the given name exists.
func ContainerExists(name string) (bool, error) {
	cmd := exec.Command("docker", "ps", "-a", "--filter", fmt.Sprintf("name=^%s$", name), "--format", "{{.Names}}")
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("failed to check container existence: %w", err)
	}

	return strings.TrimSpace(string(output)) == name, nil
}

// IsContainerRunning checks if a container is currently running.
func IsContainerRunning(name string) (bool, error) {
	cmd := exec.Command("docker", "ps", "--filter", fmt.Sprintf("name=^%s$", name), "--format", "{{.Names}}")
	output, err := cmd.Output()
	if err != nil {
		return false, fmt.Errorf("failed to check container status: %w", err)
	}

	return strings.TrimSpace(string(output)) == name, nil
}

// CreateContainer creates and starts a new container.
func CreateContainer(config *ContainerConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid container config: %w", err)
	}
	return run("create container", config.runArgs()...)
}

// StartContainer starts an existing container.
func StartContainer(name string) error {
	return run("start container", "start", name)
}

// StopContainer stops a running container.
func StopContainer(name string) error {
	return run("stop container", "stop", name)
}

// RemoveContainer removes a container (must be stopped first).
func RemoveContainer(name string) error {
	return run("remove container", "rm", name)
}

func run(what string, args ...string) error {
	cmd := exec.Command("docker", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to %s: %w (stderr: %s)", what, err, stderr.String())
	}
	return nil
}

// EnsureContainer ensures that the container is running.
// If the container doesn't exist, it creates it.
// If the container exists but is stopped, it starts it.
// Returns true if the container was created, false if it already existed.
func EnsureContainer(config *ContainerConfig) (created bool, err error) {
	if !IsDockerAvailable() {
		return false, fmt.Errorf("Docker is not available. Please install Docker and ensure it is running")
	}

	if err := config.Validate(); err != nil {
		return false, fmt.Errorf("invalid container config: %w", err)
	}

	exists, err := ContainerExists(config.Name)
	if err != nil {
		return false, err
	}

	if !exists {
		if err := CreateContainer(config); err != nil {
			return false, err
		}
		time.Sleep(2 * time.Second)
		return true, nil
	}

	running, err := IsContainerRunning(config.Name)
	if err != nil {
		return false, err
	}

	if !running {
		if err := StartContainer(config.Name); err != nil {
			return false, err
		}
		time.Sleep(2 * time.Second)
	}

	return false, nil
}

// WaitForContainer waits until the container logs its ready line.
func WaitForContainer(config *ContainerConfig, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		running, err := IsContainerRunning(config.Name)
		if err != nil {
			return err
		}

		if !running {
			return fmt.Errorf("container %s is not running", config.Name)
		}

		// Postgres writes its ready line to stderr.
		cmd := exec.Command("docker", "logs", config.Name)
		output, err := cmd.CombinedOutput()
		if err == nil && strings.Contains(string(output), config.ReadyLog) {
			return nil
		}

		time.Sleep(1 * time.Second)
	}

	return fmt.Errorf("timeout waiting for container %s to be ready", config.Name)
}
