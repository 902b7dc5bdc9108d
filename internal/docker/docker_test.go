package docker

import (
	"reflect"
	"testing"
)

func TestDockerAvailable(t *testing.T) {
	if !IsDockerAvailable() {
		t.Skip("Docker is not available on this system")
	}
}

func TestContainerExists(t *testing.T) {
	if !IsDockerAvailable() {
		t.Skip("Docker not available")
	}

	exists, err := ContainerExists("this-container-should-not-exist-12345")
	if err != nil {
		t.Fatalf("ContainerExists() error = %v", err)
	}
	if exists {
		t.Error("ContainerExists() should return false for non-existent container")
	}

	running, err := IsContainerRunning("this-container-should-not-exist-12345")
	if err != nil {
		t.Fatalf("IsContainerRunning() error = %v", err)
	}
	if running {
		t.Error("IsContainerRunning() should return false for non-existent container")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *ContainerConfig
		wantErr bool
	}{
		{
			name:    "neo4j",
			config:  Neo4jContainer("test-neo4j", "neo4j:5.25-community", "neo4j", "testpass"),
			wantErr: false,
		},
		{
			name:    "postgres",
			config:  PostgresContainer("test-pg", "postgres:16-alpine", "5432", "trailmap", "testpass", "trailmap"),
			wantErr: false,
		},
		{
			name:    "neo4j without password",
			config:  Neo4jContainer("test-neo4j", "neo4j:5.25-community", "neo4j", ""),
			wantErr: true,
		},
		{
			name:    "postgres without password",
			config:  PostgresContainer("test-pg", "postgres:16-alpine", "5432", "trailmap", "", "trailmap"),
			wantErr: true,
		},
		{
			name:    "missing name",
			config:  Neo4jContainer("", "neo4j:5.25-community", "neo4j", "testpass"),
			wantErr: true,
		},
		{
			name:    "missing image",
			config:  &ContainerConfig{Name: "x", Ports: []string{"1:1"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunArgs(t *testing.T) {
	got := PostgresContainer("pg", "postgres:16-alpine", "6543", "u", "p", "d").runArgs()
	want := []string{
		"run", "-d", "--name", "pg",
		"-p", "6543:5432",
		"-e", "POSTGRES_USER=u", "-e", "POSTGRES_PASSWORD=p", "-e", "POSTGRES_DB=d",
		"postgres:16-alpine",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("runArgs() =\n%v\nwant\n%v", got, want)
	}
}

func TestEnsureContainer(t *testing.T) {
	if !IsDockerAvailable() {
		t.Skip("Docker not available")
	}

	config := Neo4jContainer("test-trailmap-neo4j", "neo4j:5.25-community", "neo4j", "testpassword")
	config.Ports = []string{"17687:7687"}

	defer func() {
		StopContainer(config.Name)
		RemoveContainer(config.Name)
	}()

	created, err := EnsureContainer(config)
	if err != nil {
		t.Fatalf("EnsureContainer() error = %v", err)
	}
	if !created {
		t.Error("EnsureContainer() should return true when creating a new container")
	}

	created, err = EnsureContainer(config)
	if err != nil {
		t.Fatalf("EnsureContainer() error on second call = %v", err)
	}
	if created {
		t.Error("EnsureContainer() should return false when container already exists")
	}

	if err := StopContainer(config.Name); err != nil {
		t.Fatalf("Failed to stop container: %v", err)
	}

	created, err = EnsureContainer(config)
	if err != nil {
		t.Fatalf("EnsureContainer() error on third call = %v", err)
	}
	if created {
		t.Error("EnsureContainer() should return false when starting existing container")
	}

	running, err := IsContainerRunning(config.Name)
	if err != nil {
		t.Fatalf("Failed to check if container is running: %v", err)
	}
	if !running {
		t.Error("Container should be running after EnsureContainer()")
	}
}
