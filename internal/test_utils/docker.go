package testutils

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

const (
	postgresImage = "postgres"
	postgresTag   = "15.4"
	natsImage     = "nats"
	natsTag       = "2.10.10"

	dbName     = "txlifecycle_test"
	dbUsername = "txlifecycle"
	dbPassword = "txlifecycle"
)

type container struct {
	repository    string
	tag           string
	name          string
	containerPort string
	hostPort      string
	env           []string
	cmd           []string
	tmpfs         map[string]string
}

// run starts c and returns the host port the container port is published on.
func run(pool *dockertest.Pool, c container) (*dockertest.Resource, string, error) {
	opts := dockertest.RunOptions{
		Repository:   c.repository,
		Tag:          c.tag,
		Name:         c.name,
		Env:          c.env,
		Cmd:          c.cmd,
		ExposedPorts: []string{c.containerPort},
		PortBindings: map[docker.Port][]docker.PortBinding{
			docker.Port(c.containerPort): {
				{HostIP: "0.0.0.0", HostPort: c.hostPort},
			},
		},
	}

	resource, err := pool.RunWithOptions(&opts, func(config *docker.HostConfig) {
		// stopped containers remove themselves
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
		if c.tmpfs != nil {
			config.Tmpfs = c.tmpfs
		}
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create %s resource: %v", c.repository, err)
	}

	return resource, resource.GetPort(c.containerPort + "/tcp"), nil
}

func purgeOnError(resource *dockertest.Resource, err error) error {
	pErr := resource.Close()
	if pErr != nil {
		return errors.Join(err, fmt.Errorf("failed to purge resource: %v", pErr))
	}

	return err
}

// RunAndMigratePostgresql starts a postgres container and applies the migrations found in migrationsPath.
func RunAndMigratePostgresql(pool *dockertest.Pool, port, migrationTable, migrationsPath string) (*dockertest.Resource, string, error) {
	resource, dbInfo, err := RunPostgresql(pool, port)
	if err != nil {
		return nil, "", fmt.Errorf("failed run postgresql: %v", err)
	}

	err = MigrateUp(migrationTable, migrationsPath, dbInfo)
	if err != nil {
		return nil, "", fmt.Errorf("failed to run migration: %v", purgeOnError(resource, err))
	}

	return resource, dbInfo, nil
}

func RunPostgresql(pool *dockertest.Pool, port string) (*dockertest.Resource, string, error) {
	resource, hostPort, err := run(pool, container{
		repository:    postgresImage,
		tag:           postgresTag,
		containerPort: "5432",
		hostPort:      port,
		env: []string{
			fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
			fmt.Sprintf("POSTGRES_USER=%s", dbUsername),
			fmt.Sprintf("POSTGRES_DB=%s", dbName),
			"listen_addresses = '*'",
		},
		tmpfs: map[string]string{"/var/lib/postgresql/data": ""},
	})
	if err != nil {
		return nil, "", err
	}

	dbInfo := fmt.Sprintf("host=localhost port=%s user=%s password=%s dbname=%s sslmode=disable", hostPort, dbUsername, dbPassword, dbName)

	return resource, dbInfo, nil
}

// RunNats starts a nats server and waits until it accepts connections.
func RunNats(pool *dockertest.Pool, port, name string, cmds ...string) (*dockertest.Resource, string, error) {
	resource, hostPort, err := run(pool, container{
		repository:    natsImage,
		tag:           natsTag,
		name:          name,
		containerPort: "4222",
		hostPort:      port,
		cmd:           cmds,
	})
	if err != nil {
		return nil, "", err
	}

	natsURL := fmt.Sprintf("nats://localhost:%s", hostPort)

	err = Retry(func() error {
		nc, err := nats.Connect(natsURL)
		if err != nil {
			return err
		}
		nc.Close()
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("nats server not ready: %v", purgeOnError(resource, err))
	}

	return resource, natsURL, nil
}
