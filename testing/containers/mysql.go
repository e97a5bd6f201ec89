//go:build integration

package containers

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/gaborage/qdb/config"
	"github.com/gaborage/qdb/database/types"
	qdbtesting "github.com/gaborage/qdb/testing"
)

// MySQLContainerConfig holds configuration for the MySQL test container.
type MySQLContainerConfig struct {
	// ImageTag specifies the MySQL version (default: "8.4")
	ImageTag string
	Username string
	Password string
	Database string
	// Scripts are SQL files run once the server is up.
	Scripts []string
	// StartupTimeout bounds container start (default: 90 seconds)
	StartupTimeout time.Duration
}

// DefaultMySQLConfig returns the configuration used when none is given.
func DefaultMySQLConfig() *MySQLContainerConfig {
	return &MySQLContainerConfig{
		ImageTag:       "8.4",
		Username:       qdbtesting.TestUsername,
		Password:       qdbtesting.TestPasswordDefault,
		Database:       qdbtesting.TestDatabaseName,
		StartupTimeout: 90 * time.Second,
	}
}

// MySQLContainer is a running MySQL server.
type MySQLContainer struct {
	container *tcmysql.MySQLContainer
	cfg       *MySQLContainerConfig
}

// StartMySQLContainer starts MySQL, skipping the test when Docker is unavailable.
func StartMySQLContainer(ctx context.Context, t *testing.T, cfg *MySQLContainerConfig) (*MySQLContainer, error) {
	t.Helper()

	if cfg == nil {
		cfg = DefaultMySQLConfig()
	}
	if !isDockerAvailable(ctx) {
		t.Skip("Docker is not available - skipping integration test")
		return nil, nil
	}

	startCtx, cancel := context.WithTimeout(ctx, cfg.StartupTimeout)
	defer cancel()

	opts := []testcontainers.ContainerCustomizer{
		tcmysql.WithDatabase(cfg.Database),
		tcmysql.WithUsername(cfg.Username),
		tcmysql.WithPassword(cfg.Password),
	}
	if len(cfg.Scripts) > 0 {
		opts = append(opts, tcmysql.WithScripts(cfg.Scripts...))
	}

	c, err := tcmysql.Run(startCtx, fmt.Sprintf("mysql:%s", cfg.ImageTag), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start MySQL container: %w", err)
	}

	t.Logf("MySQL container started (database %s)", cfg.Database)
	return &MySQLContainer{container: c, cfg: cfg}, nil
}

// MustStartMySQLContainer is StartMySQLContainer that fails the test on error
// and terminates the container when the test ends.
func MustStartMySQLContainer(ctx context.Context, t *testing.T, cfg *MySQLContainerConfig) *MySQLContainer {
	t.Helper()

	c, err := StartMySQLContainer(ctx, t, cfg)
	if err != nil {
		t.Fatalf("Failed to start MySQL container: %v", err)
	}
	t.Cleanup(func() {
		if err := c.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate MySQL container: %v", err)
		}
	})
	return c
}

// DatabaseConfig returns a config that reaches the container through its mapped port.
func (m *MySQLContainer) DatabaseConfig(ctx context.Context) (*config.DatabaseConfig, error) {
	host, err := m.container.Host(ctx)
	if err != nil {
		return nil, err
	}
	port, err := m.container.MappedPort(ctx, "3306/tcp")
	if err != nil {
		return nil, err
	}
	p, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, err
	}

	return &config.DatabaseConfig{
		Type:     types.MySQL,
		Host:     host,
		Port:     p,
		Database: m.cfg.Database,
		Username: m.cfg.Username,
		Password: m.cfg.Password,
	}, nil
}

// ConnectionString returns a go-sql-driver DSN for the container.
func (m *MySQLContainer) ConnectionString(ctx context.Context) (string, error) {
	return m.container.ConnectionString(ctx, "parseTime=true")
}

// Terminate stops and removes the container.
func (m *MySQLContainer) Terminate(ctx context.Context) error {
	if m.container == nil {
		return nil
	}
	return m.container.Terminate(ctx)
}
