package host_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/valkey-io/valkey-go"

	"github.com/conference-manager/meeting-publisher/internal/config"
	"github.com/conference-manager/meeting-publisher/internal/domain/entity"
	"github.com/conference-manager/meeting-publisher/internal/domain/repo/host"
	"github.com/conference-manager/meeting-publisher/internal/factory"
	"github.com/conference-manager/meeting-publisher/pkg/pipeline"
)

// Helper

func startValkey(t *testing.T) testcontainers.Container {
	req := testcontainers.ContainerRequest{
		Image:        "quay.io/sclorg/valkey-7-c10s:bf91acf0827dc5db216164aafe3d34beb245dcec",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections tcp"),
	}
	ret, err := testcontainers.GenericContainer(context.Background(), testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})

	testcontainers.CleanupContainer(t, ret)

	require.NoError(t, err, "failed to start valkey instance")

	return ret
}

func createValkeyClient(t *testing.T, container testcontainers.Container) valkey.Client {
	endpoint, err := container.Endpoint(context.Background(), "")
	require.NoError(t, err, "failed to get valkey endpoint")

	ret, closeFunc, err := factory.CreateValkeyClient(context.Background(), config.Valkey{URL: endpoint})
	require.NoError(t, err, "failed to create valkey client")

	t.Cleanup(func() { _ = closeFunc(context.Background()) })

	return ret
}

// Test suite definition

type ValkeyRosterIntegrationTestSuite struct {
	suite.Suite

	client    valkey.Client
	repo      host.ValkeyRepo
	container testcontainers.Container
}

func (s *ValkeyRosterIntegrationTestSuite) SetupSuite() {
	t := s.T()

	s.container = startValkey(t)
	s.client = createValkeyClient(t, s.container)
	s.repo = host.NewValkeyRepo(s.client, "")
}

func (s *ValkeyRosterIntegrationTestSuite) TearDownTest() {
	ctx := context.Background()
	command := s.client.B().Flushall().Build()

	err := s.client.Do(ctx, command).Error()
	require.NoError(s.T(), err, "failed to clean valkey")
}

// Run test

func TestValkeyRosterIntegrationTestSuite(t *testing.T) {
	t.Parallel()

	suite.Run(t, new(ValkeyRosterIntegrationTestSuite))
}

// Test

func (s *ValkeyRosterIntegrationTestSuite) TestAddAndRead() {
	ctx := context.Background()
	t := s.T()

	err := s.repo.Add(ctx, "a@example.com", "b@example.com")
	require.NoError(t, err, "failed to add hosts")

	err = s.repo.Add(ctx, "c@example.com")
	require.NoError(t, err, "failed to add hosts")

	res, err := s.repo.GetAll(ctx)
	require.NoError(t, err, "failed to get roster")

	assert.Equal(t, []entity.HostID{"a@example.com", "b@example.com", "c@example.com"}, res, "roster order is not kept")
}

func (s *ValkeyRosterIntegrationTestSuite) TestEmptyRoster() {
	ctx := context.Background()
	t := s.T()

	res, err := s.repo.GetAll(ctx)
	require.NoError(t, err, "failed to get roster")

	require.Len(t, res, 0, "unexpected number of hosts: %d", len(res))
}

func (s *ValkeyRosterIntegrationTestSuite) TestWrongType() {
	ctx := context.Background()
	t := s.T()

	command := s.client.B().Set().Key(host.DefaultKey).Value("not a list").Build()
	require.NoError(t, s.client.Do(ctx, command).Error(), "failed to set key")

	_, err := s.repo.GetAll(ctx)
	require.Error(t, err, "get roster should fail on a non list key")

	assert.NotErrorIs(t, err, pipeline.ErrRetryableError, "WRONGTYPE is not retryable")
}

func TestLosingConnection(t *testing.T) {
	t.Parallel()

	container := startValkey(t)
	client := createValkeyClient(t, container)
	repo := host.NewValkeyRepo(client, "")

	// stop the container
	err := container.Terminate(context.Background())
	require.NoError(t, err, "failed to terminate valkey")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err = repo.GetAll(ctx)
	require.Error(t, err, "get roster should fail")

	require.ErrorIs(t, err, pipeline.ErrRetryableError, "error should be retryable: %v", reflect.TypeOf(err))
}
