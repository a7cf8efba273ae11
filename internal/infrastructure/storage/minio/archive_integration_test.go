//go:build integration

package minio_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/patentdesk/extraction-engine/internal/config"
	"github.com/patentdesk/extraction-engine/internal/infrastructure/storage/minio"
)

func startMinIO(t *testing.T) config.MinIOConfig {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "minio/minio:RELEASE.2024-01-16T16-07-38Z",
		ExposedPorts: []string{"9000/tcp"},
		Env: map[string]string{
			"MINIO_ROOT_USER":     "testkey",
			"MINIO_ROOT_PASSWORD": "testsecret",
		},
		Cmd:        []string{"server", "/data"},
		WaitingFor: wait.ForListeningPort("9000/tcp").WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	return config.MinIOConfig{
		Endpoint:  fmt.Sprintf("%s:%s", host, port.Port()),
		AccessKey: "testkey",
		SecretKey: "testsecret",
		Bucket:    "pateng-archive",
	}
}

func TestArchive_StoreAndFetchRoundTrip(t *testing.T) {
	cfg := startMinIO(t)
	archive, err := minio.NewArchive(cfg, nil)
	require.NoError(t, err)

	ctx := context.Background()
	text := strings.Repeat("United States Patent. Assignee: Acme Corporation. ", 100)
	key := "corrections/assignee/7b0d8a1e.txt"

	require.NoError(t, archive.Store(ctx, key, text))

	got, err := archive.Fetch(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, text, got)

	require.NoError(t, archive.Delete(ctx, key))
	_, err = archive.Fetch(ctx, key)
	assert.Error(t, err)
}
