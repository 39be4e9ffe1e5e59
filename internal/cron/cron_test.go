package cron

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	cronv3 "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"k8s.io/client-go/kubernetes"

	"github.com/customeros/attachstack/config"
	"github.com/customeros/attachstack/internal/logger"
)

type mockKubernetesInterface struct {
	kubernetes.Interface
	mock.Mock
}

func getLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

func getConfig(localRoot string, retentionDays int) *config.Config {
	return &config.Config{
		AppConfig: &config.AppConfig{},
		Logger: &logger.Config{
			LogLevel: "info",
		},
		StorageConfig: &config.StorageConfig{
			LocalRoot:     localRoot,
			RetentionDays: retentionDays,
		},
	}
}

func TestNewCronManager(t *testing.T) {
	// Arrange
	cfg := getConfig(t.TempDir(), 30)
	log := getLogger()
	k8s := &mockKubernetesInterface{}

	// Act
	cm := NewCronManager(cfg, log, k8s)

	// Assert
	assert.NotNil(t, cm)
	assert.Equal(t, cfg, cm.cfg)
	assert.Equal(t, log, cm.log)
	assert.Equal(t, k8s, cm.k8s)
	assert.NotNil(t, cm.jobIDs)
}

func TestCronManager_StartCron(t *testing.T) {
	// Set environment variable for testing
	os.Setenv("CRON_SCHEDULE_ARCHIVE_RETENTION", "0 0 0 * * *")
	defer os.Unsetenv("CRON_SCHEDULE_ARCHIVE_RETENTION")

	// Arrange
	cfg := getConfig(t.TempDir(), 30)
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s)

	// Act
	cm.StartCron()
	defer cm.Stop()

	// Assert
	assert.NotNil(t, cm.cron)
	assert.Contains(t, cm.jobIDs, "heartbeat")
	assert.Contains(t, cm.jobIDs, "archive_retention")
}

func TestCronManager_StartCron_RetentionDisabled(t *testing.T) {
	// Arrange
	cfg := getConfig(t.TempDir(), 0)
	log := getLogger()
	cm := NewCronManager(cfg, log, nil)

	// Act
	cm.StartCron()
	defer cm.Stop()

	// Assert
	assert.NotContains(t, cm.jobIDs, "archive_retention")
}

func TestCronManager_Stop(t *testing.T) {
	// Arrange
	cfg := getConfig(t.TempDir(), 30)
	log := getLogger()
	k8s := &mockKubernetesInterface{}
	cm := NewCronManager(cfg, log, k8s)

	// Create a mock cron for testing
	mockCron := cronv3.New()
	mockCron.Start()
	cm.cron = mockCron

	// Act
	cm.Stop()

	// Assert
	select {
	case <-cm.stopCh:
		// Channel is closed as expected
	default:
		t.Error("Stop channel was not closed")
	}
}

func TestCronManager_PurgeExpiredArchives(t *testing.T) {
	// Arrange
	root := t.TempDir()
	expired := filepath.Join(root, "2020-01-01_old_message")
	fresh := filepath.Join(root, "recent_message")
	require.NoError(t, os.Mkdir(expired, 0o755))
	require.NoError(t, os.Mkdir(fresh, 0o755))

	old := time.Now().AddDate(0, 0, -60)
	require.NoError(t, os.Chtimes(expired, old, old))

	cfg := getConfig(root, 30)
	cm := NewCronManager(cfg, getLogger(), nil)

	// Act
	cm.purgeExpiredArchives()

	// Assert
	_, err := os.Stat(expired)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}
