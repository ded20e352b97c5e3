package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reportdesk/internal/config"
	"github.com/aristath/reportdesk/internal/modules/reports"
)

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		DataDir:          dataDir,
		Port:             8080,
		LogLevel:         "info",
		LocationPrefixes: reports.DefaultLocationPrefixes,
		BackupSchedule:   "0 0 2 * * *",
		BackupRetention:  7,
		WALSchedule:      "0 */30 * * * *",
	}
}

func TestWire(t *testing.T) {
	ctx := context.Background()

	container, jobs, err := Wire(ctx, testConfig(""), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)
	t.Cleanup(func() { _ = container.Close(ctx) })

	assert.NotNil(t, container.StoreDB)
	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.EventManager)
	assert.NotNil(t, container.Store)
	assert.NotNil(t, container.DashboardService)
	assert.NotNil(t, container.BackupService)
	assert.NotNil(t, container.RemoteBackup)
	assert.False(t, container.RemoteBackup.Enabled())
	assert.NotNil(t, container.Scheduler)
}

func TestWire_PersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	const raw = "Nhân viên\tSL Trả góp\tDT Trả góp\tTỷ lệ Trả góp\n" +
		"Tổng\t3\t30\t10%\n" +
		"Nguyễn Văn A - 12345\t2\t20\t12%\n"

	first, _, err := Wire(ctx, testConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	_, err = first.DashboardService.Paste(ctx, reports.KindInstallment, raw)
	require.NoError(t, err)
	require.NoError(t, first.Close(ctx))

	second, _, err := Wire(ctx, testConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close(ctx) })

	assert.Equal(t, raw, second.DashboardService.Raw(reports.KindInstallment))
	assert.True(t, second.DashboardService.IsUpdated(reports.KindInstallment))
}

func TestWire_SettingsOverrideEnvironment(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, _, err := Wire(ctx, testConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.Store.Set(ctx, config.SettingBackupSchedule, "0 0 4 * * *"))
	require.NoError(t, first.Close(ctx))

	cfg := testConfig(dir)
	second, _, err := Wire(ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = second.Close(ctx) })

	assert.Equal(t, "0 0 4 * * *", cfg.BackupSchedule)
}
