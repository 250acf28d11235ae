package handler

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	syncdomain "github.com/shopmetrics/backend/internal/domain/sync"
	"github.com/shopmetrics/backend/internal/infrastructure/crypto"
	"github.com/shopmetrics/backend/internal/infrastructure/persistence"
)

const testVaultKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func init() {
	gin.SetMode(gin.TestMode)
}

// testEnv wires handlers against an in-memory database so handler tests
// exercise the same repositories and vault production uses.
type testEnv struct {
	db           *gorm.DB
	integrations *persistence.GormIntegrationRepository
	orders       *persistence.GormOrderRepository
	events       *persistence.GormReportanaEventRepository
	syncLogs     *persistence.GormSyncLogRepository
	orgs         *persistence.GormOrganizationRepository
	vault        *crypto.Vault
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, persistence.AutoMigrate(db))

	vault, err := crypto.NewVault(testVaultKey)
	require.NoError(t, err)

	return &testEnv{
		db:           db,
		integrations: persistence.NewGormIntegrationRepository(db),
		orders:       persistence.NewGormOrderRepository(db),
		events:       persistence.NewGormReportanaEventRepository(db),
		syncLogs:     persistence.NewGormSyncLogRepository(db),
		orgs:         persistence.NewGormOrganizationRepository(db),
		vault:        vault,
	}
}

// seedConnectedIntegration stores a CONNECTED integration and returns the
// organization id. Credential plaintext is encrypted through the vault.
func (env *testEnv) seedConnectedIntegration(t *testing.T, platform syncdomain.PlatformCode, externalAccountID, apiKey string) uuid.UUID {
	t.Helper()

	orgID := uuid.New()
	integ := &syncdomain.Integration{
		ID:                uuid.New(),
		OrganizationID:    orgID,
		Platform:          platform,
		Status:            syncdomain.IntegrationConnected,
		ExternalAccountID: externalAccountID,
		SyncStatus:        syncdomain.SyncStateIdle,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	if apiKey != "" {
		encrypted, err := env.vault.EncryptField(apiKey)
		require.NoError(t, err)
		integ.APIKey = encrypted
	}
	require.NoError(t, env.integrations.Save(context.Background(), integ))
	return orgID
}
