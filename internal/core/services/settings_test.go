package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/codeharvest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/codeharvest/internal/core/domain"
)

func TestLoadSettings_Defaults(t *testing.T) {
	s, err := LoadSettings(memory.NewConfigStore())

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSettings(), s)
}

func TestLoadSettings_Overrides(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyLanguage, "go"))
	require.NoError(t, store.Set(KeyMinStars, int64(500)))
	require.NoError(t, store.Set(KeyRecencyDays, 30))
	require.NoError(t, store.Set(KeyLicenses, []any{"MIT", "Apache-2.0"}))
	require.NoError(t, store.Set(KeyRequestsPerSecond, 2.5))
	require.NoError(t, store.Set(KeyResetBuffer, 10))
	require.NoError(t, store.Set(KeyDedupScope, "repo"))
	require.NoError(t, store.Set("unrelated", "ignored"))

	s, err := LoadSettings(store)

	require.NoError(t, err)
	assert.Equal(t, "go", s.Language)
	assert.Equal(t, 500, s.MinStars)
	assert.Equal(t, 30*24*time.Hour, s.RecencyWindow)
	assert.Equal(t, []string{"MIT", "Apache-2.0"}, s.RequiredLicenses)
	assert.InDelta(t, 2.5, s.RequestsPerSecond, 1e-9)
	assert.Equal(t, 10*time.Second, s.ResetBuffer)
	assert.Equal(t, domain.DedupScopeRepo, s.DedupScope)
	assert.Equal(t, domain.DefaultSettings().Extensions, s.Extensions)
}

func TestLoadSettings_Invalid(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyMinStars, -1))

	_, err := LoadSettings(store)

	require.ErrorIs(t, err, domain.ErrInvalidSettings)
	assert.Contains(t, err.Error(), "min_stars failed gte=0")
}

func TestLoadSettings_WrongTypes(t *testing.T) {
	store := memory.NewConfigStore()
	require.NoError(t, store.Set(KeyMinStars, "many"))
	require.NoError(t, store.Set(KeyExtensions, []any{".py", 3}))
	require.NoError(t, store.Set(KeyRequestsPerSecond, "fast"))
	require.NoError(t, store.Set(KeyMaxRepos, float64(4)))
	require.NoError(t, store.Set(KeyMaxFilesPerRepo, 2.5))

	s, err := LoadSettings(store)

	require.ErrorIs(t, err, domain.ErrInvalidSettings)
	assert.Contains(t, err.Error(), "min_stars has type string, want integer")
	assert.Contains(t, err.Error(), "extensions has type []interface {}, want list of strings")
	assert.Contains(t, err.Error(), "requests_per_second has type string, want number")
	assert.Contains(t, err.Error(), "max_files_per_repo has type float64, want integer")

	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.MinStars, s.MinStars)
	assert.Equal(t, defaults.Extensions, s.Extensions)
	assert.Equal(t, defaults.MaxFilesPerRepo, s.MaxFilesPerRepo)
	assert.Equal(t, 4, s.MaxRepos, "integral floats are accepted")
}

func TestValidateSettings(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*domain.Settings)
		field  string
	}{
		{"empty language", func(s *domain.Settings) { s.Language = "" }, "language"},
		{"zero max repos", func(s *domain.Settings) { s.MaxRepos = 0 }, "max_repos"},
		{"extension without dot", func(s *domain.Settings) { s.Extensions = []string{"py"} }, "extensions[0]"},
		{"no extensions", func(s *domain.Settings) { s.Extensions = nil }, "extensions"},
		{"unknown dedup scope", func(s *domain.Settings) { s.DedupScope = "global" }, "dedup_scope"},
		{"too many workers", func(s *domain.Settings) { s.ProcessWorkers = 1000 }, "process_workers"},
		{"zero concurrency", func(s *domain.Settings) { s.Concurrency = 0 }, "concurrency"},
		{"bad base url", func(s *domain.Settings) { s.APIBaseURL = "not a url" }, "api_base_url"},
		{"no final output", func(s *domain.Settings) { s.FinalOutput = "" }, "final_output"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := domain.DefaultSettings()
			tt.modify(&s)

			err := ValidateSettings(s)

			require.ErrorIs(t, err, domain.ErrInvalidSettings)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestSetSetting(t *testing.T) {
	store := memory.NewConfigStore()

	require.NoError(t, SetSetting(store, KeyMaxRepos, " 25 "))
	require.NoError(t, SetSetting(store, KeyExtensions, ".py, .pyi,,"))
	require.NoError(t, SetSetting(store, KeyRequestsPerSecond, "0.5"))

	s, err := LoadSettings(store)
	require.NoError(t, err)
	assert.Equal(t, 25, s.MaxRepos)
	assert.Equal(t, []string{".py", ".pyi"}, s.Extensions)
	assert.InDelta(t, 0.5, s.RequestsPerSecond, 1e-9)
}

func TestSetSetting_Rejects(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
	}{
		{"unknown key", "colour", "blue"},
		{"not an integer", KeyMaxRepos, "many"},
		{"not a number", KeyRequestsPerSecond, "fast"},
		{"fails validation", KeyMaxRepos, "0"},
		{"bad list entry", KeyExtensions, "py"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()

			err := SetSetting(store, tt.key, tt.raw)

			require.ErrorIs(t, err, domain.ErrInvalidSettings)
			_, stored := store.Get(tt.key)
			assert.False(t, stored)
		})
	}
}

func TestSettingValues(t *testing.T) {
	s := domain.DefaultSettings()
	s.RequiredLicenses = []string{"MIT", "BSD-3-Clause"}

	values := SettingValues(s)

	require.Len(t, values, len(SettingKeys()))
	got := make(map[string]string, len(values))
	for i, kv := range values {
		if i > 0 {
			assert.Less(t, values[i-1][0], kv[0])
		}
		got[kv[0]] = kv[1]
	}
	assert.Equal(t, "python", got[KeyLanguage])
	assert.Equal(t, "MIT,BSD-3-Clause", got[KeyLicenses])
	assert.Equal(t, "730", got[KeyRecencyDays])
	assert.Equal(t, "1.2", got[KeyRequestsPerSecond])
	assert.Equal(t, "5", got[KeyResetBuffer])
	assert.Equal(t, "file", got[KeyDedupScope])
}
