package services

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/codeharvest/internal/core/domain"
	"github.com/custodia-labs/codeharvest/internal/core/ports/driven"
)

// Config keys for settings storage.
const (
	KeyLanguage          = "language"
	KeyMinStars          = "min_stars"
	KeyRecencyDays       = "recency_days"
	KeyLicenses          = "licenses"
	KeyMaxRepos          = "max_repos"
	KeyMaxFilesPerRepo   = "max_files_per_repo"
	KeyExtensions        = "extensions"
	KeyExcludedPaths     = "excluded_paths"
	KeyMaxFileSize       = "max_file_size"
	KeyMinLines          = "min_lines"
	KeyDedupScope        = "dedup_scope"
	KeyProcessWorkers    = "process_workers"
	KeyMaxFindings       = "max_findings"
	KeyConcurrency       = "concurrency"
	KeyRequestsPerSecond = "requests_per_second"
	KeyMaxRetries        = "max_retries"
	KeyRateLimitRetries  = "rate_limit_retries"
	KeyResetBuffer       = "reset_buffer_seconds"
	KeyAPIBaseURL        = "api_base_url"
	KeyRawOutput         = "raw_output"
	KeyFinalOutput       = "final_output"
	KeyScoredOutput      = "scored_output"
	KeyLedgerPath        = "ledger_path"
)

type valueKind int

const (
	kindString valueKind = iota
	kindInt
	kindFloat
	kindStrings
)

func (k valueKind) String() string {
	switch k {
	case kindInt:
		return "integer"
	case kindFloat:
		return "number"
	case kindStrings:
		return "list of strings"
	default:
		return "string"
	}
}

// settingField binds a config key to a Settings field.
type settingField struct {
	kind valueKind
	get  func(*domain.Settings) any
	set  func(*domain.Settings, any)
}

func stringField(p func(*domain.Settings) *string) settingField {
	return settingField{
		kind: kindString,
		get:  func(s *domain.Settings) any { return *p(s) },
		set:  func(s *domain.Settings, v any) { *p(s) = v.(string) },
	}
}

func intField(p func(*domain.Settings) *int) settingField {
	return settingField{
		kind: kindInt,
		get:  func(s *domain.Settings) any { return *p(s) },
		set:  func(s *domain.Settings, v any) { *p(s) = v.(int) },
	}
}

func stringsField(p func(*domain.Settings) *[]string) settingField {
	return settingField{
		kind: kindStrings,
		get:  func(s *domain.Settings) any { return append([]string(nil), *p(s)...) },
		set:  func(s *domain.Settings, v any) { *p(s) = v.([]string) },
	}
}

var settingFields = map[string]settingField{
	KeyLanguage: stringField(func(s *domain.Settings) *string { return &s.Language }),
	KeyMinStars: intField(func(s *domain.Settings) *int { return &s.MinStars }),
	KeyRecencyDays: {
		kind: kindInt,
		get:  func(s *domain.Settings) any { return int(s.RecencyWindow / (24 * time.Hour)) },
		set:  func(s *domain.Settings, v any) { s.RecencyWindow = time.Duration(v.(int)) * 24 * time.Hour },
	},
	KeyLicenses:        stringsField(func(s *domain.Settings) *[]string { return &s.RequiredLicenses }),
	KeyMaxRepos:        intField(func(s *domain.Settings) *int { return &s.MaxRepos }),
	KeyMaxFilesPerRepo: intField(func(s *domain.Settings) *int { return &s.MaxFilesPerRepo }),
	KeyExtensions:      stringsField(func(s *domain.Settings) *[]string { return &s.Extensions }),
	KeyExcludedPaths:   stringsField(func(s *domain.Settings) *[]string { return &s.ExcludedPaths }),
	KeyMaxFileSize: {
		kind: kindInt,
		get:  func(s *domain.Settings) any { return int(s.MaxFileSize) },
		set:  func(s *domain.Settings, v any) { s.MaxFileSize = int64(v.(int)) },
	},
	KeyMinLines: intField(func(s *domain.Settings) *int { return &s.MinLines }),
	KeyDedupScope: {
		kind: kindString,
		get:  func(s *domain.Settings) any { return string(s.DedupScope) },
		set:  func(s *domain.Settings, v any) { s.DedupScope = domain.DedupScope(v.(string)) },
	},
	KeyProcessWorkers: intField(func(s *domain.Settings) *int { return &s.ProcessWorkers }),
	KeyMaxFindings:    intField(func(s *domain.Settings) *int { return &s.MaxFindings }),
	KeyConcurrency:    intField(func(s *domain.Settings) *int { return &s.Concurrency }),
	KeyRequestsPerSecond: {
		kind: kindFloat,
		get:  func(s *domain.Settings) any { return s.RequestsPerSecond },
		set:  func(s *domain.Settings, v any) { s.RequestsPerSecond = v.(float64) },
	},
	KeyMaxRetries:       intField(func(s *domain.Settings) *int { return &s.MaxRetries }),
	KeyRateLimitRetries: intField(func(s *domain.Settings) *int { return &s.RateLimitRetries }),
	KeyResetBuffer: {
		kind: kindInt,
		get:  func(s *domain.Settings) any { return int(s.ResetBuffer / time.Second) },
		set:  func(s *domain.Settings, v any) { s.ResetBuffer = time.Duration(v.(int)) * time.Second },
	},
	KeyAPIBaseURL:   stringField(func(s *domain.Settings) *string { return &s.APIBaseURL }),
	KeyRawOutput:    stringField(func(s *domain.Settings) *string { return &s.RawOutput }),
	KeyFinalOutput:  stringField(func(s *domain.Settings) *string { return &s.FinalOutput }),
	KeyScoredOutput: stringField(func(s *domain.Settings) *string { return &s.ScoredOutput }),
	KeyLedgerPath:   stringField(func(s *domain.Settings) *string { return &s.LedgerPath }),
}

// SettingKeys returns every recognised config key, sorted.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadSettings reads settings from store on top of the defaults and
// validates them. Unknown keys are ignored. A value of the wrong type keeps
// its default and is reported. The settings are returned even on error.
func LoadSettings(store driven.ConfigStore) (domain.Settings, error) {
	s, err := readSettings(store)
	return s, errors.Join(err, ValidateSettings(s))
}

func readSettings(store driven.ConfigStore) (domain.Settings, error) {
	s := domain.DefaultSettings()
	var errs []error
	for _, key := range SettingKeys() {
		raw, ok := store.Get(key)
		if !ok {
			continue
		}
		f := settingFields[key]
		v, ok := coerce(f.kind, raw)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s has type %T, want %s", domain.ErrInvalidSettings, key, raw, f.kind))
			continue
		}
		f.set(&s, v)
	}
	return s, errors.Join(errs...)
}

// coerce converts a decoded config value to the Go type of kind. TOML
// decodes integers as int64 and arrays as []any.
func coerce(kind valueKind, raw any) (any, bool) {
	switch kind {
	case kindString:
		v, ok := raw.(string)
		return v, ok
	case kindInt:
		switch v := raw.(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			if v == math.Trunc(v) {
				return int(v), true
			}
		}
	case kindFloat:
		switch v := raw.(type) {
		case float64:
			return v, true
		case int64:
			return float64(v), true
		case int:
			return float64(v), true
		}
	case kindStrings:
		switch v := raw.(type) {
		case []string:
			return v, true
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				str, ok := item.(string)
				if !ok {
					return nil, false
				}
				out = append(out, str)
			}
			return out, true
		}
	}
	return nil, false
}

// SetSetting parses raw for key, checks that the resulting settings are
// valid, and persists the value. List values are comma separated.
func SetSetting(store driven.ConfigStore, key, raw string) error {
	f, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", domain.ErrInvalidSettings, key)
	}

	var value any
	switch f.kind {
	case kindString:
		value = strings.TrimSpace(raw)
	case kindInt:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%w: %s must be an integer", domain.ErrInvalidSettings, key)
		}
		value = n
	case kindFloat:
		n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidSettings, key)
		}
		value = n
	case kindStrings:
		value = splitList(raw)
	}

	// A wrongly typed stored value for another key keeps its default here;
	// LoadSettings reports it.
	s, _ := readSettings(store)
	f.set(&s, value)
	if err := ValidateSettings(s); err != nil {
		return err
	}
	if err := store.Set(key, value); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// SettingValues returns every setting as a key and display value, sorted
// by key.
func SettingValues(s domain.Settings) [][2]string {
	out := make([][2]string, 0, len(settingFields))
	for _, key := range SettingKeys() {
		var text string
		switch v := settingFields[key].get(&s).(type) {
		case []string:
			text = strings.Join(v, ",")
		case float64:
			text = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			text = fmt.Sprint(v)
		}
		out = append(out, [2]string{key, text})
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func settingsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// report config key names rather than Go field names
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			tag := fld.Tag.Get("toml")
			if idx := strings.Index(tag, ","); idx >= 0 {
				tag = tag[:idx]
			}
			if tag == "-" || tag == "" {
				return fld.Name
			}
			return tag
		})
	})
	return validate
}

// ValidateSettings checks s against its field constraints. Failures wrap
// domain.ErrInvalidSettings.
func ValidateSettings(s domain.Settings) error {
	err := settingsValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", domain.ErrInvalidSettings, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidSettings, strings.Join(msgs, "; "))
}
