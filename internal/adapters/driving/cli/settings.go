package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/scoresync/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change settings",
	Long: `Shows the effective settings (config file values with defaults filled in)
or changes a single setting.

Examples:
  scoresync settings
  scoresync settings set store.root 1AbCdEfGh
  scoresync settings set renderer.binary /usr/bin/mscore
  scoresync settings validate`,
	Args: cobra.NoArgs,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSettingsSet,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the settings are usable, including the renderer binary",
	Args:  cobra.NoArgs,
	RunE:  runSettingsValidate,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsValidateCmd)
	rootCmd.AddCommand(settingsCmd)
}

// settingField maps a config key to its field in AppSettings.
type settingField struct {
	get func(*domain.AppSettings) string
	set func(*domain.AppSettings, string) error
}

var settingFields = map[string]settingField{
	"store.kind": {
		get: func(s *domain.AppSettings) string { return s.Store.Kind.String() },
		set: func(s *domain.AppSettings, v string) error {
			kind := domain.StoreKind(v)
			if !kind.IsValid() {
				return fmt.Errorf("%w: store.kind must be drive or local", domain.ErrInvalidInput)
			}
			s.Store.Kind = kind
			return nil
		},
	},
	"store.root":                 stringField(func(s *domain.AppSettings) *string { return &s.Store.Root }),
	"renderer.binary":            stringField(func(s *domain.AppSettings) *string { return &s.Renderer.Binary }),
	"renderer.retries":           intField(func(s *domain.AppSettings) *int { return &s.Renderer.Retries }),
	"renderer.timeout":           durationField(func(s *domain.AppSettings) *time.Duration { return &s.Renderer.Timeout }),
	"layout.min_spacing":         floatField(func(s *domain.AppSettings) *float64 { return &s.Layout.MinSpacing }),
	"layout.default_spacing":     floatField(func(s *domain.AppSettings) *float64 { return &s.Layout.DefaultSpacing }),
	"layout.spacing_step":        floatField(func(s *domain.AppSettings) *float64 { return &s.Layout.SpacingStep }),
	"layout.min_empty_measures":  intField(func(s *domain.AppSettings) *int { return &s.Layout.MinEmptyMeasures }),
	"layout.min_mmrest_width":    floatField(func(s *domain.AppSettings) *float64 { return &s.Layout.MinMMRestWidth }),
	"layout.margin":              floatField(func(s *domain.AppSettings) *float64 { return &s.Layout.Margin }),
	"watch.poll_interval":        durationField(func(s *domain.AppSettings) *time.Duration { return &s.Watch.PollInterval }),
	"watch.full_scan_every":      intField(func(s *domain.AppSettings) *int { return &s.Watch.FullScanEvery }),
	"google.credentials_file":    stringField(func(s *domain.AppSettings) *string { return &s.Google.CredentialsFile }),
	"google.token_file":          stringField(func(s *domain.AppSettings) *string { return &s.Google.TokenFile }),
	"google.requests_per_second": floatField(func(s *domain.AppSettings) *float64 { return &s.Google.RequestsPerSecond }),
	"google.burst":               intField(func(s *domain.AppSettings) *int { return &s.Google.Burst }),
	"data_dir":                   stringField(func(s *domain.AppSettings) *string { return &s.DataDir }),
}

func stringField(ptr func(*domain.AppSettings) *string) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return *ptr(s) },
		set: func(s *domain.AppSettings, v string) error {
			*ptr(s) = v
			return nil
		},
	}
}

func intField(ptr func(*domain.AppSettings) *int) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return strconv.Itoa(*ptr(s)) },
		set: func(s *domain.AppSettings, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not an integer", domain.ErrInvalidInput, v)
			}
			*ptr(s) = n
			return nil
		},
	}
}

func floatField(ptr func(*domain.AppSettings) *float64) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return strconv.FormatFloat(*ptr(s), 'f', -1, 64) },
		set: func(s *domain.AppSettings, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, v)
			}
			*ptr(s) = f
			return nil
		},
	}
}

func durationField(ptr func(*domain.AppSettings) *time.Duration) settingField {
	return settingField{
		get: func(s *domain.AppSettings) string { return ptr(s).String() },
		set: func(s *domain.AppSettings, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%w: %q is not a duration", domain.ErrInvalidInput, v)
			}
			*ptr(s) = d
			return nil
		},
	}
}

func settingKeys() []string {
	keys := make([]string, 0, len(settingFields))
	for k := range settingFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(false)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(settingFields))
	for _, key := range settingKeys() {
		value := settingFields[key].get(settings)
		if value == "" {
			value = "(not set)"
		}
		rows = append(rows, []string{key, value})
	}

	cmd.Printf("Settings from %s\n", configStore.Path())
	cmd.Println(renderTable([]string{"Key", "Value"}, rows))
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], strings.TrimSpace(args[1])
	field, ok := settingFields[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q (known: %s)",
			domain.ErrInvalidInput, key, strings.Join(settingKeys(), ", "))
	}

	settings, err := loadSettings(false)
	if err != nil {
		return err
	}
	if err := field.set(settings, value); err != nil {
		return err
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	cmd.Printf("%s = %s\n", key, field.get(settings))
	return nil
}

func runSettingsValidate(cmd *cobra.Command, _ []string) error {
	if _, err := loadSettings(true); err != nil {
		return err
	}
	cmd.Println("Settings are valid.")
	return nil
}
