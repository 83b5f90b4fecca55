package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/codeharvest/internal/core/services"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage crawl and processing settings",
	Long: `View and change the settings stored in the config file.

Settings control the repository search, the file rules applied before
download, the processing stages and the output paths.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting",
	Long: `Validate and store a single setting. List settings (licenses, extensions,
excluded_paths) take a comma separated value.

Keys: ` + strings.Join(services.SettingKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	// show whatever is stored even when it does not validate
	s, verr := loadSettings()
	if configStore == nil {
		return verr
	}

	values := services.SettingValues(s)
	rows := make([][]string, 0, len(values))
	for _, kv := range values {
		rows = append(rows, []string{kv[0], kv[1]})
	}
	cmd.Println(titleStyle.Render("Settings") + " " + configStore.Path())
	cmd.Println(renderTable([]string{"key", "value"}, rows))

	if verr != nil {
		cmd.Println(warnStyle.Render(fmt.Sprintf("Warning: %v", verr)))
		cmd.Println("Run 'codeharvest settings set <key> <value>' to fix it.")
	} else {
		cmd.Println("Configuration is valid.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := services.SetSetting(configStore, key, value); err != nil {
		return err
	}
	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}
