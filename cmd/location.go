package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/voxcapture/internal/settings"
)

var locationCmd = &cobra.Command{
	Use:   "location",
	Short: "Show or change the saved location",
}

var locationGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the saved location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := settings.NewStore(cfg.Settings.File).Load()
		if err != nil {
			return fmt.Errorf("failed to load location: %w", err)
		}
		if loc == nil {
			fmt.Println("no location saved")
			return nil
		}

		out, err := yaml.Marshal(loc)
		if err != nil {
			return fmt.Errorf("error marshaling location: %w", err)
		}
		fmt.Print(string(out))
		return nil
	},
}

var locationSetCmd = &cobra.Command{
	Use:   "set <location>",
	Short: "Replace the saved location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		loc := settings.LocationSettings{Location: args[0]}
		if cmd.Flags().Changed("country") {
			country, _ := cmd.Flags().GetString("country")
			loc.Country = &country
		}

		if err := settings.NewStore(cfg.Settings.File).Save(loc); err != nil {
			return fmt.Errorf("failed to save location: %w", err)
		}
		fmt.Printf("location saved to %s\n", cfg.Settings.File)
		return nil
	},
}

func init() {
	locationSetCmd.Flags().String("country", "", "country of the location")

	locationCmd.AddCommand(locationGetCmd)
	locationCmd.AddCommand(locationSetCmd)
}
