package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mushtrack/internal/models"
	"mushtrack/internal/sensor"
)

type sensorOutput struct {
	models.SensorReading
	HasData bool   `json:"available"`
	Message string `json:"message,omitempty"`
}

func newSensorCommand(a *app) *cobra.Command {
	sensorCmd := &cobra.Command{
		Use:   "sensor",
		Short: "Read sensor data",
	}

	var (
		source string
		path   string
		url    string
	)
	readCmd := &cobra.Command{
		Use:   "read",
		Short: "Read one sample from a sensor source",
		Long: `Reads temperature and humidity once and prints them as JSON.

Examples:
  mushtrack sensor read
  mushtrack sensor read --source file --path sensor_data.json
  mushtrack sensor read --source remote --url http://192.168.1.20/data.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseSourceKind(source)
			if err != nil {
				return err
			}
			src := models.SensorSource{Kind: kind, Path: path, URL: url}

			client := sensor.NewClient(a.logger)
			reading, err := client.Read(cmd.Context(), src)
			out := sensorOutput{SensorReading: reading}

			var fetchErr *sensor.FetchError
			switch {
			case errors.As(err, &fetchErr):
				out.Message = fetchErr.Message()
			case err != nil:
				return err
			}
			out.HasData = reading.Available() && out.Message == ""
			if !out.HasData && out.Message == "" {
				out.Message = "Sensor data not available."
			}

			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to format reading: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
	readCmd.Flags().StringVar(&source, "source", string(models.SourceManual), "Sensor source: manual, file or remote")
	readCmd.Flags().StringVar(&path, "path", models.DefaultSensorPath, "JSON file for the file source")
	readCmd.Flags().StringVar(&url, "url", models.DefaultSensorURL, "Endpoint for the remote source")

	sensorCmd.AddCommand(readCmd)
	return sensorCmd
}
