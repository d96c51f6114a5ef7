// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/motion_datalogger/internal/app"
	"github.com/relabs-tech/motion_datalogger/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "status_console",
	Short: "Print the datalogger's MQTT status stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := cmd.Flags().GetString("config")
		if err != nil {
			return err
		}
		log.Println("starting datalogger status console (MQTT subscriber)")
		if err := config.InitGlobal(configPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		return app.RunStatusConsole()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().String("config", "datalogger_config.txt", "path to the KEY=VALUE config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
