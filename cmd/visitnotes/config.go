package main

import (
	"fmt"

	"visitnotes/internal/app"
	"visitnotes/internal/config"
	"visitnotes/internal/encryption"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		deviceID := uuid.New().String()
		cfg := config.NewConfig(deviceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Device ID: %s\n", deviceID)
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])

		enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
		if err != nil {
			return fmt.Errorf("creating encryptor: %w", err)
		}
		if enc.IsConfigured() {
			fmt.Println("Encryption keys already present.")
			return nil
		}

		passphrase, err := readNewSecret("Audio encryption passphrase")
		if err != nil {
			return err
		}
		if err := enc.Setup(passphrase); err != nil {
			return fmt.Errorf("generating encryption keys: %w", err)
		}
		fmt.Printf("Encryption keys written to %s\n", cfg.Encryption.PublicKeyPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Device ID:     %s\n", cfg.DeviceID)
		fmt.Printf("Base Dir:      %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:       %s\n", cfg.LogDir)
		fmt.Printf("Server URL:    %s\n", cfg.Client.ServerURL)
		fmt.Printf("Listen Addr:   %s\n", cfg.Server.Addr)
		fmt.Printf("Database:      %s\n", cfg.Database.Type)
		fmt.Printf("Local Store:   %s\n", cfg.Local.Type)
		fmt.Printf("Audio Vault:   %s (%s)\n", cfg.Vault.Name, cfg.Vault.Type)
		fmt.Printf("Encryption:    %s\n", cfg.Encryption.Type)
		fmt.Printf("Transcription: %s %s\n", cfg.Transcription.Type, cfg.Transcription.Model)
		fmt.Printf("Summarizer:    %s %s\n", cfg.Summarizer.Type, cfg.Summarizer.Model)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
}
