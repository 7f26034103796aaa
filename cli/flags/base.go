package flags

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cli_utils "github.com/ssvlabs/ssv-multisig/cli/utils"
)

// Flag names.
const (
	configYAML     = "configYAML"
	logLevel       = "logLevel"
	logFormat      = "logFormat"
	logLevelFormat = "logLevelFormat"
	logFilePath    = "logFilePath"
	outputPath     = "outputPath"
)

// global base flags
var (
	OutputPath     string
	LogLevel       string
	LogFormat      string
	LogLevelFormat string
	LogFilePath    string
)

func SetBaseFlags(cmd *cobra.Command) {
	ConfigYAMLFlag(cmd)
	OutputPathFlag(cmd)
	LogLevelFlag(cmd)
	LogFormatFlag(cmd)
	LogLevelFormatFlag(cmd)
	LogFilePathFlag(cmd)
}

// BindBaseFlags binds flags to yaml config parameters
func BindBaseFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlag(outputPath, cmd.PersistentFlags().Lookup(outputPath)); err != nil {
		return err
	}
	if err := viper.BindPFlag(logLevel, cmd.PersistentFlags().Lookup(logLevel)); err != nil {
		return err
	}
	if err := viper.BindPFlag(logFormat, cmd.PersistentFlags().Lookup(logFormat)); err != nil {
		return err
	}
	if err := viper.BindPFlag(logLevelFormat, cmd.PersistentFlags().Lookup(logLevelFormat)); err != nil {
		return err
	}
	if err := viper.BindPFlag(logFilePath, cmd.PersistentFlags().Lookup(logFilePath)); err != nil {
		return err
	}
	OutputPath = viper.GetString(outputPath)
	if OutputPath != "" {
		OutputPath = filepath.Clean(OutputPath)
	}
	if strings.Contains(OutputPath, "..") {
		return fmt.Errorf("😥 outputPath cant contain traversal")
	}
	if err := cli_utils.CreateDirIfNotExist(OutputPath); err != nil {
		return err
	}
	LogLevel = viper.GetString(logLevel)
	LogFormat = viper.GetString(logFormat)
	LogLevelFormat = viper.GetString(logLevelFormat)
	LogFilePath = viper.GetString(logFilePath)
	if strings.Contains(LogFilePath, "..") {
		return fmt.Errorf("😥 logFilePath cant contain traversal")
	}
	return nil
}

// ConfigYAMLFlag sets a path to a yaml file holding the flag values
func ConfigYAMLFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, configYAML, "", "Path to a yaml config file, flags passed on the command line are overridden by it", false)
}

// LogLevelFlag logger's log level flag to the command
func LogLevelFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logLevel, "debug", "Defines logger's log level", false)
}

// LogFormatFlag logger's  logger's encoding flag to the command
func LogFormatFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logFormat, "json", "Defines logger's encoding, valid values are 'json' (default) and 'console'", false)
}

// LogLevelFormatFlag logger's level format flag to the command
func LogLevelFormatFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logLevelFormat, "capitalColor", "Defines logger's level format, valid values are 'capitalColor' (default), 'capital' or 'lowercase'", false)
}

// LogFilePathFlag file path to write logs into
func LogFilePathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, logFilePath, "debug.log", "Defines a file path to write logs into", false)
}

// OutputPathFlag sets the path to store resulting files
func OutputPathFlag(c *cobra.Command) {
	AddPersistentStringFlag(c, outputPath, "./output", "Path to store results", false)
}
